package youtube

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"ytvault/progress"
)

// mp4Format prefers separate mp4 video and m4a audio streams merged by
// ffmpeg, falling back to the best single mp4 or any best format.
const mp4Format = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// percentRegex matches the completion percentage in yt-dlp progress lines.
var percentRegex = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)

// Downloader downloads a single video to a caller-chosen path using yt-dlp.
type Downloader struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string
	// FfmpegDir is the directory containing ffmpeg and ffprobe.
	// Empty means yt-dlp resolves ffmpeg from PATH.
	FfmpegDir string
	// Timeout is the maximum duration for one download. Defaults to 10 minutes.
	// Large videos may need longer timeouts.
	Timeout time.Duration
	// Retries is passed to yt-dlp as its internal per-fragment retry count.
	Retries int
}

// NewDownloader creates a Downloader with default settings.
func NewDownloader() *Downloader {
	return &Downloader{
		Path:    defaultYtdlpPath,
		Timeout: defaultYtdlpTimeout,
		Retries: 3,
	}
}

// Download fetches the video to destPath as an mp4, reporting progress as
// yt-dlp emits it. The file at destPath may be absent or empty on failure;
// callers are expected to verify size before treating it as complete.
func (d *Downloader) Download(ctx context.Context, videoID, destPath string, onProgress progress.Func) error {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = defaultYtdlpTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-f", mp4Format,
		"--merge-output-format", "mp4",
		"--no-warnings",
		"--no-playlist",
		"--newline",
		"--socket-timeout", "30",
		"--retries", strconv.Itoa(d.Retries),
		"-o", destPath,
	}
	if d.FfmpegDir != "" {
		args = append(args, "--ffmpeg-location", d.FfmpegDir)
	}
	args = append(args, WatchURL(videoID))

	cmd := exec.CommandContext(cmdCtx, d.path(), args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &FetchError{Op: "download", VideoID: videoID, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &FetchError{Op: "download", VideoID: videoID, Err: err}
	}

	scanProgress(stdout, onProgress)

	if err := cmd.Wait(); err != nil {
		if cmdCtx.Err() != nil {
			return &FetchError{Op: "download", VideoID: videoID, Err: cmdCtx.Err()}
		}
		return &FetchError{Op: "download", VideoID: videoID, Err: classifyYtdlpError(stderr.String(), err)}
	}
	return nil
}

func (d *Downloader) path() string {
	if d.Path != "" {
		return d.Path
	}
	return defaultYtdlpPath
}

// scanProgress reads yt-dlp output line by line and forwards percentages.
func scanProgress(r io.Reader, onProgress progress.Func) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if onProgress == nil {
			continue
		}
		if frac, ok := parseProgressLine(scanner.Text()); ok {
			onProgress(frac)
		}
	}
}

// parseProgressLine extracts a [0,1] fraction from a yt-dlp progress line.
func parseProgressLine(line string) (float64, bool) {
	m := percentRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct / 100, true
}

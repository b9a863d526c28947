// Package youtube provides video ID extraction, metadata fetching and media
// download for single YouTube videos. Metadata and media come from a yt-dlp
// subprocess; an optional Data API v3 fetcher can serve metadata instead.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"
)

const (
	defaultYtdlpPath    = "yt-dlp"
	defaultYtdlpTimeout = 10 * time.Minute
)

// Metadata contains the fields recorded for each processed video.
// A Metadata value is built once per processing attempt and never mutated.
type Metadata struct {
	// ID is the 11-character video ID.
	ID string
	// Title is the video title. Always non-empty.
	Title string
	// Description is the full video description. May be empty.
	Description string
	// Tags are the video tags in upload order. May be empty.
	Tags []string
	// Category is the primary video category. May be empty.
	Category string
	// Thumbnail is the URL of the video thumbnail. May be empty.
	Thumbnail string
	// Duration is the video length. Zero when the source does not report it.
	Duration time.Duration
}

// MetadataFetcher fetches metadata for a single video.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, videoID string) (*Metadata, error)
}

// YtdlpFetcher implements MetadataFetcher using yt-dlp as a subprocess.
type YtdlpFetcher struct {
	// Path is the path to the yt-dlp executable. Defaults to "yt-dlp".
	Path string
	// Timeout is the maximum time to wait for yt-dlp. Defaults to 10 minutes.
	Timeout time.Duration
}

// NewYtdlpFetcher creates a yt-dlp based metadata fetcher with defaults.
func NewYtdlpFetcher() *YtdlpFetcher {
	return &YtdlpFetcher{
		Path:    defaultYtdlpPath,
		Timeout: defaultYtdlpTimeout,
	}
}

// FetchMetadata retrieves metadata for a video without downloading it.
// Playlists, live streams and age-restricted videos are rejected with the
// matching sentinel error.
func (f *YtdlpFetcher) FetchMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = defaultYtdlpTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"-J", "--no-warnings", "--no-playlist", WatchURL(videoID)}
	cmd := exec.CommandContext(cmdCtx, f.path(), args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmdCtx.Err() != nil {
			return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: cmdCtx.Err()}
		}
		return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: classifyYtdlpError(stderr.String(), err)}
	}

	meta, err := parseMetadata(stdout.Bytes())
	if err != nil {
		return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: err}
	}
	return meta, nil
}

func (f *YtdlpFetcher) path() string {
	if f.Path != "" {
		return f.Path
	}
	return defaultYtdlpPath
}

// CheckInstalled verifies that the yt-dlp executable at path is runnable.
func CheckInstalled(ctx context.Context, path string) error {
	if path == "" {
		path = defaultYtdlpPath
	}
	cmd := exec.CommandContext(ctx, path, "--version")
	if err := cmd.Run(); err != nil {
		return ErrYtdlpNotInstalled
	}
	return nil
}

// ytdlpInfo mirrors the subset of yt-dlp's -J output the pipeline needs.
type ytdlpInfo struct {
	Type        string            `json:"_type"`
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Tags        []string          `json:"tags"`
	Categories  []string          `json:"categories"`
	Thumbnail   string            `json:"thumbnail"`
	Duration    float64           `json:"duration"`
	IsLive      bool              `json:"is_live"`
	AgeLimit    int               `json:"age_limit"`
	Entries     []json.RawMessage `json:"entries"`
}

// parseMetadata parses yt-dlp JSON output and rejects unsupported content.
func parseMetadata(data []byte) (*Metadata, error) {
	var info ytdlpInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}

	if info.Type == "playlist" || len(info.Entries) > 0 {
		return nil, ErrPlaylist
	}
	if info.IsLive {
		return nil, ErrLiveStream
	}
	if info.AgeLimit > 0 {
		return nil, ErrAgeRestricted
	}
	if info.ID == "" || info.Title == "" {
		return nil, ErrEmptyMetadata
	}

	meta := &Metadata{
		ID:          info.ID,
		Title:       info.Title,
		Description: info.Description,
		Tags:        info.Tags,
		Thumbnail:   info.Thumbnail,
		Duration:    time.Duration(info.Duration * float64(time.Second)),
	}
	if len(info.Categories) > 0 {
		meta.Category = info.Categories[0]
	}
	return meta, nil
}

// classifyYtdlpError maps well-known yt-dlp stderr patterns to sentinels.
func classifyYtdlpError(stderr string, err error) error {
	switch {
	case strings.Contains(stderr, "Video unavailable"):
		return ErrVideoUnavailable
	case strings.Contains(stderr, "Private video"):
		return ErrVideoPrivate
	case strings.Contains(stderr, "Sign in to confirm your age"):
		return ErrAgeRestricted
	case strings.Contains(stderr, "No video formats found"),
		strings.Contains(stderr, "Requested format is not available"):
		return ErrNoFormats
	case strings.Contains(stderr, "Unsupported URL"):
		return ErrUnsupportedURL
	}
	if s := strings.TrimSpace(stderr); s != "" {
		return &ytdlpError{msg: s, err: err}
	}
	return err
}

// ytdlpError carries yt-dlp's stderr alongside the exec error.
type ytdlpError struct {
	msg string
	err error
}

func (e *ytdlpError) Error() string { return "yt-dlp: " + e.msg }

func (e *ytdlpError) Unwrap() error { return e.err }

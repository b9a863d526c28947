package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"ytvault/config"
	"ytvault/drive"
	"ytvault/pipeline"
	"ytvault/progress"
	"ytvault/sheets"
	"ytvault/storage"
	"ytvault/youtube"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Usage = printUsage
	flag.Parse()

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `ytvault - archive YouTube videos to Google Drive with spreadsheet tracking

Usage:
  ytvault [flags]                 Interactive mode, prompts for URLs
  ytvault [flags] <url> [url...]  Process the given URLs and exit

Flags:
  -config <path>  Config file (default: ytvault.toml, then ~/.config/ytvault/ytvault.toml)

Configuration may also come from YTVAULT_* environment variables.
`)
}

func run(configPath string, urls []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	layout := storage.NewLayout(cfg.DataDir)
	if err := layout.Init(); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cfg, layout)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()

	if err := checkEnvironment(ctx, cfg); err != nil {
		return err
	}

	proc, err := buildProcessor(ctx, cfg, layout, log)
	if err != nil {
		return err
	}

	if len(urls) > 0 {
		failed := 0
		for _, url := range urls {
			if !processOne(ctx, proc, url) {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d videos failed", failed, len(urls))
		}
		return nil
	}

	return interactiveLoop(ctx, proc)
}

// newLogger builds the application logger writing to stdout and a
// per-run file under the log directory.
func newLogger(cfg *config.Config, layout storage.Layout) (*logrus.Logger, func(), error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	name := fmt.Sprintf("ytvault_%s.log", time.Now().Format("20060102_150405"))
	f, err := os.OpenFile(filepath.Join(layout.LogDir(), name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	return log, func() { f.Close() }, nil
}

// checkEnvironment verifies external prerequisites before any work starts:
// credentials shape, the yt-dlp binary, and ffmpeg when a directory is set.
func checkEnvironment(ctx context.Context, cfg *config.Config) error {
	if err := config.ValidateCredentialsFile(cfg.CredentialsFile); err != nil {
		return err
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := youtube.CheckInstalled(checkCtx, cfg.YtdlpPath); err != nil {
		return err
	}

	if cfg.FfmpegDir != "" {
		if _, err := os.Stat(filepath.Join(cfg.FfmpegDir, "ffmpeg")); err != nil {
			return fmt.Errorf("ffmpeg not found in %s: %w", cfg.FfmpegDir, err)
		}
	}
	return nil
}

func buildProcessor(ctx context.Context, cfg *config.Config, layout storage.Layout, log *logrus.Logger) (*pipeline.Processor, error) {
	creds := option.WithCredentialsFile(cfg.CredentialsFile)

	tracker, err := sheets.NewTracker(ctx, cfg.SpreadsheetID, log,
		creds, option.WithScopes(gsheets.SpreadsheetsScope))
	if err != nil {
		return nil, err
	}
	if err := tracker.EnsureHeader(ctx); err != nil {
		return nil, err
	}

	var uploader pipeline.Uploader
	if cfg.UploadToDrive {
		client, err := drive.NewClient(ctx, cfg.DriveFolderID, cfg.ChunkSize, log,
			creds, option.WithScopes(gdrive.DriveFileScope))
		if err != nil {
			return nil, err
		}
		uploader = client
	}

	ytdlp := youtube.NewYtdlpFetcher()
	ytdlp.Path = cfg.YtdlpPath
	ytdlp.Timeout = cfg.YtdlpTimeout

	var fetcher youtube.MetadataFetcher = ytdlp
	if cfg.YouTubeAPIKey != "" {
		api, err := youtube.NewAPIFetcher(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			return nil, err
		}
		api.SetFallback(ytdlp)
		fetcher = api
	}

	downloader := youtube.NewDownloader()
	downloader.Path = cfg.YtdlpPath
	downloader.FfmpegDir = cfg.FfmpegDir
	downloader.Timeout = cfg.YtdlpTimeout
	downloader.Retries = cfg.MaxRetries

	proc := pipeline.NewProcessor(pipeline.Deps{
		Fetcher:    fetcher,
		Downloader: downloader,
		Uploader:   uploader,
		Tracker:    tracker,
		Layout:     layout,
		Logger:     log,
	}, pipeline.Options{
		PlaylistTag:   cfg.PlaylistTag,
		KeepFiles:     cfg.KeepFiles,
		UploadToDrive: cfg.UploadToDrive,
	})
	proc.DownloadProgress = progress.Tee(
		progress.Printer(os.Stdout, "download"),
		progress.Logger(log, "download"),
	)
	proc.UploadProgress = progress.Tee(
		progress.Printer(os.Stdout, "upload"),
		progress.Logger(log, "upload"),
	)
	return proc, nil
}

// interactiveLoop prompts for URLs until the user quits or stdin closes.
// A failed video is reported and the loop continues.
func interactiveLoop(ctx context.Context, proc *pipeline.Processor) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("Enter YouTube URL (q to quit): ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "q") {
			return nil
		}

		processOne(ctx, proc, line)
	}
}

func processOne(ctx context.Context, proc *pipeline.Processor, url string) bool {
	outcome, err := proc.Process(ctx, url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", url, err)
		return false
	}
	if outcome == pipeline.OutcomeAlreadyExists {
		fmt.Printf("Skipped %s: already tracked\n", url)
	}
	return true
}

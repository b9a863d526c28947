// Package config manages application configuration.
//
// Configuration is resolved once at startup with the priority
// environment variables > TOML config file > defaults, validated, and then
// passed by value into component constructors; no component reads ambient
// environment state after startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/sirupsen/logrus"
)

const defaultChunkSize = 50 << 20 // 50 MiB

// Config holds all application configuration. Values are fixed after Load.
type Config struct {
	// SpreadsheetID is the tracking spreadsheet. Required.
	SpreadsheetID string `toml:"spreadsheet_id"`
	// DriveFolderID is the Drive folder receiving uploads.
	// Required unless UploadToDrive is false.
	DriveFolderID string `toml:"drive_folder_id"`
	// CredentialsFile is the Google service account JSON file.
	CredentialsFile string `toml:"credentials_file"`
	// DataDir is the root for videos, logs and credentials.
	DataDir string `toml:"data_dir"`
	// YtdlpPath is the yt-dlp executable. Defaults to "yt-dlp" from PATH.
	YtdlpPath string `toml:"ytdlp_path"`
	// FfmpegDir is the directory holding ffmpeg and ffprobe.
	// Empty means yt-dlp resolves them from PATH.
	FfmpegDir string `toml:"ffmpeg_dir"`
	// YouTubeAPIKey enables metadata fetching via the Data API when set.
	YouTubeAPIKey string `toml:"youtube_api_key"`
	// PlaylistTag is written into the playlist column of every row.
	PlaylistTag string `toml:"playlist_tag"`
	// ChunkSize is the Drive resumable upload chunk size in bytes.
	ChunkSize int `toml:"chunk_size"`
	// MaxRetries is the download retry count passed to yt-dlp.
	MaxRetries int `toml:"max_retries"`
	// KeepFiles keeps local media after a successful upload.
	KeepFiles bool `toml:"keep_files"`
	// UploadToDrive toggles the upload step; when false, completed
	// downloads are tracked with their local path instead.
	UploadToDrive bool `toml:"upload_to_drive"`
	// LogLevel is a logrus level name.
	LogLevel string `toml:"log_level"`
	// YtdlpTimeout bounds each yt-dlp invocation.
	YtdlpTimeout time.Duration `toml:"ytdlp_timeout"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       "storage",
		YtdlpPath:     "yt-dlp",
		ChunkSize:     defaultChunkSize,
		MaxRetries:    3,
		KeepFiles:     true,
		UploadToDrive: true,
		LogLevel:      "info",
		YtdlpTimeout:  10 * time.Minute,
	}
}

// Load resolves configuration from the given TOML file (or the default
// search paths when path is empty), applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(path); err != nil {
		if path != "" || !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = filepath.Join(cfg.DataDir, "credentials", "google_creds.json")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads TOML from path, or from ytvault.toml in the working
// directory or ~/.config/ytvault/ when path is empty.
func (c *Config) loadFromFile(path string) error {
	paths := []string{path}
	if path == "" {
		paths = []string{
			"ytvault.toml",
			filepath.Join(os.Getenv("HOME"), ".config", "ytvault", "ytvault.toml"),
		}
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) && path == "" {
				continue
			}
			return err
		}
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with YTVAULT_* environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("YTVAULT_SPREADSHEET_ID"); v != "" {
		c.SpreadsheetID = v
	}
	if v := os.Getenv("YTVAULT_DRIVE_FOLDER_ID"); v != "" {
		c.DriveFolderID = v
	}
	if v := os.Getenv("YTVAULT_CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	if v := os.Getenv("YTVAULT_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("YTVAULT_YTDLP_PATH"); v != "" {
		c.YtdlpPath = v
	}
	if v := os.Getenv("YTVAULT_FFMPEG_DIR"); v != "" {
		c.FfmpegDir = v
	}
	if v := os.Getenv("YTVAULT_YOUTUBE_API_KEY"); v != "" {
		c.YouTubeAPIKey = v
	}
	if v := os.Getenv("YTVAULT_PLAYLIST_TAG"); v != "" {
		c.PlaylistTag = v
	}
	if v := os.Getenv("YTVAULT_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ChunkSize = n
		}
	}
	if v := os.Getenv("YTVAULT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("YTVAULT_KEEP_FILES"); v != "" {
		c.KeepFiles = v == "true" || v == "1"
	}
	if v := os.Getenv("YTVAULT_UPLOAD_TO_DRIVE"); v != "" {
		c.UploadToDrive = v == "true" || v == "1"
	}
	if v := os.Getenv("YTVAULT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("YTVAULT_YTDLP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.YtdlpTimeout = d
		}
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.SpreadsheetID == "" {
		return fmt.Errorf("spreadsheet_id is required")
	}
	if c.UploadToDrive && c.DriveFolderID == "" {
		return fmt.Errorf("drive_folder_id is required when upload_to_drive is enabled")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.YtdlpTimeout <= 0 {
		return fmt.Errorf("ytdlp_timeout must be positive")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// requiredCredentialFields are the service account JSON fields the Google
// clients need to authenticate.
var requiredCredentialFields = []string{
	"type",
	"project_id",
	"private_key_id",
	"private_key",
	"client_email",
}

// ValidateCredentialsFile checks that the service account file exists and
// carries the expected structure before any Google client is constructed.
func ValidateCredentialsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("credentials file: %w", err)
	}

	var creds map[string]json.RawMessage
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("credentials file %s is not valid JSON: %w", path, err)
	}

	var missing []string
	for _, field := range requiredCredentialFields {
		if _, ok := creds[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("credentials file %s missing fields: %s", path, strings.Join(missing, ", "))
	}
	return nil
}

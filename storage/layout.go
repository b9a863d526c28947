// Package storage manages the local directory layout for downloaded media:
// a temp area for in-flight downloads, a processed area for completed files,
// and log/credential directories. Files move from temp to processed only
// after a non-empty size check.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Sentinel errors for promote failures.
var (
	// ErrFileMissing indicates the downloaded file was not found on disk.
	ErrFileMissing = errors.New("storage: downloaded file not found")
	// ErrFileEmpty indicates the downloaded file has zero size.
	ErrFileEmpty = errors.New("storage: downloaded file is empty")
)

// Layout describes the on-disk directory structure rooted at a data dir.
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// VideoDir is the parent of the temp and processed areas.
func (l Layout) VideoDir() string { return filepath.Join(l.Root, "videos") }

// TempDir holds in-flight downloads.
func (l Layout) TempDir() string { return filepath.Join(l.VideoDir(), "temp") }

// ProcessedDir holds completed downloads.
func (l Layout) ProcessedDir() string { return filepath.Join(l.VideoDir(), "processed") }

// LogDir holds application log files.
func (l Layout) LogDir() string { return filepath.Join(l.Root, "logs") }

// CredentialsDir holds the Google service account file.
func (l Layout) CredentialsDir() string { return filepath.Join(l.Root, "credentials") }

// Init creates every layout directory that does not yet exist.
func (l Layout) Init() error {
	dirs := []string{l.TempDir(), l.ProcessedDir(), l.LogDir(), l.CredentialsDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// MediaFilename builds the canonical media filename for a video.
func MediaFilename(title, videoID string) string {
	return fmt.Sprintf("%s_%s.mp4", SanitizeFilename(title), videoID)
}

// TempPath returns a unique path in the temp area for an in-flight download.
// A random suffix keeps overlapping manual runs from clobbering each other.
func (l Layout) TempPath(title, videoID string) string {
	suffix := uuid.NewString()[:8]
	name := fmt.Sprintf("%s_%s.%s.mp4", SanitizeFilename(title), videoID, suffix)
	return filepath.Join(l.TempDir(), name)
}

// ProcessedPath returns the final path for a completed download.
func (l Layout) ProcessedPath(title, videoID string) string {
	return filepath.Join(l.ProcessedDir(), MediaFilename(title, videoID))
}

// Promote moves a completed download from tempPath to finalPath.
// It refuses to promote missing or zero-byte files.
func (l Layout) Promote(tempPath, finalPath string) error {
	info, err := os.Stat(tempPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrFileMissing
		}
		return fmt.Errorf("stat %s: %w", tempPath, err)
	}
	if info.Size() == 0 {
		return ErrFileEmpty
	}
	if err := os.MkdirAll(filepath.Dir(finalPath), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(finalPath), err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("promote %s: %w", tempPath, err)
	}
	return nil
}

// Remove deletes a media file, treating a missing file as success.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

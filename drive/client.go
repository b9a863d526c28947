// Package drive uploads processed media files to a Google Drive folder.
package drive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"ytvault/progress"
)

const videoMimeType = "video/mp4"

// UploadError wraps Drive failures with the operation that failed.
type UploadError struct {
	// Op is the operation that failed ("upload", "delete", "get info").
	Op string
	// Name is the display name or file ID involved.
	Name string
	// Err is the underlying error.
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("drive: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// FileInfo describes a stored Drive file.
type FileInfo struct {
	ID          string
	Name        string
	MimeType    string
	Size        int64
	CreatedTime time.Time
}

// Client uploads files into a fixed Drive folder using chunked resumable
// uploads.
type Client struct {
	svc       *gdrive.Service
	folderID  string
	chunkSize int
	log       logrus.FieldLogger
}

// NewClient creates a Drive client targeting the given parent folder.
// chunkSize is the resumable upload chunk size in bytes.
func NewClient(ctx context.Context, folderID string, chunkSize int, log logrus.FieldLogger, opts ...option.ClientOption) (*Client, error) {
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, &UploadError{Op: "init", Err: err}
	}
	if chunkSize < googleapi.MinUploadChunkSize {
		chunkSize = googleapi.MinUploadChunkSize
	}
	return &Client{
		svc:       svc,
		folderID:  folderID,
		chunkSize: chunkSize,
		log:       log,
	}, nil
}

// Upload sends the file at path to the client's folder under displayName and
// returns the new file ID. onProgress receives the completed fraction after
// each transport chunk; repeats of the same value are possible.
func (c *Client) Upload(ctx context.Context, path, displayName string, onProgress progress.Func) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", &UploadError{Op: "upload", Name: displayName, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", &UploadError{Op: "upload", Name: displayName, Err: err}
	}
	size := info.Size()

	meta := &gdrive.File{
		Name:    displayName,
		Parents: []string{c.folderID},
	}

	c.log.WithFields(logrus.Fields{
		"name": displayName,
		"size": size,
	}).Info("drive: starting upload")

	call := c.svc.Files.Create(meta).
		Fields("id").
		Media(f, googleapi.ChunkSize(c.chunkSize), googleapi.ContentType(videoMimeType)).
		Context(ctx)

	if onProgress != nil {
		call.ProgressUpdater(func(current, total int64) {
			if total <= 0 {
				total = size
			}
			if total > 0 {
				onProgress(float64(current) / float64(total))
			}
		})
	}

	created, err := call.Do()
	if err != nil {
		return "", &UploadError{Op: "upload", Name: displayName, Err: err}
	}
	if created.Id == "" {
		return "", &UploadError{Op: "upload", Name: displayName, Err: errors.New("no file ID in response")}
	}

	if onProgress != nil {
		onProgress(1)
	}
	c.log.WithField("file_id", created.Id).Info("drive: upload complete")
	return created.Id, nil
}

// Delete removes a file from Drive.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	if err := c.svc.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return &UploadError{Op: "delete", Name: fileID, Err: err}
	}
	return nil
}

// GetInfo fetches name, type, size and creation time for a stored file.
func (c *Client) GetInfo(ctx context.Context, fileID string) (*FileInfo, error) {
	f, err := c.svc.Files.Get(fileID).
		Fields("id", "name", "mimeType", "size", "createdTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &UploadError{Op: "get info", Name: fileID, Err: err}
	}

	info := &FileInfo{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Size:     f.Size,
	}
	if f.CreatedTime != "" {
		if ts, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
			info.CreatedTime = ts
		}
	}
	return info, nil
}

package youtube

import (
	"errors"
	"fmt"
)

// Sentinel errors for metadata and download operations.
var (
	ErrInvalidVideoID    = errors.New("youtube: invalid video ID")
	ErrVideoUnavailable  = errors.New("youtube: video unavailable")
	ErrVideoPrivate      = errors.New("youtube: video is private")
	ErrAgeRestricted     = errors.New("youtube: video is age-restricted")
	ErrLiveStream        = errors.New("youtube: live streams are not supported")
	ErrPlaylist          = errors.New("youtube: URL refers to a playlist, not a single video")
	ErrNoFormats         = errors.New("youtube: no suitable video formats found")
	ErrUnsupportedURL    = errors.New("youtube: URL is not supported")
	ErrEmptyMetadata     = errors.New("youtube: metadata is missing required fields")
	ErrYtdlpNotInstalled = errors.New("youtube: yt-dlp not installed")
)

// FetchError wraps metadata and download failures with context about which
// video and operation failed. Use errors.As() to extract it:
//
//	var fetchErr *youtube.FetchError
//	if errors.As(err, &fetchErr) {
//		fmt.Printf("%s failed for %s: %v\n", fetchErr.Op, fetchErr.VideoID, fetchErr.Err)
//	}
type FetchError struct {
	// Op is the operation that failed ("metadata", "download").
	Op string
	// VideoID is the video being fetched.
	VideoID string
	// Err is the underlying error.
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("youtube: %s %s: %v", e.Op, e.VideoID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

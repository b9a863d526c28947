package pipeline

import "fmt"

// Kind classifies a processing failure by the stage responsible for it.
type Kind int

const (
	// KindValidation covers malformed URLs and video IDs.
	KindValidation Kind = iota
	// KindConfiguration covers missing or inconsistent runtime setup.
	KindConfiguration
	// KindUnsupportedContent covers playlists, live streams and
	// age-restricted videos.
	KindUnsupportedContent
	// KindDownload covers metadata fetch and media download failures.
	KindDownload
	// KindUpload covers Drive upload failures.
	KindUpload
	// KindTracking covers spreadsheet failures.
	KindTracking
	// KindProcessing covers local file handling failures.
	KindProcessing
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConfiguration:
		return "configuration"
	case KindUnsupportedContent:
		return "unsupported content"
	case KindDownload:
		return "download"
	case KindUpload:
		return "upload"
	case KindTracking:
		return "tracking"
	case KindProcessing:
		return "processing"
	default:
		return "unknown"
	}
}

// Error is a processing failure attributed to a pipeline stage.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// Stage names the step that failed.
	Stage string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newError wraps err as a pipeline failure of the given kind.
func newError(kind Kind, stage string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Err: err}
}

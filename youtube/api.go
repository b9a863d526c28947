package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"ytvault/retry"
)

// APIFetcher implements MetadataFetcher using YouTube Data API v3.
// When a fallback fetcher is set, API failures degrade to it instead of
// failing the processing attempt.
type APIFetcher struct {
	service  *ytapi.Service
	fallback MetadataFetcher

	// RetryConfig holds retry behavior configuration.
	RetryConfig *retry.Config

	mu         sync.Mutex
	categories map[string]string // category ID -> display name
}

// NewAPIFetcher creates a Data API backed metadata fetcher.
func NewAPIFetcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*APIFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube: api key required")
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := ytapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	cfg := retry.DefaultConfig()
	return &APIFetcher{
		service:     service,
		RetryConfig: &cfg,
		categories:  make(map[string]string),
	}, nil
}

// SetFallback sets the fetcher used when the API call fails.
func (a *APIFetcher) SetFallback(f MetadataFetcher) {
	a.fallback = f
}

// FetchMetadata retrieves metadata via videos.list, resolving the category
// ID to its display name. Unsupported content is rejected with the same
// sentinels the yt-dlp fetcher uses.
func (a *APIFetcher) FetchMetadata(ctx context.Context, videoID string) (*Metadata, error) {
	meta, err := a.fetchFromAPI(ctx, videoID)
	if err == nil {
		return meta, nil
	}

	// Content rejections are definitive; only transport-level failures
	// degrade to the fallback fetcher.
	if isContentError(err) || a.fallback == nil {
		return nil, err
	}
	return a.fallback.FetchMetadata(ctx, videoID)
}

func (a *APIFetcher) fetchFromAPI(ctx context.Context, videoID string) (*Metadata, error) {
	var item *ytapi.Video

	cfg := a.retryConfig()
	err := retry.Do(ctx, cfg, apiErrorClassifier, func(ctx context.Context) error {
		call := a.service.Videos.List([]string{"snippet", "contentDetails", "status"}).
			Id(videoID).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 {
			return ErrVideoUnavailable
		}
		item = resp.Items[0]
		return nil
	})
	if err != nil {
		return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: err}
	}

	if item.Snippet == nil || item.Snippet.Title == "" {
		return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: ErrEmptyMetadata}
	}
	if item.Snippet.LiveBroadcastContent == "live" || item.Snippet.LiveBroadcastContent == "upcoming" {
		return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: ErrLiveStream}
	}
	if item.Status != nil && item.Status.PrivacyStatus == "private" {
		return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: ErrVideoPrivate}
	}
	if item.ContentDetails != nil && item.ContentDetails.ContentRating != nil &&
		item.ContentDetails.ContentRating.YtRating == "ytAgeRestricted" {
		return nil, &FetchError{Op: "metadata", VideoID: videoID, Err: ErrAgeRestricted}
	}

	meta := &Metadata{
		ID:          videoID,
		Title:       item.Snippet.Title,
		Description: item.Snippet.Description,
		Tags:        item.Snippet.Tags,
		Thumbnail:   bestThumbnail(item.Snippet.Thumbnails),
	}
	if item.ContentDetails != nil {
		meta.Duration = parseISODuration(item.ContentDetails.Duration)
	}
	if item.Snippet.CategoryId != "" {
		name, err := a.categoryName(ctx, item.Snippet.CategoryId)
		if err == nil {
			meta.Category = name
		}
	}
	return meta, nil
}

// categoryName resolves a numeric category ID to its display name,
// caching results for the lifetime of the fetcher.
func (a *APIFetcher) categoryName(ctx context.Context, categoryID string) (string, error) {
	a.mu.Lock()
	if name, ok := a.categories[categoryID]; ok {
		a.mu.Unlock()
		return name, nil
	}
	a.mu.Unlock()

	var name string
	cfg := a.retryConfig()
	err := retry.Do(ctx, cfg, apiErrorClassifier, func(ctx context.Context) error {
		resp, err := a.service.VideoCategories.List([]string{"snippet"}).
			Id(categoryID).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
			return fmt.Errorf("youtube: unknown category %q", categoryID)
		}
		name = resp.Items[0].Snippet.Title
		return nil
	})
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.categories[categoryID] = name
	a.mu.Unlock()
	return name, nil
}

func (a *APIFetcher) retryConfig() retry.Config {
	if a.RetryConfig != nil {
		return *a.RetryConfig
	}
	return retry.DefaultConfig()
}

// bestThumbnail returns the highest-resolution thumbnail URL available.
func bestThumbnail(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*ytapi.Thumbnail{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

// parseISODuration converts an ISO 8601 duration like "PT1H2M3S".
func parseISODuration(s string) time.Duration {
	s = strings.TrimPrefix(s, "P")
	s = strings.Replace(s, "T", "", 1)
	s = strings.ToLower(s)
	// Days are rare for videos but the API can report them.
	if i := strings.IndexByte(s, 'd'); i >= 0 {
		days, err := time.ParseDuration(s[:i] + "h")
		rest, restErr := parseHMS(s[i+1:])
		if err == nil && restErr == nil {
			return days*24 + rest
		}
		return 0
	}
	d, err := parseHMS(s)
	if err != nil {
		return 0
	}
	return d
}

func parseHMS(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// isContentError reports whether err is a definitive statement about the
// video rather than a transient API failure.
func isContentError(err error) bool {
	return errors.Is(err, ErrVideoUnavailable) ||
		errors.Is(err, ErrVideoPrivate) ||
		errors.Is(err, ErrAgeRestricted) ||
		errors.Is(err, ErrLiveStream) ||
		errors.Is(err, ErrEmptyMetadata)
}

// apiErrorClassifier determines if a Data API error is retryable.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}
	if isContentError(err) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if strings.Contains(err.Error(), "quotaExceeded") ||
		strings.Contains(err.Error(), "rateLimitExceeded") {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Default to retryable for unknown errors
	return true
}

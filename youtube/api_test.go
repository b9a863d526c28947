package youtube

import (
	"testing"
	"time"

	ytapi "google.golang.org/api/youtube/v3"
)

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"PT3M32S", 3*time.Minute + 32*time.Second},
		{"PT1H2M3S", time.Hour + 2*time.Minute + 3*time.Second},
		{"PT45S", 45 * time.Second},
		{"PT2H", 2 * time.Hour},
		{"P1DT2H", 26 * time.Hour},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseISODuration(tt.input); got != tt.want {
				t.Errorf("parseISODuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBestThumbnail(t *testing.T) {
	tests := []struct {
		name string
		in   *ytapi.ThumbnailDetails
		want string
	}{
		{"nil details", nil, ""},
		{
			name: "prefers maxres",
			in: &ytapi.ThumbnailDetails{
				Maxres:  &ytapi.Thumbnail{Url: "maxres"},
				Default: &ytapi.Thumbnail{Url: "default"},
			},
			want: "maxres",
		},
		{
			name: "falls back to high",
			in: &ytapi.ThumbnailDetails{
				High:    &ytapi.Thumbnail{Url: "high"},
				Default: &ytapi.Thumbnail{Url: "default"},
			},
			want: "high",
		},
		{
			name: "default only",
			in:   &ytapi.ThumbnailDetails{Default: &ytapi.Thumbnail{Url: "default"}},
			want: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestThumbnail(tt.in); got != tt.want {
				t.Errorf("bestThumbnail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsContentError(t *testing.T) {
	if !isContentError(&FetchError{Op: "metadata", VideoID: "x", Err: ErrLiveStream}) {
		t.Error("isContentError() = false for wrapped ErrLiveStream, want true")
	}
	if isContentError(ErrYtdlpNotInstalled) {
		t.Error("isContentError(ErrYtdlpNotInstalled) = true, want false")
	}
}

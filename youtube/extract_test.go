package youtube

import (
	"errors"
	"testing"
)

func TestExtractVideoID_BareID(t *testing.T) {
	ids := []string{
		"dQw4w9WgXcQ",
		"abcDEF123-_",
		"___________",
		"00000000000",
	}
	for _, id := range ids {
		got, err := ExtractVideoID(id)
		if err != nil {
			t.Errorf("ExtractVideoID(%q) error = %v", id, err)
			continue
		}
		if got != id {
			t.Errorf("ExtractVideoID(%q) = %q, want unchanged", id, got)
		}
	}
}

func TestExtractVideoID_URLShapes(t *testing.T) {
	const want = "dQw4w9WgXcQ"
	tests := []struct {
		name  string
		input string
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"watch with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s&list=PLx"},
		{"watch apex host", "https://youtube.com/watch?v=dQw4w9WgXcQ"},
		{"watch mobile host", "https://m.youtube.com/watch?v=dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ"},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?t=10"},
		{"shorts", "https://www.youtube.com/shorts/dQw4w9WgXcQ"},
		{"shorts with query", "https://www.youtube.com/shorts/dQw4w9WgXcQ?feature=share"},
		{"embed", "https://www.youtube.com/embed/dQw4w9WgXcQ"},
		{"legacy v path", "https://www.youtube.com/v/dQw4w9WgXcQ?version=3"},
		{"surrounding whitespace", "  https://youtu.be/dQw4w9WgXcQ  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.input)
			if err != nil {
				t.Fatalf("ExtractVideoID(%q) error = %v", tt.input, err)
			}
			if got != want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.input, got, want)
			}
		})
	}
}

func TestExtractVideoID_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"too short", "dQw4w9WgXc"},
		{"too long", "dQw4w9WgXcQQ"},
		{"bad character", "dQw4w9WgXc!"},
		{"unrecognized host", "https://vimeo.com/123456789"},
		{"watch without v param", "https://www.youtube.com/watch?list=PLx"},
		{"channel path", "https://www.youtube.com/channel/UCuAXFkgsw1L7xaCfnd5JJOw"},
		{"short link no path", "https://youtu.be/"},
		{"shorts with malformed id", "https://www.youtube.com/shorts/tooShort"},
		{"embed with extra segment id", "https://www.youtube.com/embed/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractVideoID(tt.input)
			if !errors.Is(err, ErrInvalidVideoID) {
				t.Errorf("ExtractVideoID(%q) error = %v, want ErrInvalidVideoID", tt.input, err)
			}
		})
	}
}

func TestWatchURL(t *testing.T) {
	got := WatchURL("dQw4w9WgXcQ")
	want := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	if got != want {
		t.Errorf("WatchURL() = %q, want %q", got, want)
	}
}

package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// videoIDRegex matches a bare YouTube video ID.
var videoIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ExtractVideoID parses user input into an 11-character video ID.
//
// Accepted shapes: a bare ID, youtu.be short links, and youtube.com
// /watch, /shorts/, /embed/ and /v/ URLs (apex, www and m subdomains).
// The extracted value is re-validated against the ID character class, so
// URLs that superficially match but carry a malformed ID still fail.
func ExtractVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDRegex.MatchString(input) {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidVideoID, input)
	}

	var id string
	switch strings.ToLower(u.Hostname()) {
	case "youtu.be":
		id = strings.TrimPrefix(u.Path, "/")
		if i := strings.IndexByte(id, '/'); i >= 0 {
			id = id[:i]
		}
	case "youtube.com", "www.youtube.com", "m.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.Contains(u.Path, "/shorts/"):
			id = segmentAfter(u.Path, "/shorts/")
		case strings.Contains(u.Path, "/embed/"):
			id = segmentAfter(u.Path, "/embed/")
		case strings.Contains(u.Path, "/v/"):
			id = segmentAfter(u.Path, "/v/")
		}
	}

	if !videoIDRegex.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVideoID, input)
	}
	return id, nil
}

// segmentAfter returns the path segment immediately following marker,
// stripped of any trailing segments or query remnants.
func segmentAfter(path, marker string) string {
	_, rest, ok := strings.Cut(path, marker)
	if !ok {
		return ""
	}
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

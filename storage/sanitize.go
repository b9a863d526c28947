package storage

import (
	"regexp"
	"strings"
)

const (
	// maxFilenameLen bounds the sanitized title; the video ID and extension
	// are appended separately by the layout helpers.
	maxFilenameLen = 200
	truncateKeep   = 196
)

// forbiddenChars are rejected by at least one major filesystem.
const forbiddenChars = `<>:"/\|?*`

var underscoreRuns = regexp.MustCompile(`_+`)

// SanitizeFilename maps an arbitrary title to a safe filename component.
// Forbidden and non-printable-ASCII characters become underscores (replaced,
// not dropped, so position and length survive for truncation), underscore
// runs collapse, edges lose stray dots and spaces, and overlong results are
// truncated with a trailing ellipsis. Total and idempotent.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case strings.ContainsRune(forbiddenChars, r):
			b.WriteByte('_')
		case r < 0x20 || r > 0x7e:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	s := underscoreRuns.ReplaceAllString(b.String(), "_")
	s = trimEdges(s)

	if len(s) > maxFilenameLen {
		s = strings.TrimRight(s[:truncateKeep], ". ") + "..."
	}
	return s
}

// trimEdges strips leading and trailing dots and spaces. A trailing run of
// exactly three dots is kept: that is the truncation ellipsis, and removing
// it would make sanitization non-idempotent for long titles.
func trimEdges(s string) string {
	s = strings.TrimLeft(s, ". ")
	trimmed := strings.TrimRight(s, ". ")
	if s[len(trimmed):] == "..." {
		return s
	}
	return trimmed
}

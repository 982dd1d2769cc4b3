// Package redact strips privacy-marked spans from text before any
// persistence step sees it.
package redact

import "strings"

const (
	// OpenMarker begins a privacy-marked span.
	OpenMarker = "[PRIVATE]"
	// CloseMarker ends a privacy-marked span.
	CloseMarker = "[/PRIVATE]"
)

// Strip removes every [PRIVATE]...[/PRIVATE] span from s, including the
// markers. An opening marker without a matching close strips to the end of
// the string, so partially marked content is never leaked. The surrounding
// text is left untouched.
func Strip(s string) string {
	if !strings.Contains(s, OpenMarker) {
		return s
	}

	var b strings.Builder
	for {
		open := strings.Index(s, OpenMarker)
		if open < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:open])
		rest := s[open+len(OpenMarker):]
		end := strings.Index(rest, CloseMarker)
		if end < 0 {
			break
		}
		s = rest[end+len(CloseMarker):]
	}
	return b.String()
}

// StripAll applies Strip to each element, returning a new slice with
// empty results dropped.
func StripAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if stripped := strings.TrimSpace(Strip(s)); stripped != "" {
			out = append(out, stripped)
		}
	}
	return out
}

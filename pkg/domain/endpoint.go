package domain

import "strings"

// NormalizeEndpoint canonicalizes a remote peer URL so selector inputs and
// dispatch targets compare equal: trimmed, scheme defaulted to http, no
// trailing slash.
func NormalizeEndpoint(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return s
	}
	if !strings.Contains(s, "://") {
		s = "http://" + s
	}
	return strings.TrimRight(s, "/")
}

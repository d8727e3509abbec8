package normalize

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Code trims whitespace, uppercases, and strips non-alphanumeric characters.
// An empty result means the code is absent.
func Code(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}

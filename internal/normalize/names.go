package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Name lowercases, collapses whitespace, and trims the input.
func Name(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	return multiSpace.ReplaceAllString(strings.ToLower(s), " ")
}

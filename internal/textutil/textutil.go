// Package textutil cleans and truncates free text coming from catalogs and
// manifests.
package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

var tagRe = regexp.MustCompile(`<[^>]*>`)

// Ellipsis is appended to truncated text.
const Ellipsis = "..."

// Clean strips HTML tags, decodes entities and collapses whitespace.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most max runes, ending with Ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	if max <= len(Ellipsis) {
		return string(r[:max])
	}
	return strings.TrimRight(string(r[:max-len(Ellipsis)]), " ") + Ellipsis
}

// Package sanitize cleans free text that arrives from exports and web forms.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

var tagRegex = regexp.MustCompile(`<[^>]*>`)

// Text strips HTML tags, decodes entities, drops control characters and
// collapses runs of whitespace to a single space.
func Text(s string) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	// Entities may have encoded tags.
	s = tagRegex.ReplaceAllString(s, "")

	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Map applies Text to every value. A nil map stays nil.
func Map(values map[string]string) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = Text(v)
	}
	return out
}

package dedup

import (
	"strings"
	"unicode"

	"crm_backend/platform/phone"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName lower-cases, strips diacritics and removes all whitespace,
// so "Marco Rossi", "marco  rossi" and "Màrco Rossi" compare equal.
func NormalizeName(name string) string {
	lowered := strings.ToLower(strings.TrimSpace(name))
	if lowered == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	stripped, _, err := transform.String(t, lowered)
	if err != nil {
		stripped = lowered
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone keeps the last 10 digits of a phone number.
func NormalizePhone(raw string) string {
	return phone.MatchKey(raw)
}

// key is the comparable form of a lead.
type key struct {
	name  string
	phone string
}

func keyOf(name, rawPhone string) key {
	return key{name: NormalizeName(name), phone: NormalizePhone(rawPhone)}
}

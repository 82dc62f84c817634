package domain

import (
	"strings"
	"unicode/utf8"
)

// SanitizeText strips invalid UTF-8 sequences and ASCII control characters
// (other than tab and newline) from s. Malformed CMS content must not
// corrupt a request body or crash serialization.
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' {
			continue
		}
		if r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeValue walks an arbitrary JSON-bound value and sanitizes every
// string in it, including map keys.
func SanitizeValue(v any) any {
	switch t := v.(type) {
	case string:
		return SanitizeText(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[SanitizeText(k)] = SanitizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = SanitizeValue(val)
		}
		return out
	default:
		return v
	}
}

// ValidText reports whether s is well-formed UTF-8.
func ValidText(s string) bool {
	return utf8.ValidString(s)
}

package textutil

import "strings"

// SanitizeFileName makes name safe to use as a filename. Path separators,
// colons, and asterisks become dashes; the remaining reserved characters
// are dropped. Surrounding whitespace is trimmed.
func SanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(mapped)
}

// SanitizeToken reduces value to a lowercase token usable in directory
// names. Anything outside [a-z0-9_-] becomes an underscore; a value with
// nothing left yields "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.ToLower(strings.TrimSpace(value)))
	token = strings.Trim(token, "_-")
	if token == "" {
		return "unknown"
	}
	return token
}

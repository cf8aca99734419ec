// Package normalize holds the canonical-form helpers applied to free-text
// identifiers before uniqueness checks and storage.
package normalize

import "strings"

// CPFCNPJ strips everything but digits from a Brazilian tax identifier,
// so "470.223.910-41" and "47022391041" compare equal.
func CPFCNPJ(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Plate keeps letters and digits only and upper-cases them,
// so "ppw-1020" and "PPW1020" compare equal.
func Plate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Upper trims surrounding whitespace and upper-cases the rest. Applied to
// names and descriptions so lookups and reports are case-insensitive.
func Upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

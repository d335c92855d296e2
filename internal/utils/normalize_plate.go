package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate reduces an officer-entered VRN to its comparison key:
// upper-case letters and digits only, so "abc 1234" and "ABC-1234" match.
func NormalizePlate(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToUpper(r)
		}
		return -1
	}, raw)
}

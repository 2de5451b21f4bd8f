package types

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// NormalizePlate folds full-width characters to ASCII, upper-cases, and
// drops whitespace and separators, so "１２３４ abc" and "1234-ABC" both
// become "1234ABC".
func NormalizePlate(s string) string {
	s = width.Fold.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

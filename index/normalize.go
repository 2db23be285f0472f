package index

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize maps a name to its lookup key: NFKC, case folded, every dash
// variant turned into '-', and whitespace runs collapsed to one space.
func Normalize(s string) string {
	s = cases.Fold().String(norm.NFKC.String(s))

	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = sb.Len() > 0
			continue
		case unicode.Is(unicode.Pd, r):
			r = '-'
		}
		if space {
			sb.WriteByte(' ')
			space = false
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

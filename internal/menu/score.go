package menu

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// partialWeight discounts a match found on a sub-window of a longer name so
// that a full-name match always wins over a partial one of equal quality.
const partialWeight = 0.9

// Normalize lowercases s, drops punctuation and collapses whitespace.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	space := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			space = false
		case !space:
			b.WriteByte(' ')
			space = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Score rates how close candidate is to name on a 0..100 scale.
//
// The full-string edit ratio is compared against the best ratio over any
// run of consecutive words in the longer of the two with the word count of
// the shorter, so "biryani" scores well against "Chicken Biryani" and
// "large coke" against "Coke".
func Score(candidate, name string) float64 {
	c, n := Normalize(candidate), Normalize(name)
	if c == "" || n == "" {
		return 0
	}
	if c == n {
		return 100
	}

	best := ratio(c, n)

	short, long := c, n
	if len(strings.Fields(c)) > len(strings.Fields(n)) {
		short, long = n, c
	}
	sw, lw := strings.Fields(short), strings.Fields(long)
	if len(sw) < len(lw) {
		for i := 0; i+len(sw) <= len(lw); i++ {
			window := strings.Join(lw[i:i+len(sw)], " ")
			if p := partialWeight * ratio(short, window); p > best {
				best = p
			}
		}
	}

	return best
}

func ratio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}

	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

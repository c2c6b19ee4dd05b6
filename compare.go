package upatch

import (
	"strings"
	"unicode/utf8"
)

// LineComparator reports whether a target line matches a hunk line.
type LineComparator func(a, b string) bool

func ExactCompare(a, b string) bool { return a == b }

// LooseCompare matches lines that differ only in ASCII whitespace.
func LooseCompare(a, b string) bool {
	i, j := 0, 0
	for {
		for i < len(a) && isSpace(a[i]) {
			i++
		}
		for j < len(b) && isSpace(b[j]) {
			j++
		}
		if i == len(a) || j == len(b) {
			return i == len(a) && j == len(b)
		}
		if a[i] != b[j] {
			return false
		}
		i++
		j++
	}
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isSpaceRune(r rune) bool {
	return r < utf8.RuneSelf && isSpace(byte(r))
}

// nonTrivial reports whether a line carries at least two characters of
// content after its indentation with the second not being whitespace, so
// that lone braces and blank lines do not count as anchors.
func nonTrivial(text string) bool {
	rest := strings.TrimLeftFunc(text, isSpaceRune)
	_, n := utf8.DecodeRuneInString(rest)
	if n == 0 {
		return false
	}
	r, m := utf8.DecodeRuneInString(rest[n:])
	return m > 0 && !isSpaceRune(r)
}

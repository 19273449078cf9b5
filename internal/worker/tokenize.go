package worker

import (
	"iter"
	"strings"
)

// Normalize returns line unchanged when caseSensitive, lower-cased otherwise.
func Normalize(line string, caseSensitive bool) string {
	if caseSensitive {
		return line
	}
	return strings.ToLower(line)
}

func isDelimiter(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}

// Tokens yields the whitespace-separated tokens of line lazily, left to
// right. Delimiters are space, tab, newline, carriage return and form feed.
func Tokens(line string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range line {
			if isDelimiter(r) {
				if start >= 0 {
					if !yield(line[start:i]) {
						return
					}
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			yield(line[start:])
		}
	}
}

// Package similarity turns node text into token sets and scores pairs of them.
package similarity

import (
	"strings"
	"unicode"
)

// MaxTextRunes bounds the text considered per node so the quadratic edge
// scan stays tractable for long documents.
const MaxTextRunes = 4000

// Set is an unordered set of tokens.
type Set map[string]struct{}

// Normalize lowercases, collapses whitespace runs to a single space and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Truncate cuts text to at most n runes.
func Truncate(text string, n int) string {
	if len(text) <= n {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// Tokenize splits the bounded, normalized text on non-word characters.
func Tokenize(text string) Set {
	norm := Normalize(Truncate(text, MaxTextRunes))
	words := strings.FieldsFunc(norm, func(r rune) bool {
		return !isWordRune(r)
	})
	set := make(Set, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Bigrams returns the character bigrams of the bounded, normalized text.
func Bigrams(text string) Set {
	runes := []rune(Normalize(Truncate(text, MaxTextRunes)))
	if len(runes) < 2 {
		return Set{}
	}
	set := make(Set, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = struct{}{}
	}
	return set
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

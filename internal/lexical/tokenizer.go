package lexical

import (
	"regexp"
	"strings"
)

var nonWordRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Tokenize lowercases text and splits it on anything that is not a letter
// or a digit. Documents and queries go through the same function.
func Tokenize(text string) []string {
	split := nonWordRegex.Split(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(split))
	for _, s := range split {
		if s != "" {
			tokens = append(tokens, s)
		}
	}
	return tokens
}

// uniqueTerms returns tokens without duplicates, first occurrence order.
func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

package match

import "strings"

// Normalizer maps an attribute to the key it is compared by. Two attributes
// match when their keys are equal.
type Normalizer interface {
	Normalize(attr string) string
}

// NormalizerFunc adapts a function to Normalizer.
type NormalizerFunc func(attr string) string

// Normalize calls f.
func (f NormalizerFunc) Normalize(attr string) string {
	return f(attr)
}

// exact compares attributes as written, ignoring surrounding whitespace.
var exact = NormalizerFunc(strings.TrimSpace)

// AliasNormalizer folds case and resolves aliases such as "JS" to
// "javascript".
type AliasNormalizer struct {
	aliases map[string]string
}

// NewAliasNormalizer builds an AliasNormalizer. Alias keys and values are
// case-folded.
func NewAliasNormalizer(aliases map[string]string) *AliasNormalizer {
	table := make(map[string]string, len(aliases))
	for k, v := range aliases {
		table[fold(k)] = fold(v)
	}
	return &AliasNormalizer{aliases: table}
}

// Normalize implements Normalizer.
func (a *AliasNormalizer) Normalize(attr string) string {
	key := fold(attr)
	if canonical, ok := a.aliases[key]; ok {
		return canonical
	}
	return key
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

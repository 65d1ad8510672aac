package normalize

import (
	"strings"
	"unicode"
)

// TitleForComparison lowercases title, replaces every non-alphanumeric
// (including punctuation and whitespace) run with a single space, and trims
// the result.
func TitleForComparison(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	spacePending := false

	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			spacePending = false
			continue
		}
		if !spacePending {
			b.WriteByte(' ')
			spacePending = true
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// TitleSignature is the normalized comparison string plus the set of its
// tokens of length >= 2, used for Jaccard similarity.
type TitleSignature struct {
	Normalized string
	Tokens     map[string]struct{}
}

// PrepareTitleSignature builds a TitleSignature for title.
func PrepareTitleSignature(title string) TitleSignature {
	normalized := TitleForComparison(title)
	tokens := make(map[string]struct{})
	for _, token := range strings.Fields(normalized) {
		if len(token) >= 2 {
			tokens[token] = struct{}{}
		}
	}
	return TitleSignature{Normalized: normalized, Tokens: tokens}
}

// JaccardSimilarity returns the Jaccard index of two token sets, or 0 if
// either is empty.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for token := range a {
		if _, ok := b[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

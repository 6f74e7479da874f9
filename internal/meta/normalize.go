package meta

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName folds a free-text artist, album or genre name into its
// lookup key: compatibility-decomposed, case-folded, stripped of
// combining marks, recomposed, with whitespace collapsed and a trailing
// ", The" article moved to the front. Blank input yields "".
//
// NormalizeName(NormalizeName(s)) == NormalizeName(s) for every s.
func NormalizeName(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	// Transformers and casers are stateful, so build a fresh chain per call
	t := transform.Chain(
		norm.NFKD,
		cases.Fold(),
		norm.NFKD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	s, _, err := transform.String(t, name)
	if err != nil {
		s = strings.ToLower(name)
	}

	s = collapseWhitespace(s)

	for len(s) > len(", the") && strings.HasSuffix(s, ", the") {
		s = "the " + strings.TrimSpace(strings.TrimSuffix(s, ", the"))
	}

	return s
}

// collapseWhitespace trims s and replaces runs of whitespace with one space
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

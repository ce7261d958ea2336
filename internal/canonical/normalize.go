// Package canonical resolves cross-source identity for measures and
// officials. The bias is under-merge: when in doubt, two records stay two
// records.
package canonical

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// measureNumberPrefix strips leading bill designators so "H.R. 1234 -
	// Clean Water Act" and "Clean Water Act" normalize to the same text.
	measureNumberPrefix = regexp.MustCompile(`^(h\.? ?r\.?|s\.?|h\.? ?b\.?|s\.? ?b\.?|h\.? ?j\.? ?res\.?|s\.? ?j\.? ?res\.?|res(olution)?\.?|ord(inance)?\.?)\s*\.?\s*[0-9]+(?:[-–][0-9]+)?[a-z]?\s*[-–:]?\s*`)
	nonAlnum            = regexp.MustCompile(`[^a-z0-9 ]+`)
	multiSpace          = regexp.MustCompile(`\s+`)

	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// NormalizeTitle lowercases, strips diacritics, drops measure-number
// prefixes and punctuation, and collapses whitespace.
func NormalizeTitle(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = measureNumberPrefix.ReplaceAllString(s, "")
	s = nonAlnum.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TitleSimilarity returns a similarity in [0,1] between two titles after
// normalization. Empty normalized titles never match anything.
func TitleSimilarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	return levenshtein.Similarity(na, nb, nil)
}

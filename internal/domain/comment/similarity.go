package comment

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultSubstringBoost is the score floor given to a pair where one text
// contains the other.
const DefaultSubstringBoost = 0.7

// Matcher scores the textual similarity of two comments on a 0–100 scale
// using token-set Jaccard similarity.
type Matcher struct {
	// SubstringBoost lifts the Jaccard ratio of a containment pair to at
	// least this value.  It favours comments that were expanded between
	// revisions but can over-score pairs of very different length.
	SubstringBoost float64
}

// NewMatcher returns a Matcher with the given substring boost.  A boost
// outside [0,1] falls back to DefaultSubstringBoost.
func NewMatcher(substringBoost float64) Matcher {
	if substringBoost < 0 || substringBoost > 1 {
		substringBoost = DefaultSubstringBoost
	}
	return Matcher{SubstringBoost: substringBoost}
}

// Similarity scores a and b with the default substring boost.
func Similarity(a, b string) float64 {
	return Matcher{SubstringBoost: DefaultSubstringBoost}.Similarity(a, b)
}

// Similarity returns a score in [0,100] rounded to two decimals.  Identical
// texts score 100, two empty ones included; otherwise a text that is empty
// after trimming scores 0.
func (m Matcher) Similarity(a, b string) float64 {
	a, b = canonical(a), canonical(b)
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	ta, tb := tokenSet(a), tokenSet(b)
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	jaccard := float64(inter) / float64(union)

	if strings.Contains(a, b) || strings.Contains(b, a) {
		jaccard = math.Max(jaccard, m.SubstringBoost)
	}
	return math.Round(jaccard*10000) / 100
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

//Personal.AI order the ending

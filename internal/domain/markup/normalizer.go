package markup

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ---------------------------------------------------------------------------
// Annotation labels
// ---------------------------------------------------------------------------

// AnnotationLabels are the tool labels that PDF editors prepend to exported
// annotation text, longest first so "Text Box" is tried before "Text".
var AnnotationLabels = []string{
	"Text Box", "Call Out", "Free Text", "Highlight", "Rectangle",
	"Callout", "Ellipse", "Note", "Line",
}

var (
	authoredLabelRes []*regexp.Regexp
	bareLabelRes     []*regexp.Regexp
	whitespaceRe     = regexp.MustCompile(`\s+`)
)

func init() {
	for _, label := range AnnotationLabels {
		l := regexp.QuoteMeta(label)
		authoredLabelRes = append(authoredLabelRes, regexp.MustCompile(
			`^(?:(?:Mr|Mrs|Ms|Dr|Eng|Engr)\.?\s+)?[A-Z][a-zA-Z'-]+\s+[A-Z][a-zA-Z'-]+(?:\s+[A-Z][a-zA-Z'-]+)?\s+`+l+`\b\s*[:\-]?\s*`))
		bareLabelRes = append(bareLabelRes, regexp.MustCompile(`^`+l+`\b\s*[:\-]?\s*`))
	}
}

// ---------------------------------------------------------------------------
// CleanText
// ---------------------------------------------------------------------------

// minValveLength and maxStripRatio bound the authored-label stripping: on a
// string longer than minValveLength, removing more than maxStripRatio of it
// falls back to the bare-label strip of the original.
const (
	minValveLength = 15
	maxStripRatio  = 0.7
)

// CleanText turns raw annotation or text-run content into comment text.  It
// returns false when text is drawing noise or nothing is left after cleaning.
func CleanText(text string) (string, bool) {
	if IsDrawingNoise(text) {
		return "", false
	}

	original := strings.TrimSpace(text)
	cleaned := stripBareLabel(stripAuthoredLabels(original))

	origLen := utf8.RuneCountInString(original)
	if origLen > minValveLength {
		removed := origLen - utf8.RuneCountInString(cleaned)
		if float64(removed)/float64(origLen) > maxStripRatio {
			cleaned = stripBareLabel(original)
		}
	}

	cleaned = collapseWhitespace(norm.NFKC.String(cleaned))
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// stripAuthoredLabels removes leading "<honorific> <First> <Last> <Label>"
// headers until none remain.
func stripAuthoredLabels(s string) string {
	for {
		stripped := false
		for _, re := range authoredLabelRes {
			if loc := re.FindStringIndex(s); loc != nil && loc[1] > 0 {
				s = strings.TrimSpace(s[loc[1]:])
				stripped = true
			}
		}
		if !stripped {
			return s
		}
	}
}

func stripBareLabel(s string) string {
	for _, re := range bareLabelRes {
		if loc := re.FindStringIndex(s); loc != nil {
			return strings.TrimSpace(s[loc[1]:])
		}
	}
	return s
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ---------------------------------------------------------------------------
// Clause references
// ---------------------------------------------------------------------------

// clausePatterns are tried in order; each captures the reference in group 1.
var clausePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bclause\s+(\d[\d.]*)`),
	regexp.MustCompile(`^\s*(\d+\.\d[\d.]*)`),
	regexp.MustCompile(`(\d+\.\d[\d.]*)`),
	regexp.MustCompile(`(?i)\bcl\.\s*(\d[\d.]*)`),
	regexp.MustCompile(`§\s*(\d[\d.]*)`),
}

// ExtractClause returns the first clause reference found in text, such as
// "4.2" from "Refer clause 4.2.", or "" when there is none.
func ExtractClause(text string) string {
	for _, re := range clausePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if ref := strings.TrimRight(m[1], "."); ref != "" {
				return ref
			}
		}
	}
	return ""
}

//Personal.AI order the ending

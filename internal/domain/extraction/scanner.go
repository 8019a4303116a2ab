package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
)

// ─────────────────────────────────────────────────────────────────────────────
// Vocabulary
// ─────────────────────────────────────────────────────────────────────────────

// Vocabulary holds the word lists that decide which page objects look like
// review comments.  It is built once at startup and read-only afterwards.
type Vocabulary struct {
	// CommentTypes are annotation subtypes that carry comment text.  Any
	// other subtype is treated as a drawn shape.
	CommentTypes map[string]bool
	// Boilerplate phrases mark red title-block and cover-sheet text.
	Boilerplate []string
	// ActionVerbs mark imperative reviewer phrasing.
	ActionVerbs []string
	// MinRunLength is the minimum rune count of a text run.
	MinRunLength int
	// MaxCommentWords bounds the length of a comment-like text run.
	MaxCommentWords int
}

// DefaultVocabulary returns the vocabulary used for engineering drawings.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		CommentTypes: map[string]bool{
			"Text": true, "FreeText": true, "Highlight": true, "Note": true,
			"Comment": true, "Callout": true, "Link": true, "Widget": true,
		},
		Boilerplate: []string{
			"document no", "doc no", "contractor", "table of contents",
			"revision control", "revision history", "project no", "drawing no",
			"dwg no", "sheet no", "issued for", "prepared by", "checked by",
			"approved by", "confidential", "all rights reserved",
		},
		ActionVerbs: []string{
			"shall", "must", "should", "required", "include", "consider",
			"update", "provide", "ensure", "note", "comment", "review",
		},
		MinRunLength:    5,
		MaxCommentWords: 25,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanner
// ─────────────────────────────────────────────────────────────────────────────

const dedupPrefixRunes = 50

// Scanner turns the objects of one page into candidate markup items.  It
// keeps no state between pages.
type Scanner struct {
	vocab    Vocabulary
	actionRe *regexp.Regexp
}

// NewScanner builds a Scanner over vocab.
func NewScanner(vocab Vocabulary) *Scanner {
	quoted := make([]string, len(vocab.ActionVerbs))
	for i, v := range vocab.ActionVerbs {
		quoted[i] = regexp.QuoteMeta(v)
	}
	s := &Scanner{vocab: vocab}
	if len(quoted) > 0 {
		s.actionRe = regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)`)
	}
	return s
}

// ScanAnnotations returns the annotation candidates of page in document
// order, deduplicated on (page, kind, integer box, text prefix).
func (s *Scanner) ScanAnnotations(page Page) ([]markup.RawItem, error) {
	annots, err := page.Annotations()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var items []markup.RawItem
	for _, a := range annots {
		item, keep := s.classifyAnnotation(page.Number(), a)
		if !keep {
			continue
		}
		prefix := truncateRunes(item.Text, dedupPrefixRunes)
		if prefix == "" {
			prefix = item.NativeType
		}
		key := dedupKey(item.Page, string(item.Kind), item.BoundingBox, prefix)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}
	return items, nil
}

func (s *Scanner) classifyAnnotation(pageNo int, a Annotation) (markup.RawItem, bool) {
	text := joinNonEmpty(a.Title, a.Subject, a.Contents)
	isShape := !s.vocab.CommentTypes[a.Type]

	item := markup.RawItem{
		Text:        text,
		Page:        pageNo,
		BoundingBox: a.Rect,
		Origin:      markup.OriginAnnotation,
		NativeType:  a.Type,
	}
	if rgb, ok := markup.Normalize(a.Color()...); ok {
		item.Color = rgb
	}

	switch {
	case markup.IsYellow(a.Color()...):
		item.Kind = markup.KindYellowBox
	case markup.IsRed(a.Color()...):
		item.Kind = markup.KindRedComment
	case !isShape && text != "":
		item.Kind = markup.KindAnnotation
	case isShape:
		item.Kind = markup.KindShape
	default:
		return markup.RawItem{}, false
	}

	if text == "" && isShape {
		item.Text = "[" + a.Type + "]"
	}
	return item, true
}

// ScanTextRuns returns the red, comment-like text runs of page,
// deduplicated on (page, box, text prefix).
func (s *Scanner) ScanTextRuns(page Page) ([]markup.RawItem, error) {
	runs, err := page.TextRuns()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var items []markup.RawItem
	for _, run := range runs {
		text := strings.TrimSpace(run.Text)
		if utf8.RuneCountInString(text) < s.vocab.MinRunLength {
			continue
		}
		rgb, ok := run.Color.RGB()
		if !ok || !markup.IsRed(rgb.Components()...) {
			continue
		}
		if s.isBoilerplate(text) || !s.looksLikeComment(text) {
			continue
		}
		key := dedupKey(page.Number(), "red_span", run.Rect, truncateRunes(text, dedupPrefixRunes))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, markup.RawItem{
			Text:        text,
			Page:        page.Number(),
			BoundingBox: run.Rect,
			Color:       rgb,
			Kind:        markup.KindRedComment,
			Origin:      markup.OriginTextSpan,
		})
	}
	return items, nil
}

func (s *Scanner) isBoilerplate(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range s.vocab.Boilerplate {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// looksLikeComment accepts short text that ends as a sentence or question,
// or that uses reviewer action wording.
func (s *Scanner) looksLikeComment(text string) bool {
	if len(strings.Fields(text)) > s.vocab.MaxCommentWords {
		return false
	}
	if strings.HasSuffix(text, ".") || strings.HasSuffix(text, "?") {
		return true
	}
	return s.actionRe != nil && s.actionRe.MatchString(text)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func dedupKey(page int, kind string, box markup.BoundingBox, prefix string) string {
	return fmt.Sprintf("%d|%s|%s|%s", page, kind, box.Key(), prefix)
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

//Personal.AI order the ending

package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// minCommentRunes is the shortest cleaned text kept as a comment.
const minCommentRunes = 3

// Report summarises one extraction run.
type Report struct {
	DocumentID           string        `json:"document_id"`
	Pages                int           `json:"pages"`
	PagesScanned         int           `json:"pages_scanned"`
	PagesFailed          int           `json:"pages_failed"`
	FailedPages          []int         `json:"failed_pages,omitempty"`
	AnnotationCandidates int           `json:"annotation_candidates"`
	SpanCandidates       int           `json:"span_candidates"`
	Dropped              int           `json:"dropped"`
	Duplicates           int           `json:"duplicates"`
	Comments             int           `json:"comments"`
	Duration             time.Duration `json:"duration"`
}

// Pipeline extracts the ordered comment list of one document.  It holds no
// per-document state, so one Pipeline may serve concurrent extractions.
type Pipeline struct {
	scanner *Scanner
	logger  logging.Logger
}

// NewPipeline wires a pipeline over scanner.
func NewPipeline(scanner *Scanner, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Pipeline{scanner: scanner, logger: logger.Named("extraction")}
}

// ExtractBytes opens data with opener and extracts it.  A document that
// cannot be opened fails with ErrCodeDocumentUnreadable.
func (p *Pipeline) ExtractBytes(ctx context.Context, documentID string, opener Opener, data []byte) ([]*comment.Comment, *Report, error) {
	doc, err := opener.Open(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeDocumentUnreadable, "document cannot be opened").
			WithDetail(documentID)
	}
	return p.Extract(ctx, documentID, doc)
}

// Extract scans every page in order and returns the cleaned comments with
// serial numbers 1..N.  A page that fails to scan contributes nothing and is
// recorded in the report; extraction continues with the next page.
func (p *Pipeline) Extract(ctx context.Context, documentID string, doc Document) ([]*comment.Comment, *Report, error) {
	start := time.Now()
	log := p.logger.With(logging.String(logging.FieldDocumentID, documentID))
	report := &Report{DocumentID: documentID, Pages: doc.PageCount()}

	var candidates []markup.RawItem
	for n := 1; n <= report.Pages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, report, errors.Wrap(err, errors.ErrCodeTimeout, "extraction cancelled").
				WithDetailf("%s at page %d", documentID, n)
		}

		annots, spans, err := p.scanPage(doc, n)
		if err != nil {
			report.PagesFailed++
			report.FailedPages = append(report.FailedPages, n)
			log.Warn("page scan failed, skipping page",
				append(logging.ErrorFields(err), logging.Int(logging.FieldPage, n))...)
			continue
		}
		report.PagesScanned++
		report.AnnotationCandidates += len(annots)
		report.SpanCandidates += len(spans)
		candidates = append(candidates, annots...)
		candidates = append(candidates, spans...)
	}

	// Annotations precede text runs, so a red annotation wins over a red
	// span that covers the same box and text.
	seen := make(map[string]struct{}, len(candidates))
	comments := make([]*comment.Comment, 0, len(candidates))
	for _, item := range candidates {
		text, ok := markup.CleanText(item.Text)
		if !ok || utf8.RuneCountInString(strings.TrimSpace(text)) < minCommentRunes {
			report.Dropped++
			continue
		}
		key := dedupKey(item.Page, string(item.Kind), item.BoundingBox, truncateRunes(text, dedupPrefixRunes))
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		c, err := comment.NewComment(documentID, len(comments)+1, item, text, markup.ExtractClause(text))
		if err != nil {
			report.Dropped++
			continue
		}
		comments = append(comments, c)
	}

	report.Comments = len(comments)
	report.Duration = time.Since(start)
	log.Info("document extracted",
		logging.Int("pages", report.Pages),
		logging.Int("pages_failed", report.PagesFailed),
		logging.Int("comments", report.Comments),
		logging.Int("dropped", report.Dropped),
		logging.Int("duplicates", report.Duplicates),
		logging.Duration("duration", report.Duration),
	)
	return comments, report, nil
}

// scanPage collects the annotation and text-run candidates of page n.  Any
// error or panic fails the whole page.
func (p *Pipeline) scanPage(doc Document, n int) (annots, spans []markup.RawItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			annots, spans = nil, nil
			err = errors.New(errors.ErrCodePageScanFailure, "page scan panicked").
				WithDetail(fmt.Sprintf("page %d: %v", n, r))
		}
	}()

	page, err := doc.Page(n)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodePageScanFailure, "page cannot be loaded").
			WithDetailf("page %d", n)
	}
	annots, err = p.scanner.ScanAnnotations(page)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodePageScanFailure, "annotation scan failed").
			WithDetailf("page %d", n)
	}
	spans, err = p.scanner.ScanTextRuns(page)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodePageScanFailure, "text run scan failed").
			WithDetailf("page %d", n)
	}
	return annots, spans, nil
}

//Personal.AI order the ending

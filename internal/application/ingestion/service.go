// internal/application/ingestion/service.go
//
// Application service for document ingestion.  Fetches a submitted PDF,
// extracts its review comments, replaces the stored comment set of the
// document and announces the result.
//
// Extraction results are cached by content hash, so a byte-identical upload
// under a new document ID skips the page scan and only re-keys the comments.
//
// Dependencies:
//   Depends on: domain/extraction, domain/comment, application/events,
//               infrastructure/monitoring/logging, pkg/errors
//   Depended by: application/ingestion (SubmissionHandler), cmd/docrev,
//                cmd/worker

package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/DocRev-Intelligence/internal/application/events"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/extraction"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// DocumentSource returns the bytes of a stored document.
type DocumentSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// ResultCache shares extraction results between byte-identical documents.
type ResultCache interface {
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
}

// AttachmentLookup reports which revision, if any, a document belongs to.
// It is satisfied by revision.Repository.
type AttachmentLookup interface {
	FindRevisionByDocument(ctx context.Context, documentID string) (*revision.Revision, error)
}

// Metrics receives ingestion measurements.
type Metrics interface {
	ObserveExtraction(comments, pagesFailed int, duration time.Duration, err error)
	ObserveExtractionCache(hit bool)
}

type nopMetrics struct{}

func (nopMetrics) ObserveExtraction(int, int, time.Duration, error) {}
func (nopMetrics) ObserveExtractionCache(bool)                     {}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Result is the outcome of one ingestion.
type Result struct {
	DocumentID  string             `json:"document_id"`
	ContentHash string             `json:"content_hash"`
	Comments    []*comment.Comment `json:"comments"`
	Report      *extraction.Report `json:"report"`
	// Cached is true when the comments came from a previous extraction of
	// the same bytes.
	Cached bool `json:"cached"`
}

// cachedExtraction is the value stored under a content hash.
type cachedExtraction struct {
	Comments []*comment.Comment `json:"comments"`
	Report   *extraction.Report `json:"report"`
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service ingests documents.
type Service interface {
	// IngestObject fetches objectKey from the document source and ingests it
	// as documentID.
	IngestObject(ctx context.Context, documentID, objectKey string) (*Result, error)
	// IngestBytes ingests an already loaded document.
	IngestBytes(ctx context.Context, documentID string, data []byte) (*Result, error)
}

type service struct {
	pipeline  *extraction.Pipeline
	opener    extraction.Opener
	comments  comment.Repository
	source    DocumentSource
	attached  AttachmentLookup
	cache     ResultCache
	cacheTTL  time.Duration
	timeout   time.Duration
	publisher events.Publisher
	metrics   Metrics
	logger    logging.Logger
	now       func() time.Time
}

// Option configures the service.
type Option func(*service)

// WithSource sets the object store IngestObject reads from.
func WithSource(s DocumentSource) Option { return func(sv *service) { sv.source = s } }

// WithAttachmentLookup makes ingestion refuse documents that are already
// attached to a revision, so their comments and links stay intact.
func WithAttachmentLookup(l AttachmentLookup) Option { return func(sv *service) { sv.attached = l } }

// WithCache enables the content-hash result cache.
func WithCache(c ResultCache, ttl time.Duration) Option {
	return func(sv *service) { sv.cache, sv.cacheTTL = c, ttl }
}

// WithTimeout bounds a single extraction.
func WithTimeout(d time.Duration) Option { return func(sv *service) { sv.timeout = d } }

// WithPublisher sets the event publisher.
func WithPublisher(p events.Publisher) Option { return func(sv *service) { sv.publisher = p } }

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option { return func(sv *service) { sv.metrics = m } }

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(sv *service) { sv.now = now } }

// NewService wires an ingestion service.
func NewService(pipeline *extraction.Pipeline, opener extraction.Opener, comments comment.Repository, logger logging.Logger, opts ...Option) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &service{
		pipeline:  pipeline,
		opener:    opener,
		comments:  comments,
		cacheTTL:  24 * time.Hour,
		publisher: events.NopPublisher{},
		metrics:   nopMetrics{},
		logger:    logger.Named("ingestion"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) IngestObject(ctx context.Context, documentID, objectKey string) (*Result, error) {
	if strings.TrimSpace(objectKey) == "" {
		return nil, errors.NewValidation("object key is required")
	}
	if s.source == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "no document source configured")
	}
	data, err := s.source.Get(ctx, objectKey)
	if err != nil {
		return nil, err
	}
	return s.IngestBytes(ctx, documentID, data)
}

func (s *service) IngestBytes(ctx context.Context, documentID string, data []byte) (*Result, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, errors.NewValidation("document id is required")
	}
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeDocumentEmpty, "document has no content").WithDetail(documentID)
	}
	if err := s.ensureDetached(ctx, documentID); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	log := s.logger.With(logging.String(logging.FieldDocumentID, documentID), logging.String("sha256", hash[:12]))

	extracted, cached, err := s.extract(ctx, documentID, hash, data)
	if err != nil {
		log.Error("extraction failed", logging.ErrorFields(err)...)
		return nil, err
	}

	comments := extracted.Comments
	if cached {
		comments = rebind(comments, documentID, s.now().UTC())
	}
	if err := s.comments.ReplaceForDocument(ctx, documentID, comments); err != nil {
		return nil, err
	}

	report := *extracted.Report
	report.DocumentID = documentID
	s.publish(ctx, events.TopicDocumentExtracted, documentID, events.DocumentExtracted{
		DocumentID:  documentID,
		Pages:       report.Pages,
		PagesFailed: report.PagesFailed,
		Comments:    len(comments),
		ExtractedAt: s.now().UTC(),
	})
	log.Info("document ingested", logging.Int("comments", len(comments)), logging.Bool("cached", cached))

	return &Result{
		DocumentID:  documentID,
		ContentHash: hash,
		Comments:    comments,
		Report:      &report,
		Cached:      cached,
	}, nil
}

// ensureDetached rejects documentID when a revision already owns it.
// Replacing its comments would cascade-delete the links into that revision.
func (s *service) ensureDetached(ctx context.Context, documentID string) error {
	if s.attached == nil {
		return nil
	}
	rev, err := s.attached.FindRevisionByDocument(ctx, documentID)
	switch {
	case err == nil:
		return revision.ErrInvalidParent.WithDetailf("document %s already attached to revision %s", documentID, rev.ID)
	case errors.IsNotFound(err):
		return nil
	default:
		return err
	}
}

// extract runs the pipeline, through the cache when one is configured.
// Failed extractions are never cached.
func (s *service) extract(ctx context.Context, documentID, hash string, data []byte) (*cachedExtraction, bool, error) {
	run := func(ctx context.Context) (*cachedExtraction, error) {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		start := time.Now()
		comments, report, err := s.pipeline.ExtractBytes(ctx, documentID, s.opener, data)
		if err != nil {
			s.metrics.ObserveExtraction(0, 0, time.Since(start), err)
			return nil, err
		}
		s.metrics.ObserveExtraction(len(comments), report.PagesFailed, time.Since(start), nil)
		return &cachedExtraction{Comments: comments, Report: report}, nil
	}

	if s.cache == nil {
		out, err := run(ctx)
		return out, false, err
	}

	var (
		out    cachedExtraction
		loaded bool
	)
	err := s.cache.GetOrSet(ctx, "extraction:"+hash, &out, s.cacheTTL, func(ctx context.Context) (any, error) {
		loaded = true
		return run(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	if out.Report == nil {
		out.Report = &extraction.Report{Comments: len(out.Comments)}
	}
	s.metrics.ObserveExtractionCache(!loaded)
	return &out, !loaded, nil
}

func (s *service) publish(ctx context.Context, topic, key string, event any) {
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		s.logger.Warn("event publish failed",
			append(logging.ErrorFields(err), logging.String("topic", topic), logging.String("key", key))...)
	}
}

// rebind gives cached comments fresh identities under documentID.
func rebind(in []*comment.Comment, documentID string, now time.Time) []*comment.Comment {
	out := make([]*comment.Comment, len(in))
	for i, c := range in {
		cp := *c
		cp.ID = uuid.NewString()
		cp.DocumentID = documentID
		cp.CreatedAt = now
		out[i] = &cp
	}
	return out
}

//Personal.AI order the ending

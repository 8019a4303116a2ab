// internal/application/revision/chain_manager.go
//
// Application service for revision chains.  Attaches submitted documents to
// their chain, links comments across consecutive revisions, and keeps the
// chain's risk assessment current after every change.
//
// Every chain mutation runs under a per-chain lock and inside one repository
// transaction that re-reads the chain row FOR UPDATE, so concurrent additions
// to the same chain are serialised and never observe a stale counter.
//
// Dependencies:
//   Depends on: domain/revision, domain/comment, application/events,
//               infrastructure/monitoring/logging, pkg/errors
//   Depended by: application/ingestion, cmd/docrev, cmd/worker

package revision

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/DocRev-Intelligence/internal/application/events"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	domainRevision "github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

// ChainLocker serialises writers of one chain across goroutines and, for
// distributed implementations, across processes.
type ChainLocker interface {
	// Lock blocks until the chain lock is held or ctx ends.  The returned
	// function releases it.
	Lock(ctx context.Context, chainID string) (unlock func(), err error)
}

// Metrics receives chain manager measurements.
type Metrics interface {
	ObserveRevisionAdded(links int, duration time.Duration)
	ObserveAssessment(level string, score float64)
	ObserveLockWait(wait time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRevisionAdded(int, time.Duration) {}
func (nopMetrics) ObserveAssessment(string, float64)       {}
func (nopMetrics) ObserveLockWait(time.Duration)           {}

// LocalChainLocker is an in-process keyed mutex.
type LocalChainLocker struct {
	mu    sync.Mutex
	locks map[string]*chainLock
}

type chainLock struct {
	ch   chan struct{}
	refs int
}

// NewLocalChainLocker returns an empty LocalChainLocker.
func NewLocalChainLocker() *LocalChainLocker {
	return &LocalChainLocker{locks: make(map[string]*chainLock)}
}

// Lock implements ChainLocker.
func (l *LocalChainLocker) Lock(ctx context.Context, chainID string) (func(), error) {
	l.mu.Lock()
	cl, ok := l.locks[chainID]
	if !ok {
		cl = &chainLock{ch: make(chan struct{}, 1)}
		l.locks[chainID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	select {
	case cl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(chainID, cl)
		return nil, errors.Wrap(ctx.Err(), errors.ErrCodeChainLocked, "waiting for chain lock").WithDetail(chainID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-cl.ch
			l.release(chainID, cl)
		})
	}, nil
}

func (l *LocalChainLocker) release(chainID string, cl *chainLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl.refs--
	if cl.refs == 0 {
		delete(l.locks, chainID)
	}
}

// LinkerRef holds the comment linker of a running service.
type LinkerRef struct {
	p atomic.Pointer[comment.Linker]
}

// NewLinkerRef returns a ref holding l.
func NewLinkerRef(l *comment.Linker) *LinkerRef {
	r := &LinkerRef{}
	r.p.Store(l)
	return r
}

// Load returns the current linker.
func (r *LinkerRef) Load() *comment.Linker { return r.p.Load() }

// Store replaces the linker.
func (r *LinkerRef) Store(l *comment.Linker) { r.p.Store(l) }

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// AddRevisionInput describes a document to attach to a chain.
type AddRevisionInput struct {
	ChainID          string
	DocumentID       string
	Label            string
	ParentRevisionID *string
	SubmittedDate    *time.Time
	// RevisionNumber, when positive, must equal the chain's next number.
	// Zero lets the chain assign it.
	RevisionNumber int
}

// AddRevisionResult is the outcome of AddRevision.
type AddRevisionResult struct {
	Chain    *domainRevision.Chain    `json:"chain"`
	Revision *domainRevision.Revision `json:"revision"`
	Links    []*comment.Link          `json:"links"`
}

// ChainView is a chain with its revisions in ascending order.
type ChainView struct {
	Chain     *domainRevision.Chain      `json:"chain"`
	Revisions []*domainRevision.Revision `json:"revisions"`
}

// Analysis is a freshly computed chain assessment.
type Analysis struct {
	Chain      *domainRevision.Chain     `json:"chain"`
	Assessment domainRevision.Assessment `json:"assessment"`
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

// ChainService manages revision chains.
type ChainService interface {
	// CreateChain starts an empty chain.
	CreateChain(ctx context.Context, title string, maxAllowed int) (*domainRevision.Chain, error)
	// AddRevision attaches an extracted document as the chain's next
	// revision, links it to its parent and rescores the chain.
	AddRevision(ctx context.Context, in AddRevisionInput) (*AddRevisionResult, error)
	// UpdateStatus moves a revision through its review lifecycle.
	UpdateStatus(ctx context.Context, revisionID string, status domainRevision.Status) (*domainRevision.Revision, error)
	// RecordResolutions stores how many of a revision's comments are closed.
	RecordResolutions(ctx context.Context, revisionID string, resolved int) (*domainRevision.Revision, error)
	// AnalyzeChain recomputes and stores the chain's risk assessment.
	AnalyzeChain(ctx context.Context, chainID string) (*Analysis, error)
	// GetChain returns a chain with its revisions.
	GetChain(ctx context.Context, chainID string) (*ChainView, error)
	// RevisionForDocument returns the revision a document is attached to,
	// or a not-found error when it is still free.
	RevisionForDocument(ctx context.Context, documentID string) (*domainRevision.Revision, error)
	// ListLinks returns the comment links into a revision.
	ListLinks(ctx context.Context, revisionID string) ([]*comment.Link, error)
	// ArchiveChain closes a chain to further revisions.
	ArchiveChain(ctx context.Context, chainID string) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type chainManager struct {
	repo      domainRevision.Repository
	comments  comment.Repository
	locker    ChainLocker
	linker    func() *comment.Linker
	scorer    *domainRevision.RiskScorer
	publisher events.Publisher
	metrics   Metrics
	now       func() time.Time
	logger    logging.Logger
}

// Option configures the chain manager.
type Option func(*chainManager)

// WithLinker replaces the default comment linker.
func WithLinker(l *comment.Linker) Option {
	return func(m *chainManager) { m.linker = func() *comment.Linker { return l } }
}

// WithLinkerRef reads the linker from ref on every AddRevision, so tunables
// stored into ref apply to the next revision.
func WithLinkerRef(ref *LinkerRef) Option { return func(m *chainManager) { m.linker = ref.Load } }

// WithRiskScorer replaces the default risk scorer.
func WithRiskScorer(s *domainRevision.RiskScorer) Option {
	return func(m *chainManager) { m.scorer = s }
}

// WithPublisher sets where chain events are sent.
func WithPublisher(p events.Publisher) Option { return func(m *chainManager) { m.publisher = p } }

// WithMetrics sets the metrics sink.
func WithMetrics(mt Metrics) Option { return func(m *chainManager) { m.metrics = mt } }

// WithClock sets the clock used for timestamps.
func WithClock(now func() time.Time) Option { return func(m *chainManager) { m.now = now } }

// NewChainManager constructs the chain service.  A nil locker uses a
// LocalChainLocker.
func NewChainManager(repo domainRevision.Repository, comments comment.Repository, locker ChainLocker, logger logging.Logger, opts ...Option) ChainService {
	if locker == nil {
		locker = NewLocalChainLocker()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &chainManager{
		repo:      repo,
		comments:  comments,
		locker:    locker,
		linker:    NewLinkerRef(comment.NewLinker(comment.NewMatcher(comment.DefaultSubstringBoost), comment.DefaultLinkThreshold)).Load,
		publisher: events.NopPublisher{},
		metrics:   nopMetrics{},
		now:       time.Now,
		logger:    logger.Named("chain_manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.scorer == nil {
		m.scorer = domainRevision.NewRiskScorer(domainRevision.WithClock(m.now))
	}
	return m
}

func (m *chainManager) clock() time.Time { return m.now().UTC() }

// lock takes the chain lock and reports how long the caller waited.
func (m *chainManager) lock(ctx context.Context, chainID string) (func(), error) {
	start := time.Now()
	unlock, err := m.locker.Lock(ctx, chainID)
	m.metrics.ObserveLockWait(time.Since(start))
	return unlock, err
}

func (m *chainManager) CreateChain(ctx context.Context, title string, maxAllowed int) (*domainRevision.Chain, error) {
	chain, err := domainRevision.NewChain(title, maxAllowed)
	if err != nil {
		return nil, err
	}
	now := m.clock()
	chain.CreatedAt, chain.UpdatedAt = now, now
	if err := m.repo.CreateChain(ctx, chain); err != nil {
		return nil, err
	}
	m.logger.Info("chain created",
		logging.String(logging.FieldChainID, chain.ID),
		logging.String("title", chain.Title),
		logging.Int("max_allowed_revisions", chain.MaxAllowedRevisions))
	return chain, nil
}

func (m *chainManager) AddRevision(ctx context.Context, in AddRevisionInput) (*AddRevisionResult, error) {
	start := time.Now()
	if strings.TrimSpace(in.ChainID) == "" {
		return nil, errors.NewValidation("chain id is required")
	}
	if strings.TrimSpace(in.DocumentID) == "" {
		return nil, errors.NewValidation("document id is required")
	}
	if in.RevisionNumber < 0 {
		return nil, domainRevision.ErrInvalidRevisionNumber.WithDetailf("%d", in.RevisionNumber)
	}

	unlock, err := m.lock(ctx, in.ChainID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *AddRevisionResult
	err = m.repo.WithTx(ctx, func(tx domainRevision.Repository) error {
		chain, err := tx.GetChainForUpdate(ctx, in.ChainID)
		if err != nil {
			return err
		}
		if chain.Archived {
			return domainRevision.ErrChainArchived.WithDetail(chain.ID)
		}
		revs, err := tx.ListRevisions(ctx, chain.ID)
		if err != nil {
			return err
		}

		number := chain.NextRevisionNumber()
		if in.RevisionNumber > 0 {
			if findByNumber(revs, in.RevisionNumber) != nil {
				return domainRevision.ErrDuplicateRevision.WithDetailf("revision %d of chain %s", in.RevisionNumber, chain.ID)
			}
			if in.RevisionNumber != number {
				return domainRevision.ErrInvalidRevisionNumber.WithDetailf("got %d, next is %d", in.RevisionNumber, number)
			}
		}
		if findByNumber(revs, number) != nil {
			return domainRevision.ErrDuplicateRevision.WithDetailf("revision %d of chain %s", number, chain.ID)
		}

		var parent *domainRevision.Revision
		if in.ParentRevisionID != nil {
			if parent = findByID(revs, *in.ParentRevisionID); parent == nil {
				return domainRevision.ErrInvalidParent.WithDetailf("revision %s is not in chain %s", *in.ParentRevisionID, chain.ID)
			}
		}
		existing, err := tx.FindRevisionByDocument(ctx, in.DocumentID)
		switch {
		case err == nil:
			return domainRevision.ErrInvalidParent.WithDetailf("document %s already attached to revision %s", in.DocumentID, existing.ID)
		case !errors.IsNotFound(err):
			return err
		}

		now := m.clock()
		rev := &domainRevision.Revision{
			ID:               uuid.NewString(),
			ChainID:          chain.ID,
			DocumentID:       in.DocumentID,
			Label:            labelFor(in.Label, number),
			RevisionNumber:   number,
			ParentRevisionID: in.ParentRevisionID,
			Status:           domainRevision.StatusSubmitted,
			SubmittedDate:    now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if in.SubmittedDate != nil {
			rev.SubmittedDate = in.SubmittedDate.UTC()
		}

		current, err := m.comments.ListByDocument(ctx, in.DocumentID)
		if err != nil {
			return err
		}
		var links []*comment.Link
		if parent != nil {
			previous, err := m.comments.ListByDocument(ctx, parent.DocumentID)
			if err != nil {
				return err
			}
			links = comment.SelectPersistable(m.linker().DetectLinks(previous, current))
			comment.BindRevisions(links, parent.ID, rev.ID)
		}
		rev.SetCommentCounts(len(current), comment.CarryoverCount(links))
		domainRevision.ScoreRevision(rev, current)

		chain.RecordRevision(now)
		if err := tx.CreateRevision(ctx, rev); err != nil {
			return err
		}
		if err := tx.SaveLinks(ctx, links); err != nil {
			return err
		}
		if parent != nil && parent.Supersede(now) {
			if err := tx.UpdateRevision(ctx, parent); err != nil {
				return err
			}
		}

		chain.ApplyAssessment(m.scorer.Assess(chain, append(revs, rev)), now)
		if err := tx.UpdateChain(ctx, chain); err != nil {
			return err
		}
		result = &AddRevisionResult{Chain: chain, Revision: rev, Links: links}
		return nil
	})
	if err != nil {
		m.logger.Warn("add revision rejected", append(logging.ErrorFields(err),
			logging.String(logging.FieldChainID, in.ChainID),
			logging.String(logging.FieldDocumentID, in.DocumentID))...)
		return nil, err
	}

	m.metrics.ObserveRevisionAdded(len(result.Links), time.Since(start))
	m.metrics.ObserveAssessment(string(result.Chain.RiskLevel), result.Chain.RiskScore)
	m.logger.Info("revision added",
		logging.String(logging.FieldChainID, result.Chain.ID),
		logging.String(logging.FieldRevisionID, result.Revision.ID),
		logging.Int("revision_number", result.Revision.RevisionNumber),
		logging.Int("new_comments", result.Revision.NewCommentCount),
		logging.Int("carryover_comments", result.Revision.CarryoverCommentCount),
		logging.Float64("risk_score", result.Chain.RiskScore))
	m.publish(ctx, events.TopicRevisionAdded, result.Chain.ID, events.RevisionAdded{
		ChainID:           result.Chain.ID,
		RevisionID:        result.Revision.ID,
		RevisionNumber:    result.Revision.RevisionNumber,
		DocumentID:        result.Revision.DocumentID,
		NewComments:       result.Revision.NewCommentCount,
		CarryoverComments: result.Revision.CarryoverCommentCount,
		Links:             len(result.Links),
		RiskScore:         result.Chain.RiskScore,
		RiskLevel:         string(result.Chain.RiskLevel),
		AddedAt:           result.Revision.CreatedAt,
	})
	return result, nil
}

func (m *chainManager) UpdateStatus(ctx context.Context, revisionID string, status domainRevision.Status) (*domainRevision.Revision, error) {
	if !status.IsValid() {
		return nil, domainRevision.ErrInvalidStatus.WithDetail(string(status))
	}
	return m.mutateRevision(ctx, revisionID, func(rev *domainRevision.Revision, now time.Time) error {
		return rev.TransitionTo(status, now)
	})
}

func (m *chainManager) RecordResolutions(ctx context.Context, revisionID string, resolved int) (*domainRevision.Revision, error) {
	if resolved < 0 {
		return nil, errors.NewValidation("resolved comment count cannot be negative")
	}
	return m.mutateRevision(ctx, revisionID, func(rev *domainRevision.Revision, now time.Time) error {
		if total := rev.TotalComments(); resolved > total {
			return errors.NewValidation("resolved comment count exceeds the revision's comments").
				WithDetailf("%d > %d", resolved, total)
		}
		rev.ResolvedCommentCount = resolved
		rev.UpdatedAt = now
		return nil
	})
}

// mutateRevision applies fn to a revision and rescores its chain under the
// chain lock.
func (m *chainManager) mutateRevision(ctx context.Context, revisionID string, fn func(*domainRevision.Revision, time.Time) error) (*domainRevision.Revision, error) {
	probe, err := m.repo.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	unlock, err := m.lock(ctx, probe.ChainID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var updated *domainRevision.Revision
	var chain *domainRevision.Chain
	err = m.repo.WithTx(ctx, func(tx domainRevision.Repository) error {
		c, err := tx.GetChainForUpdate(ctx, probe.ChainID)
		if err != nil {
			return err
		}
		chain = c
		revs, err := tx.ListRevisions(ctx, chain.ID)
		if err != nil {
			return err
		}
		rev := findByID(revs, revisionID)
		if rev == nil {
			return domainRevision.ErrRevisionNotFound.WithDetail(revisionID)
		}
		now := m.clock()
		if err := fn(rev, now); err != nil {
			return err
		}
		if err := tx.UpdateRevision(ctx, rev); err != nil {
			return err
		}
		chain.ApplyAssessment(m.scorer.Assess(chain, revs), now)
		if err := tx.UpdateChain(ctx, chain); err != nil {
			return err
		}
		updated = rev
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.metrics.ObserveAssessment(string(chain.RiskLevel), chain.RiskScore)
	m.logger.Info("revision updated",
		logging.String(logging.FieldChainID, chain.ID),
		logging.String(logging.FieldRevisionID, updated.ID),
		logging.String("status", string(updated.Status)),
		logging.Int("resolved_comments", updated.ResolvedCommentCount))
	return updated, nil
}

func (m *chainManager) AnalyzeChain(ctx context.Context, chainID string) (*Analysis, error) {
	unlock, err := m.lock(ctx, chainID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var out *Analysis
	err = m.repo.WithTx(ctx, func(tx domainRevision.Repository) error {
		chain, err := tx.GetChainForUpdate(ctx, chainID)
		if err != nil {
			return err
		}
		revs, err := tx.ListRevisions(ctx, chainID)
		if err != nil {
			return err
		}
		a := m.scorer.Assess(chain, revs)
		chain.ApplyAssessment(a, m.clock())
		if err := tx.UpdateChain(ctx, chain); err != nil {
			return err
		}
		out = &Analysis{Chain: chain, Assessment: a}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.metrics.ObserveAssessment(string(out.Assessment.Level), out.Assessment.Score)
	m.logger.Info("chain analyzed",
		logging.String(logging.FieldChainID, chainID),
		logging.Float64("risk_score", out.Assessment.Score),
		logging.String("risk_level", string(out.Assessment.Level)))
	m.publish(ctx, events.TopicChainAnalyzed, chainID, events.ChainAnalyzed{
		ChainID:                 chainID,
		RiskScore:               out.Assessment.Score,
		RiskLevel:               string(out.Assessment.Level),
		PredictedCompletionDate: out.Assessment.PredictedCompletionDate,
		AnalyzedAt:              out.Chain.UpdatedAt,
	})
	return out, nil
}

func (m *chainManager) GetChain(ctx context.Context, chainID string) (*ChainView, error) {
	chain, err := m.repo.GetChain(ctx, chainID)
	if err != nil {
		return nil, err
	}
	revs, err := m.repo.ListRevisions(ctx, chainID)
	if err != nil {
		return nil, err
	}
	return &ChainView{Chain: chain, Revisions: revs}, nil
}

func (m *chainManager) RevisionForDocument(ctx context.Context, documentID string) (*domainRevision.Revision, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, errors.NewValidation("document id is required")
	}
	return m.repo.FindRevisionByDocument(ctx, documentID)
}

func (m *chainManager) ListLinks(ctx context.Context, revisionID string) ([]*comment.Link, error) {
	if _, err := m.repo.GetRevision(ctx, revisionID); err != nil {
		return nil, err
	}
	return m.repo.ListLinks(ctx, revisionID)
}

func (m *chainManager) ArchiveChain(ctx context.Context, chainID string) error {
	unlock, err := m.lock(ctx, chainID)
	if err != nil {
		return err
	}
	defer unlock()

	return m.repo.WithTx(ctx, func(tx domainRevision.Repository) error {
		chain, err := tx.GetChainForUpdate(ctx, chainID)
		if err != nil {
			return err
		}
		if chain.Archived {
			return nil
		}
		chain.Archived = true
		chain.UpdatedAt = m.clock()
		if err := tx.UpdateChain(ctx, chain); err != nil {
			return err
		}
		m.logger.Info("chain archived", logging.String(logging.FieldChainID, chainID))
		return nil
	})
}

// publish sends an event after the transaction has committed.  Failures are
// logged; the state change already stands.
func (m *chainManager) publish(ctx context.Context, topic, key string, event any) {
	if err := m.publisher.Publish(ctx, topic, key, event); err != nil {
		m.logger.Warn("event publish failed", append(logging.ErrorFields(err),
			logging.String("topic", topic),
			logging.String(logging.FieldChainID, key))...)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func findByNumber(revs []*domainRevision.Revision, n int) *domainRevision.Revision {
	for _, r := range revs {
		if r.RevisionNumber == n {
			return r
		}
	}
	return nil
}

func findByID(revs []*domainRevision.Revision, id string) *domainRevision.Revision {
	for _, r := range revs {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func labelFor(label string, number int) string {
	if label = strings.TrimSpace(label); label != "" {
		return label
	}
	return "Rev " + strconv.Itoa(number)
}

//Personal.AI order the ending

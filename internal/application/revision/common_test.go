// internal/application/revision/common_test.go
//
// Shared in-memory repositories and mocks for chain manager tests.

package revision

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
	domainRevision "github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// memRevisionRepo
// ---------------------------------------------------------------------------

// memRevisionRepo stores copies so that callers never share state with the
// store, and rolls back a failed WithTx by restoring a snapshot.
type memRevisionRepo struct {
	txMu sync.Mutex

	mu        sync.Mutex
	chains    map[string]domainRevision.Chain
	revisions map[string]domainRevision.Revision
	links     []comment.Link

	// failUpdateChain makes UpdateChain fail, to exercise rollback.
	failUpdateChain error
}

func newMemRevisionRepo() *memRevisionRepo {
	return &memRevisionRepo{
		chains:    make(map[string]domainRevision.Chain),
		revisions: make(map[string]domainRevision.Revision),
	}
}

func (r *memRevisionRepo) CreateChain(_ context.Context, c *domainRevision.Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[c.ID] = *c
	return nil
}

func (r *memRevisionRepo) GetChain(_ context.Context, id string) (*domainRevision.Chain, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.chains[id]
	if !ok {
		return nil, domainRevision.ErrChainNotFound.WithDetail(id)
	}
	return &c, nil
}

func (r *memRevisionRepo) GetChainForUpdate(ctx context.Context, id string) (*domainRevision.Chain, error) {
	return r.GetChain(ctx, id)
}

func (r *memRevisionRepo) UpdateChain(_ context.Context, c *domainRevision.Chain) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdateChain != nil {
		return r.failUpdateChain
	}
	r.chains[c.ID] = *c
	return nil
}

func (r *memRevisionRepo) CreateRevision(_ context.Context, rev *domainRevision.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.revisions {
		if existing.ChainID == rev.ChainID && existing.RevisionNumber == rev.RevisionNumber {
			return domainRevision.ErrDuplicateRevision
		}
	}
	r.revisions[rev.ID] = *rev
	return nil
}

func (r *memRevisionRepo) GetRevision(_ context.Context, id string) (*domainRevision.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.revisions[id]
	if !ok {
		return nil, domainRevision.ErrRevisionNotFound.WithDetail(id)
	}
	return &rev, nil
}

func (r *memRevisionRepo) UpdateRevision(_ context.Context, rev *domainRevision.Revision) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.revisions[rev.ID]; !ok {
		return domainRevision.ErrRevisionNotFound.WithDetail(rev.ID)
	}
	r.revisions[rev.ID] = *rev
	return nil
}

func (r *memRevisionRepo) ListRevisions(_ context.Context, chainID string) ([]*domainRevision.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domainRevision.Revision
	for _, rev := range r.revisions {
		if rev.ChainID == chainID {
			rev := rev
			out = append(out, &rev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RevisionNumber < out[j].RevisionNumber })
	return out, nil
}

func (r *memRevisionRepo) FindRevisionByDocument(_ context.Context, documentID string) (*domainRevision.Revision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.revisions {
		if rev.DocumentID == documentID {
			rev := rev
			return &rev, nil
		}
	}
	return nil, domainRevision.ErrRevisionNotFound.WithDetail(documentID)
}

func (r *memRevisionRepo) SaveLinks(_ context.Context, links []*comment.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range links {
		r.links = append(r.links, *l)
	}
	return nil
}

func (r *memRevisionRepo) ListLinks(_ context.Context, targetRevisionID string) ([]*comment.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*comment.Link
	for _, l := range r.links {
		if l.TargetRevisionID == targetRevisionID {
			l := l
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *memRevisionRepo) WithTx(_ context.Context, fn func(domainRevision.Repository) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.Lock()
	chains := make(map[string]domainRevision.Chain, len(r.chains))
	for k, v := range r.chains {
		chains[k] = v
	}
	revisions := make(map[string]domainRevision.Revision, len(r.revisions))
	for k, v := range r.revisions {
		revisions[k] = v
	}
	links := append([]comment.Link(nil), r.links...)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.chains, r.revisions, r.links = chains, revisions, links
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRevisionRepo) chain(id string) domainRevision.Chain {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chains[id]
}

func (r *memRevisionRepo) linkCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// ---------------------------------------------------------------------------
// memCommentRepo
// ---------------------------------------------------------------------------

type memCommentRepo struct {
	mu    sync.Mutex
	byDoc map[string][]*comment.Comment
}

func newMemCommentRepo() *memCommentRepo {
	return &memCommentRepo{byDoc: make(map[string][]*comment.Comment)}
}

// seed stores one comment per text under documentID.
func (r *memCommentRepo) seed(documentID string, texts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cs []*comment.Comment
	for i, text := range texts {
		c, err := comment.NewComment(documentID, i+1, markup.RawItem{
			Text: text, Page: 1, Kind: markup.KindAnnotation, Origin: markup.OriginAnnotation,
		}, text, markup.ExtractClause(text))
		if err != nil {
			panic(err)
		}
		cs = append(cs, c)
	}
	r.byDoc[documentID] = cs
}

func (r *memCommentRepo) ReplaceForDocument(_ context.Context, documentID string, comments []*comment.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byDoc[documentID] = comments
	return nil
}

func (r *memCommentRepo) ListByDocument(_ context.Context, documentID string) ([]*comment.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*comment.Comment(nil), r.byDoc[documentID]...), nil
}

func (r *memCommentRepo) GetByID(_ context.Context, id string) (*comment.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cs := range r.byDoc {
		for _, c := range cs {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeCommentNotFound, "comment not found").WithDetail(id)
}

func (r *memCommentRepo) UpdatePriority(ctx context.Context, id string, p comment.Priority) error {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.Priority = p
	return nil
}

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, event any) error {
	args := m.Called(ctx, topic, key, event)
	return args.Error(0)
}

type recordingMetrics struct {
	mu          sync.Mutex
	added       int
	assessments []string
	lockWaits   int
}

func (m *recordingMetrics) ObserveLockWait(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockWaits++
}

func (m *recordingMetrics) ObserveRevisionAdded(int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added++
}

func (m *recordingMetrics) ObserveAssessment(level string, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments = append(m.assessments, level)
}

//Personal.AI order the ending

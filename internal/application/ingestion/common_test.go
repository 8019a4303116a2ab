// internal/application/ingestion/common_test.go
//
// Shared fakes for ingestion tests.

package ingestion

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/extraction"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ---------------------------------------------------------------------------
// Page object model
// ---------------------------------------------------------------------------

type fakePage struct {
	number int
	annots []extraction.Annotation
}

func (p *fakePage) Number() int                                  { return p.number }
func (p *fakePage) Annotations() ([]extraction.Annotation, error) { return p.annots, nil }
func (p *fakePage) TextRuns() ([]extraction.TextRun, error)       { return nil, nil }

type fakeDoc struct{ pages []*fakePage }

func (d *fakeDoc) PageCount() int { return len(d.pages) }
func (d *fakeDoc) Page(n int) (extraction.Page, error) {
	return d.pages[n-1], nil
}

// countingOpener returns doc for every call and counts them.
type countingOpener struct {
	mu    sync.Mutex
	doc   extraction.Document
	err   error
	calls int
}

func (o *countingOpener) Open([]byte) (extraction.Document, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	return o.doc, o.err
}

func (o *countingOpener) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func reviewedDrawing() *fakeDoc {
	return &fakeDoc{pages: []*fakePage{{
		number: 1,
		annots: []extraction.Annotation{
			{Type: "FreeText", Contents: "Increase pipe support spacing per clause 4.2.", Stroke: []float64{0.9, 0.05, 0.05}, Rect: markup.BoundingBox{10, 10, 100, 40}},
			{Type: "Square", Subject: "Check nozzle orientation", Fill: []float64{1, 1, 0}, Rect: markup.BoundingBox{200, 200, 260, 240}},
		},
	}}}
}

// ---------------------------------------------------------------------------
// Repositories and ports
// ---------------------------------------------------------------------------

type memCommentRepo struct {
	mu       sync.Mutex
	byDoc    map[string][]*comment.Comment
	replaced int
	fail     error
}

func newMemCommentRepo() *memCommentRepo {
	return &memCommentRepo{byDoc: make(map[string][]*comment.Comment)}
}

func (r *memCommentRepo) ReplaceForDocument(_ context.Context, documentID string, comments []*comment.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.replaced++
	r.byDoc[documentID] = comments
	return nil
}

func (r *memCommentRepo) ListByDocument(_ context.Context, documentID string) ([]*comment.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byDoc[documentID], nil
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

func (r *memCommentRepo) UpdatePriority(context.Context, string, comment.Priority) error { return nil }

// memCache stores JSON like the Redis cache does.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) GetOrSet(ctx context.Context, key string, dest any, _ time.Duration, loader func(ctx context.Context) (any, error)) error {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()
	if ok {
		return json.Unmarshal(raw, dest)
	}
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err = json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = raw
	c.mu.Unlock()
	return json.Unmarshal(raw, dest)
}

type mapSource map[string][]byte

func (s mapSource) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeObjectNotFound, "object not found").WithDetail(key)
	}
	return data, nil
}

type published struct {
	topic, key string
	event      any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{topic, key, event})
	return nil
}

type recordingMetrics struct {
	mu          sync.Mutex
	extractions int
	failures    int
	hits        int
	misses      int
}

func (m *recordingMetrics) ObserveExtraction(_, _ int, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extractions++
	if err != nil {
		m.failures++
	}
}

func (m *recordingMetrics) ObserveExtractionCache(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

//Personal.AI order the ending

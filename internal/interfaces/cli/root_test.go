package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/DocRev-Intelligence/internal/application/ingestion"
	"github.com/turtacn/DocRev-Intelligence/internal/application/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/config"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/extraction"
	domainRevision "github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeChains struct {
	revision.ChainService
	created   []int
	added     []revision.AddRevisionInput
	statuses  []domainRevision.Status
	resolved  []int
	archived  []string
	chainView *revision.ChainView
}

func sampleChain() *domainRevision.Chain {
	return &domainRevision.Chain{ID: "chain-1", Title: "P&ID 100", CurrentRevisionNumber: 2, MaxAllowedRevisions: 5,
		RiskScore: 62.5, RiskLevel: domainRevision.RiskHigh, Recommendation: "Schedule a review meeting."}
}

func (f *fakeChains) CreateChain(_ context.Context, title string, maxAllowed int) (*domainRevision.Chain, error) {
	f.created = append(f.created, maxAllowed)
	return &domainRevision.Chain{ID: "chain-new", Title: title, MaxAllowedRevisions: maxAllowed}, nil
}

func (f *fakeChains) AddRevision(_ context.Context, in revision.AddRevisionInput) (*revision.AddRevisionResult, error) {
	f.added = append(f.added, in)
	return &revision.AddRevisionResult{
		Chain:    sampleChain(),
		Revision: &domainRevision.Revision{ID: "rev-2", RevisionNumber: 2, NewCommentCount: 3, CarryoverCommentCount: 1},
	}, nil
}

func (f *fakeChains) UpdateStatus(_ context.Context, id string, status domainRevision.Status) (*domainRevision.Revision, error) {
	f.statuses = append(f.statuses, status)
	return &domainRevision.Revision{ID: id, Status: status}, nil
}

func (f *fakeChains) RecordResolutions(_ context.Context, id string, resolved int) (*domainRevision.Revision, error) {
	f.resolved = append(f.resolved, resolved)
	return &domainRevision.Revision{ID: id, ResolvedCommentCount: resolved, NewCommentCount: 4}, nil
}

func (f *fakeChains) GetChain(_ context.Context, id string) (*revision.ChainView, error) {
	if f.chainView == nil {
		return nil, domainRevision.ErrChainNotFound.WithDetail(id)
	}
	return f.chainView, nil
}

func (f *fakeChains) ArchiveChain(_ context.Context, id string) error {
	f.archived = append(f.archived, id)
	return nil
}

type fakeIngestion struct {
	ingested []string
}

func (f *fakeIngestion) IngestObject(context.Context, string, string) (*ingestion.Result, error) {
	return nil, errors.New(errors.ErrCodeServiceUnavailable, "not used")
}

func (f *fakeIngestion) IngestBytes(_ context.Context, documentID string, _ []byte) (*ingestion.Result, error) {
	f.ingested = append(f.ingested, documentID)
	return &ingestion.Result{
		DocumentID: documentID,
		Comments:   []*comment.Comment{{ID: "c1", DocumentID: documentID, SerialNumber: 1, Page: 1, Text: "Check clause 4.2"}},
		Report:     &extraction.Report{DocumentID: documentID, Pages: 1, PagesScanned: 1, Comments: 1},
	}, nil
}

type fakeMigrator struct {
	ups   int
	downs []int
	state postgres.MigrationState
}

func (m *fakeMigrator) RunMigrations() error {
	m.ups++
	m.state.Version = 2
	return nil
}

func (m *fakeMigrator) RollbackMigrations(steps int) error {
	m.downs = append(m.downs, steps)
	m.state.Version -= uint(steps)
	return nil
}

func (m *fakeMigrator) MigrationStatus() (postgres.MigrationState, error) { return m.state, nil }

type fakeBackend struct {
	chains    *fakeChains
	ingestion *fakeIngestion
	migrator  *fakeMigrator
	closed    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{chains: &fakeChains{}, ingestion: &fakeIngestion{}, migrator: &fakeMigrator{}}
}

func (b *fakeBackend) Chains() revision.ChainService { return b.chains }
func (b *fakeBackend) Ingestion() ingestion.Service   { return b.ingestion }
func (b *fakeBackend) Migrator() Migrator             { return b.migrator }
func (b *fakeBackend) Close() error {
	b.closed = true
	return nil
}

func (b *fakeBackend) factory() BackendFactory {
	return func(context.Context, *config.Config, logging.Logger) (Backend, error) { return b, nil }
}

// run executes the command tree with args and returns stdout and stderr.
func run(t *testing.T, factory BackendFactory, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand(factory)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

// ─────────────────────────────────────────────────────────────────────────────
// PDF fixtures
// ─────────────────────────────────────────────────────────────────────────────

func buildPDF(objects ...string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// writeDrawing writes a one-page PDF carrying a red FreeText annotation.
func writeDrawing(t *testing.T, name, note string) string {
	t.Helper()
	content := "BT ET"
	data := buildPDF(
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Annots [5 0 R] >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		fmt.Sprintf("<< /Type /Annot /Subtype /FreeText /Rect [50 50 200 100] /Contents (%s) /C [1 0 0] >>", note),
	)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// ─────────────────────────────────────────────────────────────────────────────
// Root
// ─────────────────────────────────────────────────────────────────────────────

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand(nil)
	assert.Equal(t, "docrev", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"extract", "compare", "chain", "migrate", "version"} {
		assert.True(t, names[want], want)
	}

	for _, flag := range []string{"config", "log-level", "output", "verbose", "no-color", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
	assert.Equal(t, "v", cmd.PersistentFlags().Lookup("verbose").Shorthand)
}

func TestChainCommand_Subcommands(t *testing.T) {
	var chain *cobra.Command
	for _, sub := range NewRootCommand(nil).Commands() {
		if sub.Name() == "chain" {
			chain = sub
		}
	}
	require.NotNil(t, chain)
	var names []string
	for _, sub := range chain.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"create", "add", "status", "resolve", "analyze", "show", "links", "archive"}, names)
}

func TestRoot_RejectsUnknownOutputFormat(t *testing.T) {
	_, _, err := run(t, nil, "-o", "yaml", "chain", "show", "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docrev "+Version)
	assert.Contains(t, out, "commit:")
}

func TestBackendCommands_WithoutFactory(t *testing.T) {
	_, _, err := run(t, nil, "chain", "show", "chain-1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestBackendIsClosedAfterCommand(t *testing.T) {
	b := newFakeBackend()
	_, _, err := run(t, b.factory(), "chain", "archive", "chain-1")
	require.NoError(t, err)
	assert.True(t, b.closed)
	assert.Equal(t, []string{"chain-1"}, b.chains.archived)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

// ─────────────────────────────────────────────────────────────────────────────
// extract / compare
// ─────────────────────────────────────────────────────────────────────────────

func TestExtract_JSON(t *testing.T) {
	path := writeDrawing(t, "rev-a.pdf", "Revise weld size per clause 4.2.")

	out, _, err := run(t, nil, "-o", "json", "extract", path)
	require.NoError(t, err)

	var res ExtractResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "rev-a", res.Comments[0].DocumentID)
	assert.Equal(t, "4.2", res.Comments[0].ClauseReference)
	assert.Equal(t, "Revise weld size per clause 4.2.", res.Comments[0].Text)
	assert.False(t, res.Saved)
}

func TestExtract_Table(t *testing.T) {
	path := writeDrawing(t, "rev-a.pdf", "Revise weld size per clause 4.2.")

	out, errOut, err := run(t, nil, "extract", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Revise weld size")
	assert.Contains(t, errOut, "1 comments from 1 pages")
}

func TestExtract_SaveUsesBackend(t *testing.T) {
	b := newFakeBackend()
	path := writeDrawing(t, "rev-a.pdf", "Revise weld size per clause 4.2.")

	out, _, err := run(t, b.factory(), "-o", "json", "extract", "--save", "--document-id", "doc-42", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-42"}, b.ingestion.ingested)

	var res ExtractResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Saved)
}

func TestExtract_MissingFile(t *testing.T) {
	_, _, err := run(t, nil, "extract", filepath.Join(t.TempDir(), "absent.pdf"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeDocumentUnreadable))
}

func TestCompare_CarriedOverComment(t *testing.T) {
	prev := writeDrawing(t, "rev-a.pdf", "Revise weld size per clause 4.2.")
	curr := writeDrawing(t, "rev-b.pdf", "Revise weld size per clause 4.2.")

	out, _, err := run(t, nil, "-o", "json", "compare", prev, curr)
	require.NoError(t, err)

	var res CompareResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Previous)
	assert.Equal(t, 1, res.CarryoverComments)
	assert.Equal(t, 0, res.NewComments)
	require.Len(t, res.Links, 1)
	assert.Equal(t, comment.LinkIdentical, res.Links[0].LinkType)
}

// ─────────────────────────────────────────────────────────────────────────────
// chain / migrate
// ─────────────────────────────────────────────────────────────────────────────

func TestChainCreate_DefaultsMaxRevisionsFromConfig(t *testing.T) {
	b := newFakeBackend()
	out, _, err := run(t, b.factory(), "chain", "create", "--title", "P&ID 100")
	require.NoError(t, err)
	assert.Equal(t, []int{config.DefaultMaxRevisions}, b.chains.created)
	assert.Contains(t, out, "chain chain-new created")
}

func TestChainAdd_MapsFlags(t *testing.T) {
	b := newFakeBackend()
	out, _, err := run(t, b.factory(), "chain", "add", "chain-1",
		"--document", "doc-b", "--label", "Rev B", "--parent", "rev-1", "--number", "2", "--submitted", "2024-02-01")
	require.NoError(t, err)

	require.Len(t, b.chains.added, 1)
	in := b.chains.added[0]
	assert.Equal(t, "chain-1", in.ChainID)
	assert.Equal(t, "doc-b", in.DocumentID)
	assert.Equal(t, 2, in.RevisionNumber)
	require.NotNil(t, in.ParentRevisionID)
	assert.Equal(t, "rev-1", *in.ParentRevisionID)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), *in.SubmittedDate)
	assert.Contains(t, out, "3 new, 1 carried over")
	assert.Contains(t, out, "HIGH")
}

func TestChainAdd_FileIsIngestedFirst(t *testing.T) {
	b := newFakeBackend()
	path := writeDrawing(t, "rev-c.pdf", "Add drain valve.")

	_, _, err := run(t, b.factory(), "chain", "add", "chain-1", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rev-c"}, b.ingestion.ingested)
	assert.Equal(t, "rev-c", b.chains.added[0].DocumentID)
}

func TestChainAdd_Validation(t *testing.T) {
	b := newFakeBackend()
	_, _, err := run(t, b.factory(), "chain", "add", "chain-1")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, _, err = run(t, b.factory(), "chain", "add", "chain-1", "--document", "d", "--submitted", "01/02/2024")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	assert.Empty(t, b.chains.added)
}

func TestChainStatus(t *testing.T) {
	b := newFakeBackend()
	_, _, err := run(t, b.factory(), "chain", "status", "rev-1", "under_review")
	require.NoError(t, err)
	assert.Equal(t, []domainRevision.Status{domainRevision.StatusUnderReview}, b.chains.statuses)

	_, _, err = run(t, b.factory(), "chain", "status", "rev-1", "approved")
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidStatus))
}

func TestChainResolve(t *testing.T) {
	b := newFakeBackend()
	out, _, err := run(t, b.factory(), "chain", "resolve", "rev-1", "3")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, b.chains.resolved)
	assert.Contains(t, out, "3 of 4 comments resolved")

	_, _, err = run(t, b.factory(), "chain", "resolve", "rev-1", "three")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestChainShow(t *testing.T) {
	b := newFakeBackend()
	b.chains.chainView = &revision.ChainView{
		Chain: sampleChain(),
		Revisions: []*domainRevision.Revision{
			{ID: "rev-1", RevisionNumber: 1, Label: "Rev A", Status: domainRevision.StatusSuperseded},
			{ID: "rev-2", RevisionNumber: 2, Label: "Rev B", Status: domainRevision.StatusSubmitted},
		},
	}

	out, _, err := run(t, b.factory(), "chain", "show", "chain-1")
	require.NoError(t, err)
	assert.Contains(t, out, "P&ID 100")
	assert.Contains(t, out, "Rev B")
	assert.Contains(t, out, "superseded")
	assert.Contains(t, out, "Schedule a review meeting.")

	_, _, err = run(t, newFakeBackend().factory(), "chain", "show", "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestMigrate(t *testing.T) {
	b := newFakeBackend()

	out, _, err := run(t, b.factory(), "migrate", "up")
	require.NoError(t, err)
	assert.Equal(t, 1, b.migrator.ups)
	assert.Contains(t, out, "schema version 2")

	_, _, err = run(t, b.factory(), "migrate", "down", "--steps", "2")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, b.migrator.downs)

	out, _, err = run(t, b.factory(), "-o", "json", "migrate", "status")
	require.NoError(t, err)
	var state postgres.MigrationState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, uint(0), state.Version)
}

//Personal.AI order the ending

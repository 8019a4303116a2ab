//go:build integration

package repositories_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
)

// startPostgres launches PostgreSQL 16 and returns a migrated connection.
func startPostgres(t *testing.T) *postgres.Connection {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "docrev",
				"POSTGRES_PASSWORD": "docrev",
				"POSTGRES_DB":       "docrev_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	conn, err := postgres.NewConnection(postgres.PostgresConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "docrev_test",
		Username: "docrev",
		Password: "docrev",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.RunMigrations())
	return conn
}

func seedComments(t *testing.T, repo comment.Repository, docID string, texts ...string) []*comment.Comment {
	t.Helper()
	var cs []*comment.Comment
	for i, text := range texts {
		c, err := comment.NewComment(docID, i+1, markup.RawItem{
			Text: text, Page: 1, BoundingBox: markup.BoundingBox{0, 0, 10, 10},
			Kind: markup.KindAnnotation, Origin: markup.OriginAnnotation,
		}, text, markup.ExtractClause(text))
		require.NoError(t, err)
		cs = append(cs, c)
	}
	require.NoError(t, repo.ReplaceForDocument(context.Background(), docID, cs))
	return cs
}

func TestRepositories_ChainLifecycle(t *testing.T) {
	conn := startPostgres(t)
	ctx := context.Background()
	revRepo := repositories.NewPostgresRevisionRepo(conn, nil)
	commentRepo := repositories.NewPostgresCommentRepo(conn, nil)

	state, err := conn.MigrationStatus()
	require.NoError(t, err)
	assert.Equal(t, uint(2), state.Version)
	assert.False(t, state.Dirty)

	chain, err := revision.NewChain("Pipe rack elevation", 3)
	require.NoError(t, err)
	require.NoError(t, revRepo.CreateChain(ctx, chain))

	first := seedComments(t, commentRepo, "doc-1", "Check clause 4.2 anchor bolts", "Dimension missing")
	second := seedComments(t, commentRepo, "doc-2", "Check clause 4.2 anchor bolts")

	var revs []*revision.Revision
	for i, doc := range []string{"doc-1", "doc-2"} {
		rev := &revision.Revision{
			ID: uuid.NewString(), ChainID: chain.ID, DocumentID: doc, Label: "Rev " + strconv.Itoa(i+1),
			RevisionNumber: i + 1, Status: revision.StatusSubmitted,
			SubmittedDate: time.Now().UTC(), CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
		}
		if i > 0 {
			rev.ParentRevisionID = &revs[i-1].ID
		}
		require.NoError(t, revRepo.WithTx(ctx, func(tx revision.Repository) error {
			locked, err := tx.GetChainForUpdate(ctx, chain.ID)
			if err != nil {
				return err
			}
			locked.RecordRevision(time.Now().UTC())
			if err := tx.CreateRevision(ctx, rev); err != nil {
				return err
			}
			return tx.UpdateChain(ctx, locked)
		}))
		revs = append(revs, rev)
	}

	links := comment.DetectLinks(first, second, comment.DefaultLinkThreshold)
	require.NotEmpty(t, links)
	comment.BindRevisions(links, revs[0].ID, revs[1].ID)
	require.NoError(t, revRepo.SaveLinks(ctx, links))

	stored, err := revRepo.ListLinks(ctx, revs[1].ID)
	require.NoError(t, err)
	assert.Len(t, stored, len(links))
	assert.Equal(t, comment.LinkIdentical, stored[0].LinkType)

	listed, err := revRepo.ListRevisions(ctx, chain.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, revs[0].ID, *listed[1].ParentRevisionID)

	got, err := revRepo.GetChain(ctx, chain.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentRevisionNumber)

	// A duplicate number hits the unique constraint.
	dup := *revs[1]
	dup.ID = uuid.NewString()
	dup.DocumentID = "doc-9"
	err = revRepo.CreateRevision(ctx, &dup)
	assert.True(t, errors.Is(err, revision.ErrDuplicateRevision))

	// Re-ingesting a document replaces its comments and drops their links.
	seedComments(t, commentRepo, "doc-2", "Rewritten note")
	stored, err = revRepo.ListLinks(ctx, revs[1].ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	cs, err := commentRepo.ListByDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, cs, 2)
	require.NoError(t, commentRepo.UpdatePriority(ctx, cs[0].ID, comment.PriorityHigh))
	c, err := commentRepo.GetByID(ctx, cs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, comment.PriorityHigh, c.Priority)
	assert.Equal(t, markup.BoundingBox{0, 0, 10, 10}, c.BoundingBox)
}

//Personal.AI order the ending

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

var (
	chainCols = []string{
		"id", "title", "current_revision_number", "total_revisions", "max_allowed_revisions",
		"risk_score", "risk_level", "recommendation", "predicted_completion_date", "archived",
		"created_at", "updated_at",
	}
	revisionCols = []string{
		"id", "chain_id", "document_id", "label", "revision_number", "parent_revision_id", "status",
		"new_comment_count", "carryover_comment_count", "resolved_comment_count", "complexity_score",
		"estimated_hours", "submitted_date", "completed_date", "created_at", "updated_at",
	}
)

type RevisionRepoTestSuite struct {
	suite.Suite
	mock sqlmock.Sqlmock
	db   *sql.DB
	repo revision.Repository
	now  time.Time
}

func (s *RevisionRepoTestSuite) SetupTest() {
	var err error
	s.db, s.mock, err = sqlmock.New()
	s.Require().NoError(err)
	s.repo = NewPostgresRevisionRepo(postgres.NewConnectionWithDB(s.db, logging.NewNopLogger()), logging.NewNopLogger())
	s.now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *RevisionRepoTestSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *RevisionRepoTestSuite) TestGetChain_Found() {
	id := uuid.NewString()
	predicted := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(`SELECT id, title, .* FROM revision_chains WHERE id = \$1$`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(chainCols).AddRow(
			id, "Pump house GA", 2, 2, 5, 41.5, "medium", "Monitor closely", predicted, false, s.now, s.now,
		))

	c, err := s.repo.GetChain(context.Background(), id)
	s.Require().NoError(err)
	s.Equal("Pump house GA", c.Title)
	s.Equal(2, c.CurrentRevisionNumber)
	s.Equal(revision.RiskMedium, c.RiskLevel)
	s.Require().NotNil(c.PredictedCompletionDate)
	s.True(predicted.Equal(*c.PredictedCompletionDate))
}

func (s *RevisionRepoTestSuite) TestGetChain_NotFound() {
	id := uuid.NewString()
	s.mock.ExpectQuery(`FROM revision_chains WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := s.repo.GetChain(context.Background(), id)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeChainNotFound))
	s.True(pkgerrors.IsNotFound(err))
}

func (s *RevisionRepoTestSuite) TestGetChain_MalformedIDIsNotFound() {
	_, err := s.repo.GetChain(context.Background(), "not-a-uuid")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeChainNotFound))
}

func (s *RevisionRepoTestSuite) TestGetChainForUpdate_LocksRow() {
	id := uuid.NewString()
	s.mock.ExpectQuery(`FROM revision_chains WHERE id = \$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(chainCols).AddRow(
			id, "Tank farm", 0, 0, 5, 0.0, "low", "", nil, false, s.now, s.now,
		))

	c, err := s.repo.GetChainForUpdate(context.Background(), id)
	s.Require().NoError(err)
	s.Nil(c.PredictedCompletionDate)
}

func (s *RevisionRepoTestSuite) TestCreateChain() {
	c, err := revision.NewChain("Substation layout", 4)
	s.Require().NoError(err)

	s.mock.ExpectExec(`INSERT INTO revision_chains`).
		WithArgs(c.ID, "Substation layout", 0, 0, 4, 0.0, sqlmock.AnyArg(), "", nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.CreateChain(context.Background(), c))
}

func (s *RevisionRepoTestSuite) TestUpdateChain_MissingRow() {
	c := &revision.Chain{ID: uuid.NewString(), Title: "x", MaxAllowedRevisions: 5, RiskLevel: revision.RiskLow}
	s.mock.ExpectExec(`UPDATE revision_chains SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.repo.UpdateChain(context.Background(), c)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeChainNotFound))
}

func (s *RevisionRepoTestSuite) TestCreateRevision_ConstraintMapping() {
	cases := []struct {
		constraint string
		code       pkgerrors.ErrorCode
	}{
		{"revisions_chain_number_key", pkgerrors.ErrCodeDuplicateRevision},
		{"revisions_document_key", pkgerrors.ErrCodeInvalidParent},
		{"revisions_pkey", pkgerrors.ErrCodeConflict},
	}
	for _, tc := range cases {
		s.Run(tc.constraint, func() {
			s.mock.ExpectExec(`INSERT INTO revisions`).
				WillReturnError(&pq.Error{Code: "23505", Constraint: tc.constraint})

			err := s.repo.CreateRevision(context.Background(), s.newRevision(1, nil))
			s.True(pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}
}

func (s *RevisionRepoTestSuite) TestCreateRevision_UnknownParent() {
	s.mock.ExpectExec(`INSERT INTO revisions`).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "revisions_parent_revision_id_fkey"})

	parent := uuid.NewString()
	err := s.repo.CreateRevision(context.Background(), s.newRevision(2, &parent))
	s.True(errors.Is(err, revision.ErrInvalidParent))
}

func (s *RevisionRepoTestSuite) TestListRevisions() {
	chainID := uuid.NewString()
	first, second := uuid.NewString(), uuid.NewString()
	completed := s.now.Add(48 * time.Hour)
	s.mock.ExpectQuery(`FROM revisions WHERE chain_id = \$1 ORDER BY revision_number`).
		WithArgs(chainID).
		WillReturnRows(sqlmock.NewRows(revisionCols).
			AddRow(first, chainID, "doc-a", "Rev 1", 1, nil, "superseded", 3, 0, 0, 40.0, 6.0, s.now, completed, s.now, s.now).
			AddRow(second, chainID, "doc-b", "Rev 2", 2, first, "submitted", 1, 2, 0, 30.0, 4.5, s.now, nil, s.now, s.now))

	revs, err := s.repo.ListRevisions(context.Background(), chainID)
	s.Require().NoError(err)
	s.Require().Len(revs, 2)
	s.Nil(revs[0].ParentRevisionID)
	s.Require().NotNil(revs[0].CompletedDate)
	s.Equal(revision.StatusSuperseded, revs[0].Status)
	s.Require().NotNil(revs[1].ParentRevisionID)
	s.Equal(first, *revs[1].ParentRevisionID)
	s.Equal(3, revs[1].TotalComments())
}

func (s *RevisionRepoTestSuite) TestFindRevisionByDocument_NotFound() {
	s.mock.ExpectQuery(`FROM revisions WHERE document_id = \$1`).
		WithArgs("doc-z").
		WillReturnRows(sqlmock.NewRows(revisionCols))

	_, err := s.repo.FindRevisionByDocument(context.Background(), "doc-z")
	s.True(pkgerrors.IsNotFound(err))
}

func (s *RevisionRepoTestSuite) TestUpdateRevision() {
	rev := s.newRevision(1, nil)
	s.mock.ExpectExec(`UPDATE revisions SET`).
		WithArgs(rev.ID, rev.Label, "submitted", 0, 0, 0, 0.0, 0.0, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.UpdateRevision(context.Background(), rev))
}

func (s *RevisionRepoTestSuite) TestSaveLinks_CopiesInOwnTransaction() {
	links := []*comment.Link{
		{SourceCommentID: uuid.NewString(), TargetCommentID: uuid.NewString(), SourceRevisionID: "r1", TargetRevisionID: "r2",
			LinkType: comment.LinkIdentical, SimilarityScore: 100, AIDetected: true, Confidence: 1},
		{ID: uuid.NewString(), SourceCommentID: uuid.NewString(), TargetCommentID: uuid.NewString(), SourceRevisionID: "r1", TargetRevisionID: "r2",
			LinkType: comment.LinkModified, SimilarityScore: 72.5, AIDetected: true, Confidence: 0.725, CreatedAt: s.now},
	}

	s.mock.ExpectBegin()
	prep := s.mock.ExpectPrepare(`COPY "comment_links"`)
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), links[0].SourceCommentID, links[0].TargetCommentID, "r1", "r2", "identical", 100.0, true, 1.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(links[1].ID, links[1].SourceCommentID, links[1].TargetCommentID, "r1", "r2", "modified", 72.5, true, 0.725, s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 2))
	s.mock.ExpectCommit()

	s.Require().NoError(s.repo.SaveLinks(context.Background(), links))
	s.NotEmpty(links[0].ID)
	s.False(links[0].CreatedAt.IsZero())
}

func (s *RevisionRepoTestSuite) TestSaveLinks_Empty() {
	s.NoError(s.repo.SaveLinks(context.Background(), nil))
}

func (s *RevisionRepoTestSuite) TestListLinks() {
	target := uuid.NewString()
	s.mock.ExpectQuery(`FROM comment_links\s+WHERE target_revision_id = \$1`).
		WithArgs(target).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "source_comment_id", "target_comment_id", "source_revision_id", "target_revision_id",
			"link_type", "similarity_score", "ai_detected", "confidence", "created_at",
		}).AddRow("l1", "c1", "c2", "r1", target, "related", 35.0, true, 0.35, s.now))

	links, err := s.repo.ListLinks(context.Background(), target)
	s.Require().NoError(err)
	s.Require().Len(links, 1)
	s.Equal(comment.LinkRelated, links[0].LinkType)
	s.Nil(links[0].Source)
}

func (s *RevisionRepoTestSuite) TestWithTx_CommitAndNesting() {
	id := uuid.NewString()
	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(chainCols).AddRow(id, "t", 0, 0, 5, 0.0, "low", "", nil, false, s.now, s.now))
	s.mock.ExpectExec(`UPDATE revision_chains SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := s.repo.WithTx(context.Background(), func(tx revision.Repository) error {
		c, err := tx.GetChainForUpdate(context.Background(), id)
		if err != nil {
			return err
		}
		// A nested WithTx joins the outer transaction.
		return tx.WithTx(context.Background(), func(inner revision.Repository) error {
			c.Title = "renamed"
			return inner.UpdateChain(context.Background(), c)
		})
	})
	s.NoError(err)
}

func (s *RevisionRepoTestSuite) TestWithTx_RollsBackOnError() {
	boom := errors.New("boom")
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	err := s.repo.WithTx(context.Background(), func(revision.Repository) error { return boom })
	s.ErrorIs(err, boom)
}

func (s *RevisionRepoTestSuite) TestWithTx_BeginFailure() {
	s.mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := s.repo.WithTx(context.Background(), func(revision.Repository) error { return nil })
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func (s *RevisionRepoTestSuite) newRevision(number int, parent *string) *revision.Revision {
	return &revision.Revision{
		ID:               uuid.NewString(),
		ChainID:          uuid.NewString(),
		DocumentID:       "doc-" + uuid.NewString(),
		Label:            "Rev",
		RevisionNumber:   number,
		ParentRevisionID: parent,
		Status:           revision.StatusSubmitted,
		SubmittedDate:    s.now,
		CreatedAt:        s.now,
		UpdatedAt:        s.now,
	}
}

func TestRevisionRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RevisionRepoTestSuite))
}

//Personal.AI order the ending

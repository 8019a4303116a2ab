package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/revision"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

const (
	chainColumns = `id, title, current_revision_number, total_revisions, max_allowed_revisions,
		risk_score, risk_level, recommendation, predicted_completion_date, archived, created_at, updated_at`

	revisionColumns = `id, chain_id, document_id, label, revision_number, parent_revision_id, status,
		new_comment_count, carryover_comment_count, resolved_comment_count, complexity_score,
		estimated_hours, submitted_date, completed_date, created_at, updated_at`

	linkColumns = `id, source_comment_id, target_comment_id, source_revision_id, target_revision_id,
		link_type, similarity_score, ai_detected, confidence, created_at`
)

type postgresRevisionRepo struct {
	baseRepo
}

// NewPostgresRevisionRepo returns the chain, revision and link store.
func NewPostgresRevisionRepo(conn *postgres.Connection, log logging.Logger) revision.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresRevisionRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

// WithTx binds a repository to one transaction.  Calls on a repository
// already inside a transaction join it.
func (r *postgresRevisionRepo) WithTx(ctx context.Context, fn func(revision.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.conn.DB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}
	txRepo := &postgresRevisionRepo{baseRepo: baseRepo{conn: r.conn, tx: tx, log: r.log}}
	if err := fn(txRepo); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Chains
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresRevisionRepo) CreateChain(ctx context.Context, c *revision.Chain) error {
	query := `
		INSERT INTO revision_chains (` + chainColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.executor().ExecContext(ctx, query,
		c.ID, c.Title, c.CurrentRevisionNumber, c.TotalRevisions, c.MaxAllowedRevisions,
		c.RiskScore, string(c.RiskLevel), c.Recommendation, c.PredictedCompletionDate, c.Archived,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := pgError(err); ok && pqErr.Code == sqlStateUniqueViolation {
			return errors.Wrap(err, errors.ErrCodeConflict, "revision chain already exists")
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create revision chain")
	}
	return nil
}

func (r *postgresRevisionRepo) GetChain(ctx context.Context, id string) (*revision.Chain, error) {
	query := `SELECT ` + chainColumns + ` FROM revision_chains WHERE id = $1`
	return r.getChain(ctx, query, id)
}

func (r *postgresRevisionRepo) GetChainForUpdate(ctx context.Context, id string) (*revision.Chain, error) {
	query := `SELECT ` + chainColumns + ` FROM revision_chains WHERE id = $1 FOR UPDATE`
	return r.getChain(ctx, query, id)
}

func (r *postgresRevisionRepo) getChain(ctx context.Context, query, id string) (*revision.Chain, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, revision.ErrChainNotFound.WithDetail(id)
	}
	c, err := scanChain(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, revision.ErrChainNotFound.WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load revision chain")
	}
	return c, nil
}

func (r *postgresRevisionRepo) UpdateChain(ctx context.Context, c *revision.Chain) error {
	query := `
		UPDATE revision_chains SET
			title = $2, current_revision_number = $3, total_revisions = $4, max_allowed_revisions = $5,
			risk_score = $6, risk_level = $7, recommendation = $8, predicted_completion_date = $9,
			archived = $10, updated_at = $11
		WHERE id = $1`
	res, err := r.executor().ExecContext(ctx, query,
		c.ID, c.Title, c.CurrentRevisionNumber, c.TotalRevisions, c.MaxAllowedRevisions,
		c.RiskScore, string(c.RiskLevel), c.Recommendation, c.PredictedCompletionDate,
		c.Archived, c.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update revision chain")
	}
	return ensureAffected(res, revision.ErrChainNotFound, c.ID)
}

func scanChain(row scanner) (*revision.Chain, error) {
	var (
		c         revision.Chain
		level     string
		predicted sql.NullTime
	)
	err := row.Scan(
		&c.ID, &c.Title, &c.CurrentRevisionNumber, &c.TotalRevisions, &c.MaxAllowedRevisions,
		&c.RiskScore, &level, &c.Recommendation, &predicted, &c.Archived, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.RiskLevel = revision.RiskLevel(level)
	c.PredictedCompletionDate = nullTime(predicted)
	return &c, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Revisions
// ─────────────────────────────────────────────────────────────────────────────

func (r *postgresRevisionRepo) CreateRevision(ctx context.Context, rev *revision.Revision) error {
	query := `
		INSERT INTO revisions (` + revisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := r.executor().ExecContext(ctx, query,
		rev.ID, rev.ChainID, rev.DocumentID, rev.Label, rev.RevisionNumber, rev.ParentRevisionID,
		string(rev.Status), rev.NewCommentCount, rev.CarryoverCommentCount, rev.ResolvedCommentCount,
		rev.ComplexityScore, rev.EstimatedHours, rev.SubmittedDate, rev.CompletedDate,
		rev.CreatedAt, rev.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := pgError(err); ok {
			switch {
			case pqErr.Code == sqlStateUniqueViolation && pqErr.Constraint == "revisions_chain_number_key":
				return revision.ErrDuplicateRevision.WithCause(err)
			case pqErr.Code == sqlStateUniqueViolation && pqErr.Constraint == "revisions_document_key":
				return revision.ErrInvalidParent.WithDetail("document already attached to a revision").WithCause(err)
			case pqErr.Code == sqlStateUniqueViolation:
				return errors.Wrap(err, errors.ErrCodeConflict, "revision already exists")
			case pqErr.Code == sqlStateForeignKeyViolation:
				return revision.ErrInvalidParent.WithCause(err)
			}
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create revision")
	}
	return nil
}

func (r *postgresRevisionRepo) GetRevision(ctx context.Context, id string) (*revision.Revision, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, revision.ErrRevisionNotFound.WithDetail(id)
	}
	query := `SELECT ` + revisionColumns + ` FROM revisions WHERE id = $1`
	rev, err := scanRevision(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, revision.ErrRevisionNotFound.WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load revision")
	}
	return rev, nil
}

func (r *postgresRevisionRepo) UpdateRevision(ctx context.Context, rev *revision.Revision) error {
	query := `
		UPDATE revisions SET
			label = $2, status = $3, new_comment_count = $4, carryover_comment_count = $5,
			resolved_comment_count = $6, complexity_score = $7, estimated_hours = $8,
			completed_date = $9, updated_at = $10
		WHERE id = $1`
	res, err := r.executor().ExecContext(ctx, query,
		rev.ID, rev.Label, string(rev.Status), rev.NewCommentCount, rev.CarryoverCommentCount,
		rev.ResolvedCommentCount, rev.ComplexityScore, rev.EstimatedHours, rev.CompletedDate, rev.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update revision")
	}
	return ensureAffected(res, revision.ErrRevisionNotFound, rev.ID)
}

func (r *postgresRevisionRepo) ListRevisions(ctx context.Context, chainID string) ([]*revision.Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisions WHERE chain_id = $1 ORDER BY revision_number`
	rows, err := r.executor().QueryContext(ctx, query, chainID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list revisions")
	}
	defer rows.Close()

	var out []*revision.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan revision")
		}
		out = append(out, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate revisions")
	}
	return out, nil
}

func (r *postgresRevisionRepo) FindRevisionByDocument(ctx context.Context, documentID string) (*revision.Revision, error) {
	query := `SELECT ` + revisionColumns + ` FROM revisions WHERE document_id = $1`
	rev, err := scanRevision(r.executor().QueryRowContext(ctx, query, documentID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, revision.ErrRevisionNotFound.WithDetail(documentID)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to find revision by document")
	}
	return rev, nil
}

func scanRevision(row scanner) (*revision.Revision, error) {
	var (
		rev       revision.Revision
		parent    sql.NullString
		status    string
		completed sql.NullTime
	)
	err := row.Scan(
		&rev.ID, &rev.ChainID, &rev.DocumentID, &rev.Label, &rev.RevisionNumber, &parent, &status,
		&rev.NewCommentCount, &rev.CarryoverCommentCount, &rev.ResolvedCommentCount, &rev.ComplexityScore,
		&rev.EstimatedHours, &rev.SubmittedDate, &completed, &rev.CreatedAt, &rev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if parent.Valid {
		p := parent.String
		rev.ParentRevisionID = &p
	}
	rev.Status = revision.Status(status)
	rev.CompletedDate = nullTime(completed)
	return &rev, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Links
// ─────────────────────────────────────────────────────────────────────────────

// SaveLinks bulk-loads links with COPY.
func (r *postgresRevisionRepo) SaveLinks(ctx context.Context, links []*comment.Link) error {
	if len(links) == 0 {
		return nil
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("comment_links",
			"id", "source_comment_id", "target_comment_id", "source_revision_id", "target_revision_id",
			"link_type", "similarity_score", "ai_detected", "confidence", "created_at"))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to prepare link copy")
		}
		defer stmt.Close()

		for _, l := range links {
			if l.ID == "" {
				l.ID = uuid.NewString()
			}
			if l.CreatedAt.IsZero() {
				l.CreatedAt = time.Now().UTC()
			}
			_, err := stmt.ExecContext(ctx,
				l.ID, l.SourceCommentID, l.TargetCommentID, l.SourceRevisionID, l.TargetRevisionID,
				string(l.LinkType), l.SimilarityScore, l.AIDetected, l.Confidence, l.CreatedAt,
			)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeLinkingFailed, "failed to copy link")
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return errors.Wrap(err, errors.ErrCodeLinkingFailed, "failed to flush link copy")
		}
		return nil
	})
}

func (r *postgresRevisionRepo) ListLinks(ctx context.Context, targetRevisionID string) ([]*comment.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM comment_links
		WHERE target_revision_id = $1
		ORDER BY similarity_score DESC, created_at`
	rows, err := r.executor().QueryContext(ctx, query, targetRevisionID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list links")
	}
	defer rows.Close()

	var out []*comment.Link
	for rows.Next() {
		var (
			l        comment.Link
			linkType string
		)
		if err := rows.Scan(
			&l.ID, &l.SourceCommentID, &l.TargetCommentID, &l.SourceRevisionID, &l.TargetRevisionID,
			&linkType, &l.SimilarityScore, &l.AIDetected, &l.Confidence, &l.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan link")
		}
		l.LinkType = comment.LinkType(linkType)
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate links")
	}
	return out, nil
}

//Personal.AI order the ending

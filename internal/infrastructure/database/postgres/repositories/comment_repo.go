package repositories

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
	"github.com/turtacn/DocRev-Intelligence/internal/domain/markup"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/DocRev-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/DocRev-Intelligence/pkg/errors"
)

const commentColumns = `id, document_id, serial_number, page, clause_reference, text, kind,
	color, bounding_box, priority, created_at`

var errCommentNotFound = errors.New(errors.ErrCodeCommentNotFound, "comment not found")

type postgresCommentRepo struct {
	baseRepo
}

// NewPostgresCommentRepo returns the extracted comment store.
func NewPostgresCommentRepo(conn *postgres.Connection, log logging.Logger) comment.Repository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &postgresCommentRepo{baseRepo: baseRepo{conn: conn, log: log}}
}

// ReplaceForDocument swaps a document's comments in one transaction.  Links
// that pointed at the old comments are removed by cascade.
func (r *postgresCommentRepo) ReplaceForDocument(ctx context.Context, documentID string, comments []*comment.Comment) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE document_id = $1`, documentID)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to clear document comments")
		}
		if n, _ := res.RowsAffected(); n > 0 {
			r.log.Debug("replaced document comments",
				logging.String(logging.FieldDocumentID, documentID),
				logging.Int64("removed", n),
				logging.Int("stored", len(comments)))
		}
		if len(comments) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("comments",
			"id", "document_id", "serial_number", "page", "clause_reference", "text", "kind",
			"color", "bounding_box", "priority", "created_at"))
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to prepare comment copy")
		}
		defer stmt.Close()

		for _, c := range comments {
			if c.DocumentID != documentID {
				return errors.NewValidation("comment belongs to another document").WithDetail(c.DocumentID)
			}
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			if err := c.Validate(); err != nil {
				return err
			}
			_, err := stmt.ExecContext(ctx,
				c.ID, c.DocumentID, c.SerialNumber, c.Page, c.ClauseReference, c.Text, string(c.Kind),
				pq.Array(c.Color[:]), pq.Array(c.BoundingBox[:]), string(c.Priority), c.CreatedAt,
			)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to copy comment")
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to flush comment copy")
		}
		return nil
	})
}

func (r *postgresCommentRepo) ListByDocument(ctx context.Context, documentID string) ([]*comment.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE document_id = $1 ORDER BY serial_number`
	rows, err := r.executor().QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list comments")
	}
	defer rows.Close()

	var out []*comment.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan comment")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate comments")
	}
	return out, nil
}

func (r *postgresCommentRepo) GetByID(ctx context.Context, id string) (*comment.Comment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errCommentNotFound.WithDetail(id)
	}
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	c, err := scanComment(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errCommentNotFound.WithDetail(id)
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load comment")
	}
	return c, nil
}

func (r *postgresCommentRepo) UpdatePriority(ctx context.Context, id string, priority comment.Priority) error {
	if !priority.IsValid() {
		return errors.New(errors.ErrCodeInvalidPriority, "invalid comment priority").WithDetail(string(priority))
	}
	if _, err := uuid.Parse(id); err != nil {
		return errCommentNotFound.WithDetail(id)
	}
	res, err := r.executor().ExecContext(ctx, `UPDATE comments SET priority = $2 WHERE id = $1`, id, string(priority))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update comment priority")
	}
	return ensureAffected(res, errCommentNotFound, id)
}

func scanComment(row scanner) (*comment.Comment, error) {
	var (
		c              comment.Comment
		kind, priority string
		color, bbox    pq.Float64Array
	)
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.SerialNumber, &c.Page, &c.ClauseReference, &c.Text, &kind,
		&color, &bbox, &priority, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Kind = markup.Kind(kind)
	c.Priority = comment.Priority(priority)
	copy(c.Color[:], color)
	copy(c.BoundingBox[:], bbox)
	return &c, nil
}

//Personal.AI order the ending

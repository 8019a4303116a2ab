package revision

import (
	"context"

	"github.com/turtacn/DocRev-Intelligence/internal/domain/comment"
)

// Repository persists chains, their revisions, and the comment links
// between consecutive revisions.
type Repository interface {
	CreateChain(ctx context.Context, chain *Chain) error
	GetChain(ctx context.Context, id string) (*Chain, error)
	// GetChainForUpdate loads the chain and locks its row until the
	// surrounding transaction ends.
	GetChainForUpdate(ctx context.Context, id string) (*Chain, error)
	UpdateChain(ctx context.Context, chain *Chain) error

	CreateRevision(ctx context.Context, rev *Revision) error
	GetRevision(ctx context.Context, id string) (*Revision, error)
	UpdateRevision(ctx context.Context, rev *Revision) error
	// ListRevisions returns the revisions of a chain by ascending number.
	ListRevisions(ctx context.Context, chainID string) ([]*Revision, error)
	// FindRevisionByDocument returns the revision a document is attached
	// to, or an error satisfying errors.IsNotFound.
	FindRevisionByDocument(ctx context.Context, documentID string) (*Revision, error)

	SaveLinks(ctx context.Context, links []*comment.Link) error
	// ListLinks returns the links whose target is in the given revision.
	ListLinks(ctx context.Context, targetRevisionID string) ([]*comment.Link, error)

	// WithTx runs fn against a repository bound to one transaction,
	// committing when fn returns nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

//Personal.AI order the ending

package comment

import "context"

// Repository persists the extracted comments of documents.
type Repository interface {
	// ReplaceForDocument deletes every comment of documentID and stores
	// comments in its place, atomically.
	ReplaceForDocument(ctx context.Context, documentID string, comments []*Comment) error
	// ListByDocument returns the comments of documentID ordered by serial.
	ListByDocument(ctx context.Context, documentID string) ([]*Comment, error)
	GetByID(ctx context.Context, id string) (*Comment, error)
	UpdatePriority(ctx context.Context, id string, priority Priority) error
}

//Personal.AI order the ending

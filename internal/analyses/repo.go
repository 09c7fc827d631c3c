package analyses

import "context"

// DefaultListLimit applies when ListByUser is called without a positive limit.
const DefaultListLimit = 20

// Repo persists analysis records. Records are written once and never updated.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, analysisID string) (Record, error)
	// ListByUser returns the user's records newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Record, error)
}

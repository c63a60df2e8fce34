package game

import "context"

// Repository exposes the game rows the synchronization engine reads and writes.
type Repository interface {
	ListRecent(ctx context.Context, limit int) ([]StoredGame, error)
	GetByID(ctx context.Context, id int64) (StoredGame, bool, error)
	ApplyResult(ctx context.Context, update ResultUpdate) error
}

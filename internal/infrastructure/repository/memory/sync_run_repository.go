package memory

import (
	"context"
	"sync"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
)

type SyncRunRepository struct {
	mu   sync.RWMutex
	runs []syncrun.Run
}

func NewSyncRunRepository() *SyncRunRepository {
	return &SyncRunRepository{}
}

func (r *SyncRunRepository) Record(_ context.Context, run syncrun.Run) error {
	run.Results = append([]game.ReconciliationResult(nil), run.Results...)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.runs {
		if existing.RunID == run.RunID {
			return nil
		}
	}
	r.runs = append(r.runs, run)
	return nil
}

// List returns recorded runs, oldest first.
func (r *SyncRunRepository) List() []syncrun.Run {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]syncrun.Run(nil), r.runs...)
}

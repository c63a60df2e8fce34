package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
)

type GameRepository struct {
	mu    sync.RWMutex
	games map[int64]game.StoredGame
}

func NewGameRepository(games []game.StoredGame) *GameRepository {
	byID := make(map[int64]game.StoredGame, len(games))
	for _, item := range games {
		byID[item.ID] = item
	}
	return &GameRepository{games: byID}
}

func (r *GameRepository) ListRecent(_ context.Context, limit int) ([]game.StoredGame, error) {
	r.mu.RLock()
	out := make([]game.StoredGame, 0, len(r.games))
	for _, item := range r.games {
		out = append(out, item)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.After(out[j].ScheduledTime)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *GameRepository) GetByID(_ context.Context, id int64) (game.StoredGame, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.games[id]
	return item, ok, nil
}

func (r *GameRepository) ApplyResult(_ context.Context, update game.ResultUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.games[update.GameID]
	if !ok {
		return fmt.Errorf("update game result id=%d: no row updated", update.GameID)
	}
	item.Winner = update.Winner
	item.FinalScore = strings.TrimSpace(update.FinalScore)
	if externalID := strings.TrimSpace(update.ExternalID); externalID != "" {
		item.ExternalID = externalID
	}
	r.games[update.GameID] = item
	return nil
}

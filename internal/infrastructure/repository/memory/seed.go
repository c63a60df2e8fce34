package memory

import (
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
)

// SeedGames returns a small NBA slate for running without a database.
func SeedGames() []game.StoredGame {
	day := time.Now().UTC().Truncate(24 * time.Hour)
	return []game.StoredGame{
		{ID: 1, ParticipantA: "Los Angeles Lakers", ParticipantB: "Boston Celtics", ScheduledTime: day.Add(-24 * time.Hour).Add(19 * time.Hour)},
		{ID: 2, ParticipantA: "Golden State Warriors", ParticipantB: "Denver Nuggets", ScheduledTime: day.Add(-24 * time.Hour).Add(22 * time.Hour)},
		{ID: 3, ParticipantA: "Miami Heat", ParticipantB: "New York Knicks", ScheduledTime: day.Add(19 * time.Hour)},
		{ID: 4, ParticipantA: "Milwaukee Bucks", ParticipantB: "Philadelphia 76ers", ScheduledTime: day.Add(20 * time.Hour)},
	}
}

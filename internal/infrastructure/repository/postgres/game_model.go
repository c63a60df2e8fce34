package postgres

import (
	"database/sql"
	"time"
)

// gameTableModel mirrors the columns of "Game" read by the sync.
type gameTableModel struct {
	ID          int64          `db:"id"`
	ESPNID      sql.NullString `db:"espnId"`
	Team1Name   sql.NullString `db:"team1Name"`
	Team2Name   sql.NullString `db:"team2Name"`
	ScheduledAt time.Time      `db:"scheduled_at"`
	Winner      sql.NullBool   `db:"winner"`
	FinalScore  sql.NullString `db:"final_score"`
}

var gameSelectColumns = []string{
	"id",
	`"espnId"`,
	`"team1Name"`,
	`"team2Name"`,
	`("gameDate" + COALESCE("gameTime", TIME '00:00')) AS scheduled_at`,
	"winner",
	"final_score",
}

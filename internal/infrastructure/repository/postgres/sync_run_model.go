package postgres

import (
	"database/sql"
	"time"
)

type syncRunTableModel struct {
	RunID        string         `db:"run_id"`
	Trigger      string         `db:"trigger"`
	Sport        string         `db:"sport"`
	Status       string         `db:"status"`
	EventCount   int            `db:"event_count"`
	UpdatedCount int            `db:"updated_count"`
	NotFound     int            `db:"not_found_count"`
	InvalidCount int            `db:"invalid_count"`
	FailedCount  int            `db:"failed_count"`
	ErrorMessage sql.NullString `db:"error_message"`
	Results      string         `db:"results"`
	StartedAt    time.Time      `db:"started_at"`
	FinishedAt   time.Time      `db:"finished_at"`
}

type syncRunResultJSON struct {
	ExternalID string `json:"externalId"`
	LocalID    *int64 `json:"localId"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
}

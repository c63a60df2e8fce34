package syncrun

import (
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
)

type Trigger string

const (
	TriggerAdmin     Trigger = "admin"
	TriggerAutomated Trigger = "automated"
	TriggerSchedule  Trigger = "schedule"
	TriggerCLI       Trigger = "cli"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is the audit record of one synchronization pass.
type Run struct {
	RunID        string
	Trigger      Trigger
	Sport        string
	Status       Status
	EventCount   int
	UpdatedCount int
	NotFound     int
	InvalidCount int
	FailedCount  int
	ErrorMessage string
	Results      []game.ReconciliationResult
	StartedAt    time.Time
	FinishedAt   time.Time
}

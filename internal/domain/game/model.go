package game

import (
	"strings"
	"time"
)

// StoredGame is a locally persisted game row.
type StoredGame struct {
	ID            int64
	ExternalID    string
	ParticipantA  string
	ParticipantB  string
	ScheduledTime time.Time
	Winner        Winner
	FinalScore    string
}

// HasParticipants reports whether both team names are populated.
func (g StoredGame) HasParticipants() bool {
	return strings.TrimSpace(g.ParticipantA) != "" && strings.TrimSpace(g.ParticipantB) != ""
}

// Winner is the resolved side of a finished game.
type Winner int

const (
	Undetermined Winner = iota
	ParticipantAWon
	ParticipantBWon
)

func (w Winner) String() string {
	switch w {
	case ParticipantAWon:
		return "participant_a"
	case ParticipantBWon:
		return "participant_b"
	default:
		return "undetermined"
	}
}

// WinnerFromScores resolves the winner for a score pair ordered as A-B.
func WinnerFromScores(scoreA, scoreB int) Winner {
	switch {
	case scoreA > scoreB:
		return ParticipantAWon
	case scoreB > scoreA:
		return ParticipantBWon
	default:
		return Undetermined
	}
}

type CompletionState string

const (
	StateScheduled  CompletionState = "pre"
	StateInProgress CompletionState = "in"
	StateCompleted  CompletionState = "post"
)

// Side is a participant as reported by the upstream scoreboard.
type Side struct {
	DisplayName string
	Score       string
}

// ExternalGame is one scoreboard event reported by the upstream provider.
type ExternalGame struct {
	ExternalID    string
	ScheduledTime time.Time
	State         CompletionState
	Completed     bool
	Home          Side
	Away          Side
}

type Outcome string

const (
	OutcomeUpdated     Outcome = "updated"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeInvalidData Outcome = "invalid_data"
	OutcomeFailed      Outcome = "failed"
)

// ReconciliationResult reports what happened to one external game during a sync pass.
type ReconciliationResult struct {
	ExternalID string
	LocalID    *int64
	Outcome    Outcome
	Message    string
}

// ResultUpdate is the persisted outcome of a finished game.
type ResultUpdate struct {
	GameID     int64
	Winner     Winner
	FinalScore string
	ExternalID string
}

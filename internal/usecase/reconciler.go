package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

var (
	errInvalidScore = errors.New("game scores are missing or invalid")
	errDrawnResult  = errors.New("game ended level, a drawn result cannot be recorded")
)

// ScoreLine is a final score expressed in stored participant order.
type ScoreLine struct {
	ScoreA int
	ScoreB int
	Winner game.Winner
}

func (s ScoreLine) FinalScore() string {
	return strconv.Itoa(s.ScoreA) + "-" + strconv.Itoa(s.ScoreB)
}

// ComputeScoreLine maps home/away scores onto participant A/B order.
func ComputeScoreLine(ext game.ExternalGame, homeIsParticipantA bool) (ScoreLine, error) {
	home, ok := parseScore(ext.Home.Score)
	if !ok {
		return ScoreLine{}, errInvalidScore
	}
	away, ok := parseScore(ext.Away.Score)
	if !ok {
		return ScoreLine{}, errInvalidScore
	}

	line := ScoreLine{ScoreA: away, ScoreB: home}
	if homeIsParticipantA {
		line = ScoreLine{ScoreA: home, ScoreB: away}
	}
	line.Winner = game.WinnerFromScores(line.ScoreA, line.ScoreB)
	if line.Winner == game.Undetermined {
		return line, errDrawnResult
	}
	return line, nil
}

func parseScore(raw string) (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

// Reconciler computes and persists the final result of a matched game.
type Reconciler struct {
	repo   game.Repository
	verify bool
	logger *logging.Logger
}

func NewReconciler(repo game.Repository, verify bool, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{repo: repo, verify: verify, logger: logger}
}

func (r *Reconciler) Reconcile(ctx context.Context, ext game.ExternalGame, match GameMatch) game.ReconciliationResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.Reconciler.Reconcile",
		attribute.String("external_id", ext.ExternalID),
		attribute.Int64("game_id", match.Game.ID),
	)
	defer span.End()

	localID := match.Game.ID
	result := game.ReconciliationResult{
		ExternalID: ext.ExternalID,
		LocalID:    &localID,
	}

	line, err := ComputeScoreLine(ext, match.HomeIsParticipantA)
	if err != nil {
		result.Outcome = game.OutcomeInvalidData
		result.Message = capitalize(err.Error())
		return result
	}

	update := game.ResultUpdate{
		GameID:     match.Game.ID,
		Winner:     line.Winner,
		FinalScore: line.FinalScore(),
	}
	if strings.TrimSpace(match.Game.ExternalID) == "" {
		update.ExternalID = ext.ExternalID
	}

	// The write outlives caller cancellation so a begun transaction always settles.
	writeCtx := context.WithoutCancel(ctx)
	if err := r.repo.ApplyResult(writeCtx, update); err != nil {
		recordSpanError(span, err)
		r.logger.ErrorContext(ctx, "apply game result failed",
			"game_id", match.Game.ID,
			"external_id", ext.ExternalID,
			"error", err,
		)
		result.Outcome = game.OutcomeFailed
		result.Message = fmt.Sprintf("Failed to update game: %v", err)
		return result
	}

	if r.verify {
		r.verifyWrite(writeCtx, update)
	}

	result.Outcome = game.OutcomeUpdated
	result.Message = fmt.Sprintf("Updated game with score %s, winner: %t", update.FinalScore, update.Winner == game.ParticipantBWon)
	return result
}

func (r *Reconciler) verifyWrite(ctx context.Context, update game.ResultUpdate) {
	stored, ok, err := r.repo.GetByID(ctx, update.GameID)
	if err != nil {
		r.logger.WarnContext(ctx, "verify game result read failed", "game_id", update.GameID, "error", err)
		return
	}
	if !ok {
		r.logger.WarnContext(ctx, "verify game result: row disappeared", "game_id", update.GameID)
		return
	}
	if stored.Winner != update.Winner || stored.FinalScore != update.FinalScore {
		r.logger.WarnContext(ctx, "verify game result mismatch",
			"game_id", update.GameID,
			"want_winner", update.Winner.String(),
			"got_winner", stored.Winner.String(),
			"want_final_score", update.FinalScore,
			"got_final_score", stored.FinalScore,
		)
		return
	}
	r.logger.DebugContext(ctx, "verified game result", "game_id", update.GameID, "final_score", stored.FinalScore)
}

func capitalize(msg string) string {
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

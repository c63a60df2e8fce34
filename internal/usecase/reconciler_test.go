package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	gamemock "github.com/allanhy/tallysight-sub000/internal/mocks/domain/game"
	"github.com/stretchr/testify/mock"
)

func TestComputeScoreLine(t *testing.T) {
	t.Parallel()

	ext := completedGame("g1", "Lakers", "100", "Celtics", "98")

	line, err := ComputeScoreLine(ext, true)
	if err != nil {
		t.Fatalf("compute correct orientation: %v", err)
	}
	if line.FinalScore() != "100-98" || line.Winner != game.ParticipantAWon {
		t.Fatalf("unexpected correct orientation line: %+v", line)
	}

	line, err = ComputeScoreLine(ext, false)
	if err != nil {
		t.Fatalf("compute reversed orientation: %v", err)
	}
	if line.FinalScore() != "98-100" || line.Winner != game.ParticipantBWon {
		t.Fatalf("unexpected reversed orientation line: %+v", line)
	}
}

func TestComputeScoreLine_InvalidScores(t *testing.T) {
	t.Parallel()

	for _, scores := range [][2]string{{"", "98"}, {"100", "abc"}, {"-1", "3"}, {"1.5", "2"}} {
		ext := completedGame("g1", "Lakers", scores[0], "Celtics", scores[1])
		if _, err := ComputeScoreLine(ext, true); !errors.Is(err, errInvalidScore) {
			t.Fatalf("scores %v: expected errInvalidScore, got %v", scores, err)
		}
	}
}

func TestComputeScoreLine_Draw(t *testing.T) {
	t.Parallel()

	ext := completedGame("g1", "Arsenal", "1", "Chelsea", "1")
	line, err := ComputeScoreLine(ext, true)
	if !errors.Is(err, errDrawnResult) {
		t.Fatalf("expected errDrawnResult, got %v", err)
	}
	if line.Winner != game.Undetermined {
		t.Fatalf("expected undetermined winner, got %s", line.Winner)
	}
}

func TestReconciler_Reconcile_CorrectOrientation(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	reconciler := NewReconciler(repo, false, nil)
	stored := game.StoredGame{ID: 1, ParticipantA: "Lakers", ParticipantB: "Celtics"}

	repo.
		On("ApplyResult", mock.Anything, game.ResultUpdate{
			GameID:     1,
			Winner:     game.ParticipantAWon,
			FinalScore: "100-98",
			ExternalID: "g1",
		}).
		Return(nil).
		Once()

	result := reconciler.Reconcile(context.Background(), completedGame("g1", "Lakers", "100", "Celtics", "98"), GameMatch{Game: stored, HomeIsParticipantA: true})
	if result.Outcome != game.OutcomeUpdated {
		t.Fatalf("expected updated, got %+v", result)
	}
	if result.LocalID == nil || *result.LocalID != 1 {
		t.Fatalf("expected local id 1, got %+v", result.LocalID)
	}
	if result.Message != "Updated game with score 100-98, winner: false" {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestReconciler_Reconcile_ReversedOrientationKeepsStoredExternalID(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	reconciler := NewReconciler(repo, false, nil)
	stored := game.StoredGame{ID: 2, ExternalID: "g1", ParticipantA: "Celtics", ParticipantB: "Lakers"}

	repo.
		On("ApplyResult", mock.Anything, game.ResultUpdate{
			GameID:     2,
			Winner:     game.ParticipantBWon,
			FinalScore: "98-100",
		}).
		Return(nil).
		Once()

	result := reconciler.Reconcile(context.Background(), completedGame("g1", "Lakers", "100", "Celtics", "98"), GameMatch{Game: stored, HomeIsParticipantA: false})
	if result.Outcome != game.OutcomeUpdated || !strings.HasSuffix(result.Message, "winner: true") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestReconciler_Reconcile_InvalidScoreSkipsWrite(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	reconciler := NewReconciler(repo, false, nil)

	result := reconciler.Reconcile(context.Background(),
		completedGame("g1", "Lakers", "", "Celtics", "98"),
		GameMatch{Game: game.StoredGame{ID: 1, ParticipantA: "Lakers", ParticipantB: "Celtics"}, HomeIsParticipantA: true},
	)
	if result.Outcome != game.OutcomeInvalidData {
		t.Fatalf("expected invalid_data, got %+v", result)
	}
	if result.Message != "Game scores are missing or invalid" {
		t.Fatalf("unexpected message: %s", result.Message)
	}
	repo.AssertNotCalled(t, "ApplyResult", mock.Anything, mock.Anything)
}

func TestReconciler_Reconcile_WriteFailure(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	reconciler := NewReconciler(repo, false, nil)

	repo.On("ApplyResult", mock.Anything, mock.Anything).Return(errors.New("deadlock detected")).Once()

	result := reconciler.Reconcile(context.Background(),
		completedGame("g1", "Lakers", "100", "Celtics", "98"),
		GameMatch{Game: game.StoredGame{ID: 1, ParticipantA: "Lakers", ParticipantB: "Celtics"}, HomeIsParticipantA: true},
	)
	if result.Outcome != game.OutcomeFailed {
		t.Fatalf("expected failed, got %+v", result)
	}
	if !strings.Contains(result.Message, "deadlock detected") {
		t.Fatalf("expected write error in message, got %s", result.Message)
	}
}

func TestReconciler_Reconcile_WriteSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	reconciler := NewReconciler(repo, true, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo.
		On("ApplyResult", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything).
		Return(nil).
		Once()
	repo.
		On("GetByID", mock.Anything, int64(1)).
		Return(game.StoredGame{ID: 1, Winner: game.ParticipantAWon, FinalScore: "100-98"}, true, nil).
		Once()

	result := reconciler.Reconcile(ctx,
		completedGame("g1", "Lakers", "100", "Celtics", "98"),
		GameMatch{Game: game.StoredGame{ID: 1, ParticipantA: "Lakers", ParticipantB: "Celtics"}, HomeIsParticipantA: true},
	)
	if result.Outcome != game.OutcomeUpdated {
		t.Fatalf("expected updated, got %+v", result)
	}
}

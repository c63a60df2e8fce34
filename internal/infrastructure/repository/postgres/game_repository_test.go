package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/jmoiron/sqlx"
)

const (
	applyResultSQL         = `UPDATE "Game" SET winner = $1, won = $2, final_score = $3, updated_at = NOW() WHERE id = $4`
	applyResultBackfillSQL = `UPDATE "Game" SET winner = $1, won = $2, final_score = $3, updated_at = NOW(), "espnId" = $4 WHERE id = $5`
)

func newMockGameRepository(t *testing.T) (*GameRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewGameRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestApplyResultStatement(t *testing.T) {
	t.Run("plain result", func(t *testing.T) {
		query, args, err := applyResultStatement(game.ResultUpdate{GameID: 7, Winner: game.ParticipantAWon, FinalScore: "100-98"})
		if err != nil {
			t.Fatalf("build statement: %v", err)
		}
		if query != applyResultSQL {
			t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", applyResultSQL, query)
		}
		if len(args) != 4 {
			t.Fatalf("unexpected args: %+v", args)
		}
		if winner := args[0].(sql.NullBool); !winner.Valid || winner.Bool {
			t.Fatalf("unexpected winner arg: %+v", winner)
		}
		if won := args[1].(sql.NullInt64); !won.Valid || won.Int64 != 0 {
			t.Fatalf("unexpected won arg: %+v", won)
		}
		if score := args[2].(sql.NullString); score.String != "100-98" {
			t.Fatalf("unexpected final_score arg: %+v", score)
		}
		if args[3] != int64(7) {
			t.Fatalf("unexpected id arg: %v", args[3])
		}
	})

	t.Run("backfills external id", func(t *testing.T) {
		query, args, err := applyResultStatement(game.ResultUpdate{GameID: 9, Winner: game.ParticipantBWon, FinalScore: "98-100", ExternalID: " 401585601 "})
		if err != nil {
			t.Fatalf("build statement: %v", err)
		}
		if query != applyResultBackfillSQL {
			t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", applyResultBackfillSQL, query)
		}
		if len(args) != 5 || args[3] != "401585601" || args[4] != int64(9) {
			t.Fatalf("unexpected args: %+v", args)
		}
	})
}

func TestGameRepository_ApplyResult_Commits(t *testing.T) {
	repo, mock := newMockGameRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(applyResultBackfillSQL).
		WithArgs(true, int64(1), "98-100", "g1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ApplyResult(context.Background(), game.ResultUpdate{GameID: 3, Winner: game.ParticipantBWon, FinalScore: "98-100", ExternalID: "g1"})
	if err != nil {
		t.Fatalf("ApplyResult error: %v", err)
	}
}

func TestGameRepository_ApplyResult_NoRowRollsBack(t *testing.T) {
	repo, mock := newMockGameRepository(t)

	mock.ExpectBegin()
	mock.ExpectExec(applyResultSQL).
		WithArgs(false, int64(0), "100-98", int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyResult(context.Background(), game.ResultUpdate{GameID: 404, Winner: game.ParticipantAWon, FinalScore: "100-98"})
	if err == nil || !strings.Contains(err.Error(), "no row updated") {
		t.Fatalf("expected no row updated error, got %v", err)
	}
}

func TestGameRepository_ApplyResult_ExecErrorRollsBack(t *testing.T) {
	repo, mock := newMockGameRepository(t)
	execErr := errors.New("connection reset by peer")

	mock.ExpectBegin()
	mock.ExpectExec(applyResultSQL).WillReturnError(execErr)
	mock.ExpectRollback()

	err := repo.ApplyResult(context.Background(), game.ResultUpdate{GameID: 5, Winner: game.ParticipantAWon, FinalScore: "2-1"})
	if !errors.Is(err, execErr) {
		t.Fatalf("expected wrapped exec error, got %v", err)
	}
}

func TestGameRepository_ApplyResult_BeginFailure(t *testing.T) {
	repo, mock := newMockGameRepository(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := repo.ApplyResult(context.Background(), game.ResultUpdate{GameID: 5, Winner: game.ParticipantAWon, FinalScore: "2-1"})
	if err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("expected begin error, got %v", err)
	}
}

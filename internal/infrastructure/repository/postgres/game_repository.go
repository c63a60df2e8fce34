package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	qb "github.com/allanhy/tallysight-sub000/internal/platform/querybuilder"
	"github.com/jmoiron/sqlx"
)

const gameTable = `"Game"`

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

// ListRecent returns the most recent games across all sports, newest first.
func (r *GameRepository) ListRecent(ctx context.Context, limit int) ([]game.StoredGame, error) {
	query, args, err := qb.Select(gameSelectColumns...).
		From(gameTable).
		OrderBy(`"gameDate" DESC`, `"gameTime" DESC NULLS LAST`, "id DESC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select recent games query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select recent games: %w", err)
	}

	out := make([]game.StoredGame, 0, len(rows))
	for _, row := range rows {
		out = append(out, gameFromRow(row))
	}
	return out, nil
}

func (r *GameRepository) GetByID(ctx context.Context, id int64) (game.StoredGame, bool, error) {
	query, args, err := qb.Select(gameSelectColumns...).
		From(gameTable).
		Where(qb.Eq("id", id)).
		Limit(1).
		ToSQL()
	if err != nil {
		return game.StoredGame{}, false, fmt.Errorf("build select game by id query: %w", err)
	}

	var row gameTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return game.StoredGame{}, false, nil
		}
		return game.StoredGame{}, false, fmt.Errorf("get game by id=%d: %w", id, err)
	}
	return gameFromRow(row), true, nil
}

// ApplyResult writes winner, won and final_score in one transaction, backfilling
// "espnId" when the update carries one. Nothing is committed unless the target
// row was updated.
func (r *GameRepository) ApplyResult(ctx context.Context, update game.ResultUpdate) error {
	query, args, err := applyResultStatement(update)
	if err != nil {
		return fmt.Errorf("build update game result query: %w", err)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for game result: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update game result id=%d: %w", update.GameID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows for game id=%d: %w", update.GameID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update game result id=%d: no row updated", update.GameID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit game result id=%d: %w", update.GameID, err)
	}
	return nil
}

func applyResultStatement(update game.ResultUpdate) (string, []any, error) {
	winner, won := winnerColumns(update.Winner)
	builder := qb.Update(gameTable).
		Set("winner", winner).
		Set("won", won).
		Set("final_score", nullableString(update.FinalScore)).
		SetExpr("updated_at", "NOW()")
	if externalID := strings.TrimSpace(update.ExternalID); externalID != "" {
		builder = builder.Set(`"espnId"`, externalID)
	}
	return builder.Where(qb.Eq("id", update.GameID)).ToSQL()
}

func gameFromRow(row gameTableModel) game.StoredGame {
	return game.StoredGame{
		ID:            row.ID,
		ExternalID:    strings.TrimSpace(row.ESPNID.String),
		ParticipantA:  row.Team1Name.String,
		ParticipantB:  row.Team2Name.String,
		ScheduledTime: row.ScheduledAt.UTC(),
		Winner:        winnerFromColumn(row.Winner),
		FinalScore:    row.FinalScore.String,
	}
}

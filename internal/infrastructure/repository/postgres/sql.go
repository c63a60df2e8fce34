package postgres

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// winnerColumns encodes a winner as the stored winner/won pair:
// false/0 when participant A won, true/1 when B won, NULL/NULL otherwise.
func winnerColumns(winner game.Winner) (sql.NullBool, sql.NullInt64) {
	switch winner {
	case game.ParticipantAWon:
		return sql.NullBool{Bool: false, Valid: true}, sql.NullInt64{Int64: 0, Valid: true}
	case game.ParticipantBWon:
		return sql.NullBool{Bool: true, Valid: true}, sql.NullInt64{Int64: 1, Valid: true}
	default:
		return sql.NullBool{}, sql.NullInt64{}
	}
}

func winnerFromColumn(value sql.NullBool) game.Winner {
	if !value.Valid {
		return game.Undetermined
	}
	if value.Bool {
		return game.ParticipantBWon
	}
	return game.ParticipantAWon
}

func nullableString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}

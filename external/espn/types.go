package espn

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	sonic "github.com/bytedance/sonic"
)

var eventDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z",
}

type scoreboardEnvelope struct {
	Events *[]eventDTO `json:"events"`
}

type eventDTO struct {
	ID           string           `json:"id" validate:"required"`
	Date         string           `json:"date" validate:"required"`
	Name         string           `json:"name"`
	Status       statusDTO        `json:"status"`
	Competitions []competitionDTO `json:"competitions" validate:"required,min=1,dive"`
}

type statusDTO struct {
	Type statusTypeDTO `json:"type"`
}

type statusTypeDTO struct {
	State     string `json:"state" validate:"omitempty,oneof=pre in post"`
	Completed bool   `json:"completed"`
	Detail    string `json:"detail"`
}

type competitionDTO struct {
	ID          string          `json:"id"`
	Competitors []competitorDTO `json:"competitors" validate:"len=2,dive"`
}

type competitorDTO struct {
	HomeAway string     `json:"homeAway" validate:"oneof=home away"`
	Score    scoreValue `json:"score"`
	Team     teamDTO    `json:"team"`
}

type teamDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName" validate:"required"`
}

// scoreValue accepts the score as a JSON string or number. Semantic checks happen at reconciliation.
type scoreValue string

func (s *scoreValue) UnmarshalJSON(raw []byte) error {
	text := strings.TrimSpace(string(raw))
	if text == "null" || text == "" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		var value string
		if err := sonic.Unmarshal(raw, &value); err != nil {
			return err
		}
		*s = scoreValue(value)
		return nil
	}
	if _, err := strconv.ParseFloat(text, 64); err != nil {
		return fmt.Errorf("score must be a string or number, got %s", text)
	}
	*s = scoreValue(text)
	return nil
}

func (e eventDTO) toExternalGame() (game.ExternalGame, error) {
	scheduled, err := parseEventDate(e.Date)
	if err != nil {
		return game.ExternalGame{}, fmt.Errorf("event %s: %w", e.ID, err)
	}

	var home, away *competitorDTO
	competitors := e.Competitions[0].Competitors
	for i := range competitors {
		switch competitors[i].HomeAway {
		case "home":
			home = &competitors[i]
		case "away":
			away = &competitors[i]
		}
	}
	if home == nil || away == nil {
		return game.ExternalGame{}, fmt.Errorf("event %s: competition must have one home and one away competitor", e.ID)
	}

	return game.ExternalGame{
		ExternalID:    strings.TrimSpace(e.ID),
		ScheduledTime: scheduled,
		State:         game.CompletionState(e.Status.Type.State),
		Completed:     e.Status.Type.Completed,
		Home:          game.Side{DisplayName: strings.TrimSpace(home.Team.DisplayName), Score: string(home.Score)},
		Away:          game.Side{DisplayName: strings.TrimSpace(away.Team.DisplayName), Score: string(away.Score)},
	}, nil
}

func parseEventDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range eventDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable event date %q", raw)
}

package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/platform/cache"
)

// ScoreboardService serves read-only scoreboard snapshots, cached per sport and date.
type ScoreboardService struct {
	provider     ScoreboardProvider
	store        *cache.Store[[]game.ExternalGame]
	defaultSport string
}

func NewScoreboardService(provider ScoreboardProvider, ttl time.Duration, fallbackSport string) *ScoreboardService {
	fallbackSport = strings.ToUpper(strings.TrimSpace(fallbackSport))
	if fallbackSport == "" {
		fallbackSport = defaultSport
	}
	return &ScoreboardService{
		provider:     provider,
		store:        cache.NewStore[[]game.ExternalGame](ttl),
		defaultSport: fallbackSport,
	}
}

func (s *ScoreboardService) Get(ctx context.Context, sport, date string) ([]game.ExternalGame, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoreboardService.Get")
	defer span.End()

	sport = strings.ToUpper(strings.TrimSpace(sport))
	if sport == "" {
		sport = s.defaultSport
	}
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(scoreboardDateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: date must use YYYYMMDD format", ErrInvalidInput)
		}
	}

	events, err := s.store.GetOrLoad(ctx, "scoreboard:"+sport+":"+date, func(ctx context.Context) ([]game.ExternalGame, error) {
		return s.provider.FetchScoreboard(ctx, sport, date)
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return append([]game.ExternalGame(nil), events...), nil
}

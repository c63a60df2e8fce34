package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/allanhy/tallysight-sub000/internal/usecase"
	"github.com/go-playground/validator/v10"
)

// GameSyncer runs synchronization passes.
type GameSyncer interface {
	Sync(ctx context.Context, input usecase.SyncInput) (usecase.SyncReport, error)
	SyncAll(ctx context.Context, trigger syncrun.Trigger) (usecase.AutomatedSyncResult, error)
}

// ScoreboardReader serves the decoded upstream scoreboard.
type ScoreboardReader interface {
	Get(ctx context.Context, sport, date string) ([]game.ExternalGame, error)
}

type Handler struct {
	syncer     GameSyncer
	scoreboard ScoreboardReader
	logger     *logging.Logger
	validator  *validator.Validate
}

func NewHandler(syncer GameSyncer, scoreboard ScoreboardReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		syncer:     syncer,
		scoreboard: scoreboard,
		logger:     logger.Named("httpapi"),
		validator:  validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetScoreboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetScoreboard")
	defer span.End()

	if h.scoreboard == nil {
		writeError(ctx, w, fmt.Errorf("%w: scoreboard service is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	sport := r.PathValue("sport")
	date := r.URL.Query().Get("date")
	events, err := h.scoreboard.Get(ctx, sport, date)
	if err != nil {
		h.logger.WarnContext(ctx, "get scoreboard failed", "sport", sport, "date", date, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]externalGameDTO, 0, len(events))
	for _, event := range events {
		items = append(items, externalGameToDTO(event))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type sideDTO struct {
	Team  string `json:"team"`
	Score string `json:"score"`
}

type externalGameDTO struct {
	ExternalID    string  `json:"externalId"`
	ScheduledTime string  `json:"scheduledTime"`
	State         string  `json:"state"`
	Completed     bool    `json:"completed"`
	Home          sideDTO `json:"home"`
	Away          sideDTO `json:"away"`
}

func externalGameToDTO(v game.ExternalGame) externalGameDTO {
	return externalGameDTO{
		ExternalID:    v.ExternalID,
		ScheduledTime: v.ScheduledTime.UTC().Format("2006-01-02T15:04:05Z07:00"),
		State:         string(v.State),
		Completed:     v.Completed,
		Home:          sideDTO{Team: v.Home.DisplayName, Score: v.Home.Score},
		Away:          sideDTO{Team: v.Away.DisplayName, Score: v.Away.Score},
	}
}

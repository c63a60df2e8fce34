package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	idgen "github.com/allanhy/tallysight-sub000/internal/platform/id"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultCandidateLimit = 200
	defaultMaxConcurrency = 16
	defaultSport          = "NBA"
	defaultLockTTL        = 10 * time.Minute
	syncAllLockKey        = "sync:all"
	scoreboardDateLayout  = "20060102"
)

type ScoreboardProvider interface {
	FetchScoreboard(ctx context.Context, sport, date string) ([]game.ExternalGame, error)
}

// SyncMetrics receives sync pass telemetry.
type SyncMetrics interface {
	ObserveFetch(sport, status string, elapsed time.Duration)
	ObserveResult(sport string, outcome game.Outcome)
	ObserveRun(sport string, trigger syncrun.Trigger, status syncrun.Status, elapsed time.Duration)
}

// RunLocker hands out exclusive leases so overlapping automated runs are skipped.
type RunLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

type GameSyncConfig struct {
	DefaultSport   string
	Sports         []string
	CandidateLimit int
	MaxConcurrency int
	VerifyWrites   bool
	LockTTL        time.Duration
}

type SyncInput struct {
	Sport   string
	Date    string
	GameIDs []string
	Trigger syncrun.Trigger
}

type SyncReport struct {
	RunID      string
	Sport      string
	EventCount int
	Results    []game.ReconciliationResult
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r SyncReport) Count(outcome game.Outcome) int {
	total := 0
	for _, item := range r.Results {
		if item.Outcome == outcome {
			total++
		}
	}
	return total
}

type GameSyncService struct {
	provider   ScoreboardProvider
	gameRepo   game.Repository
	runRepo    syncrun.Repository
	locker     RunLocker
	matcher    *Matcher
	reconciler *Reconciler
	idGen      idgen.Generator
	metrics    SyncMetrics
	cfg        GameSyncConfig
	logger     *logging.Logger
}

type GameSyncServiceOption func(*GameSyncService)

func WithSyncMetrics(metrics SyncMetrics) GameSyncServiceOption {
	return func(s *GameSyncService) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

func WithSyncRunRepository(repo syncrun.Repository) GameSyncServiceOption {
	return func(s *GameSyncService) {
		s.runRepo = repo
	}
}

func WithRunLocker(locker RunLocker) GameSyncServiceOption {
	return func(s *GameSyncService) {
		s.locker = locker
	}
}

func WithIDGenerator(gen idgen.Generator) GameSyncServiceOption {
	return func(s *GameSyncService) {
		if gen != nil {
			s.idGen = gen
		}
	}
}

func NewGameSyncService(
	provider ScoreboardProvider,
	gameRepo game.Repository,
	aliases AliasTable,
	cfg GameSyncConfig,
	logger *logging.Logger,
	opts ...GameSyncServiceOption,
) *GameSyncService {
	if logger == nil {
		logger = logging.Default()
	}
	cfg = normalizeGameSyncConfig(cfg)

	svc := &GameSyncService{
		provider:   provider,
		gameRepo:   gameRepo,
		matcher:    NewMatcher(aliases),
		reconciler: NewReconciler(gameRepo, cfg.VerifyWrites, logger),
		idGen:      idgen.NewRandomGenerator(),
		metrics:    nopSyncMetrics{},
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func normalizeGameSyncConfig(cfg GameSyncConfig) GameSyncConfig {
	cfg.DefaultSport = strings.ToUpper(strings.TrimSpace(cfg.DefaultSport))
	if cfg.DefaultSport == "" {
		cfg.DefaultSport = defaultSport
	}
	sports := make([]string, 0, len(cfg.Sports))
	seen := make(map[string]struct{}, len(cfg.Sports))
	for _, sport := range cfg.Sports {
		value := strings.ToUpper(strings.TrimSpace(sport))
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		sports = append(sports, value)
	}
	if len(sports) == 0 {
		sports = []string{cfg.DefaultSport}
	}
	cfg.Sports = sports
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = defaultCandidateLimit
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	return cfg
}

func (s *GameSyncService) Matcher() *Matcher {
	return s.matcher
}

// Sync runs one fetch, match and reconcile pass for a single sport.
func (s *GameSyncService) Sync(ctx context.Context, input SyncInput) (SyncReport, error) {
	sport := strings.ToUpper(strings.TrimSpace(input.Sport))
	if sport == "" {
		sport = s.cfg.DefaultSport
	}
	trigger := input.Trigger
	if trigger == "" {
		trigger = syncrun.TriggerAdmin
	}

	ctx, span := startUsecaseSpan(ctx, "usecase.GameSyncService.Sync",
		attribute.String("sport", sport),
		attribute.String("trigger", string(trigger)),
	)
	defer span.End()

	report := SyncReport{
		Sport:     sport,
		Results:   []game.ReconciliationResult{},
		StartedAt: time.Now().UTC(),
	}
	runID, err := s.idGen.NewID()
	if err != nil {
		return SyncReport{}, fmt.Errorf("generate sync run id: %w", err)
	}
	report.RunID = runID

	date := strings.TrimSpace(input.Date)
	if date != "" {
		if _, err := time.Parse(scoreboardDateLayout, date); err != nil {
			return SyncReport{}, fmt.Errorf("%w: date must use YYYYMMDD format", ErrInvalidInput)
		}
	}

	report, err = s.runPass(ctx, sport, date, normalizeGameIDs(input.GameIDs), report)
	report.FinishedAt = time.Now().UTC()

	status := syncrun.StatusCompleted
	if err != nil {
		status = syncrun.StatusFailed
		recordSpanError(span, err)
	}
	s.metrics.ObserveRun(sport, trigger, status, report.FinishedAt.Sub(report.StartedAt))
	s.recordRun(ctx, trigger, status, report, err)

	if err != nil {
		s.logger.WarnContext(ctx, "game sync failed", "run_id", report.RunID, "sport", sport, "trigger", trigger, "error", err)
		return SyncReport{}, err
	}

	s.logger.InfoContext(ctx, "game sync completed",
		"run_id", report.RunID,
		"sport", sport,
		"trigger", trigger,
		"events", report.EventCount,
		"updated", report.Count(game.OutcomeUpdated),
		"not_found", report.Count(game.OutcomeNotFound),
		"invalid_data", report.Count(game.OutcomeInvalidData),
		"failed", report.Count(game.OutcomeFailed),
	)
	return report, nil
}

func (s *GameSyncService) runPass(ctx context.Context, sport, date string, gameIDs map[string]struct{}, report SyncReport) (SyncReport, error) {
	started := time.Now()
	events, err := s.provider.FetchScoreboard(ctx, sport, date)
	if err != nil {
		s.metrics.ObserveFetch(sport, "error", time.Since(started))
		return report, err
	}
	s.metrics.ObserveFetch(sport, "ok", time.Since(started))

	targets := filterCompletedEvents(events, gameIDs)
	report.EventCount = len(targets)
	if len(targets) == 0 {
		return report, nil
	}

	candidates, err := s.gameRepo.ListRecent(ctx, s.cfg.CandidateLimit)
	if err != nil {
		return report, fmt.Errorf("load candidate games: %w", err)
	}
	snapshot := append([]game.StoredGame(nil), candidates...)

	report.Results = s.reconcileBatch(ctx, sport, targets, snapshot)
	return report, nil
}

type indexedResult struct {
	index  int
	result game.ReconciliationResult
}

// reconcileBatch settles every event independently; a failing or panicking task
// only affects its own result entry.
func (s *GameSyncService) reconcileBatch(ctx context.Context, sport string, events []game.ExternalGame, snapshot []game.StoredGame) []game.ReconciliationResult {
	p := pool.NewWithResults[indexedResult]().WithMaxGoroutines(s.cfg.MaxConcurrency)
	for i, event := range events {
		i, event := i, event
		p.Go(func() indexedResult {
			return indexedResult{index: i, result: s.reconcileOne(ctx, event, snapshot)}
		})
	}

	settled := p.Wait()
	sort.Slice(settled, func(i, j int) bool { return settled[i].index < settled[j].index })

	out := make([]game.ReconciliationResult, 0, len(settled))
	for _, item := range settled {
		s.metrics.ObserveResult(sport, item.result.Outcome)
		out = append(out, item.result)
	}
	return out
}

func (s *GameSyncService) reconcileOne(ctx context.Context, event game.ExternalGame, snapshot []game.StoredGame) (result game.ReconciliationResult) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "reconcile game panicked", "external_id", event.ExternalID, "panic", rec)
			result = game.ReconciliationResult{
				ExternalID: event.ExternalID,
				Outcome:    game.OutcomeFailed,
				Message:    fmt.Sprintf("Reconciliation aborted: %v", rec),
			}
		}
	}()

	match, ok := s.matcher.Match(event, snapshot)
	if !ok {
		return game.ReconciliationResult{
			ExternalID: event.ExternalID,
			Outcome:    game.OutcomeNotFound,
			Message: fmt.Sprintf("No matching game found for %s @ %s on %s",
				event.Away.DisplayName,
				event.Home.DisplayName,
				event.ScheduledTime.UTC().Format(time.DateOnly),
			),
		}
	}

	return s.reconciler.Reconcile(ctx, event, match)
}

func (s *GameSyncService) recordRun(ctx context.Context, trigger syncrun.Trigger, status syncrun.Status, report SyncReport, runErr error) {
	if s.runRepo == nil {
		return
	}

	run := syncrun.Run{
		RunID:        report.RunID,
		Trigger:      trigger,
		Sport:        report.Sport,
		Status:       status,
		EventCount:   report.EventCount,
		UpdatedCount: report.Count(game.OutcomeUpdated),
		NotFound:     report.Count(game.OutcomeNotFound),
		InvalidCount: report.Count(game.OutcomeInvalidData),
		FailedCount:  report.Count(game.OutcomeFailed),
		Results:      report.Results,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}

	if err := s.runRepo.Record(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WarnContext(ctx, "record sync run failed", "run_id", report.RunID, "error", err)
	}
}

func filterCompletedEvents(events []game.ExternalGame, gameIDs map[string]struct{}) []game.ExternalGame {
	out := make([]game.ExternalGame, 0, len(events))
	for _, event := range events {
		if !event.Completed {
			continue
		}
		if len(gameIDs) > 0 {
			if _, ok := gameIDs[event.ExternalID]; !ok {
				continue
			}
		}
		out = append(out, event)
	}
	return out
}

func normalizeGameIDs(ids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if value := strings.TrimSpace(id); value != "" {
			out[value] = struct{}{}
		}
	}
	return out
}

type nopSyncMetrics struct{}

func (nopSyncMetrics) ObserveFetch(string, string, time.Duration) {}
func (nopSyncMetrics) ObserveResult(string, game.Outcome) {}
func (nopSyncMetrics) ObserveRun(string, syncrun.Trigger, syncrun.Status, time.Duration) {}

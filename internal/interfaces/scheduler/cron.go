package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/allanhy/tallysight-sub000/internal/usecase"
	"github.com/robfig/cron/v3"
)

const DefaultSpec = "0 */6 * * *"

// SyncRunner is the automated sync entry point the scheduler drives.
type SyncRunner interface {
	SyncAll(ctx context.Context, trigger syncrun.Trigger) (usecase.AutomatedSyncResult, error)
}

// Scheduler fires an automated sync on a cron spec. Overlapping ticks are
// skipped locally and, across replicas, by the runner's lease.
type Scheduler struct {
	runner  SyncRunner
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	logger  *logging.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	entryID cron.EntryID
	started bool
}

func New(runner SyncRunner, spec string, timeout time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		spec = DefaultSpec
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}

	return &Scheduler{
		runner:  runner,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		spec:    spec,
		timeout: timeout,
		logger:  logger.Named("scheduler"),
	}
}

// ValidateSpec reports whether spec is a valid five-field cron expression.
func ValidateSpec(spec string) error {
	if _, err := cron.ParseStandard(strings.TrimSpace(spec)); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	job := cron.NewChain(cron.SkipIfStillRunning(cronLogger{s.logger})).Then(cron.FuncJob(s.runOnce))
	entryID, err := s.cron.AddJob(s.spec, job)
	if err != nil {
		s.cancel()
		return fmt.Errorf("schedule automated sync: %w", err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.started = true

	s.logger.InfoContext(ctx, "automated sync scheduled", "spec", s.spec, "next_run", s.cron.Entry(entryID).Next)
	return nil
}

// Stop halts new ticks and waits for an in-flight run, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop().Done()
	select {
	case <-done:
		cancel()
		return nil
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (s *Scheduler) runOnce() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	started := time.Now()
	result, err := s.runner.SyncAll(ctx, syncrun.TriggerSchedule)
	switch {
	case errors.Is(err, usecase.ErrSyncInProgress):
		s.logger.InfoContext(ctx, "scheduled sync skipped, another run holds the lease")
	case err != nil:
		s.logger.ErrorContext(ctx, "scheduled sync failed", "error", err, "failed_sports", result.FailedCount, "duration", time.Since(started))
	default:
		s.logger.InfoContext(ctx, "scheduled sync completed",
			"succeeded_sports", result.SuccessCount,
			"failed_sports", result.FailedCount,
			"duration", time.Since(started),
		)
	}
}

// cronLogger adapts the zap-backed logger to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	"github.com/panjf2000/ants/v2"
)

type SportSyncOutcome struct {
	Sport  string
	Report *SyncReport
	Error  string
}

type AutomatedSyncResult struct {
	Sports       []SportSyncOutcome
	SuccessCount int
	FailedCount  int
}

// SyncAll runs a pass for every configured sport. It fails only when no sport succeeds,
// or with ErrSyncInProgress when another run holds the lease.
func (s *GameSyncService) SyncAll(ctx context.Context, trigger syncrun.Trigger) (AutomatedSyncResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameSyncService.SyncAll")
	defer span.End()

	if s.locker != nil {
		release, acquired, err := s.locker.Acquire(ctx, syncAllLockKey, s.cfg.LockTTL)
		if err != nil {
			recordSpanError(span, err)
			return AutomatedSyncResult{}, fmt.Errorf("%w: acquire sync lock: %v", ErrDependencyUnavailable, err)
		}
		if !acquired {
			s.logger.InfoContext(ctx, "automated sync skipped, lease held elsewhere", "trigger", trigger)
			return AutomatedSyncResult{}, ErrSyncInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "release sync lock failed", "error", err)
			}
		}()
	}

	sports := s.cfg.Sports
	workerCount := len(sports)
	if workerCount > s.cfg.MaxConcurrency {
		workerCount = s.cfg.MaxConcurrency
	}

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return AutomatedSyncResult{}, fmt.Errorf("create sport worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		outcomes = make([]SportSyncOutcome, 0, len(sports))
		errs     []error
	)
	if err := submitAll(pool, sports, func(sport string) {
		outcome := SportSyncOutcome{Sport: sport}
		report, syncErr := s.Sync(ctx, SyncInput{Sport: sport, Trigger: trigger})
		if syncErr != nil {
			outcome.Error = syncErr.Error()
		} else {
			outcome.Report = &report
		}

		mu.Lock()
		outcomes = append(outcomes, outcome)
		if syncErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sport, syncErr))
		}
		mu.Unlock()
	}); err != nil {
		recordSpanError(span, err)
		return AutomatedSyncResult{}, err
	}

	sort.SliceStable(outcomes, func(i, j int) bool { return outcomes[i].Sport < outcomes[j].Sport })
	result := AutomatedSyncResult{Sports: outcomes}
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			result.FailedCount++
			continue
		}
		result.SuccessCount++
	}

	if result.SuccessCount == 0 && len(errs) > 0 {
		err := errors.Join(errs...)
		recordSpanError(span, err)
		return result, err
	}
	return result, nil
}

type taskSubmitter interface {
	Submit(task func()) error
}

// submitAll runs task once per sport on pool. A rejected submit stops further
// submissions, but submitAll still returns only after every accepted task finished.
func submitAll(pool taskSubmitter, sports []string, task func(sport string)) error {
	var (
		workers   sync.WaitGroup
		submitErr error
	)
	for _, sport := range sports {
		sport := sport
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			task(sport)
		}); err != nil {
			workers.Done()
			submitErr = fmt.Errorf("submit sport sync %s: %w", sport, err)
			break
		}
	}
	workers.Wait()
	return submitErr
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
)

func TestGameSyncService_SyncAll_PartialFailure(t *testing.T) {
	t.Parallel()

	repo := newStubGameRepo(game.StoredGame{ID: 1, ParticipantA: "Lakers", ParticipantB: "Celtics"})
	provider := stubSportProvider{
		"NBA": {events: []game.ExternalGame{completedGame("g1", "Lakers", "100", "Celtics", "98")}},
		"NHL": {err: &FetchFailure{StatusCode: 502}},
	}

	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{Sports: []string{"nhl", "NBA", "nba"}}, nil)
	result, err := svc.SyncAll(context.Background(), syncrun.TriggerAutomated)
	if err != nil {
		t.Fatalf("SyncAll error: %v", err)
	}
	if result.SuccessCount != 1 || result.FailedCount != 1 || len(result.Sports) != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Sports[0].Sport != "NBA" || result.Sports[0].Report == nil || result.Sports[0].Report.Count(game.OutcomeUpdated) != 1 {
		t.Fatalf("unexpected NBA outcome: %+v", result.Sports[0])
	}
	if result.Sports[1].Sport != "NHL" || result.Sports[1].Error != "upstream responded with status: 502" {
		t.Fatalf("unexpected NHL outcome: %+v", result.Sports[1])
	}
}

func TestGameSyncService_SyncAll_AllFailed(t *testing.T) {
	t.Parallel()

	provider := stubSportProvider{
		"NBA": {err: &FetchFailure{Message: "timeout"}},
	}
	svc := NewGameSyncService(provider, newStubGameRepo(), DefaultAliasTable(), GameSyncConfig{}, nil)

	result, err := svc.SyncAll(context.Background(), syncrun.TriggerSchedule)
	if !IsFetchFailure(err) {
		t.Fatalf("expected wrapped FetchFailure, got %v", err)
	}
	if result.FailedCount != 1 || result.SuccessCount != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGameSyncService_SyncAll_RecordsEveryRun(t *testing.T) {
	t.Parallel()

	runs := &countingRunRepo{}
	provider := stubSportProvider{"NBA": {}, "NFL": {}}
	svc := NewGameSyncService(provider, newStubGameRepo(), DefaultAliasTable(),
		GameSyncConfig{Sports: []string{"NBA", "NFL"}, MaxConcurrency: 1}, nil,
		WithSyncRunRepository(runs),
	)

	if _, err := svc.SyncAll(context.Background(), syncrun.TriggerAutomated); err != nil {
		t.Fatalf("SyncAll error: %v", err)
	}
	if got := runs.count.Load(); got != 2 {
		t.Fatalf("expected 2 recorded runs, got %d", got)
	}
}

type stubSportProvider map[string]*stubScoreboardProvider

func (p stubSportProvider) FetchScoreboard(ctx context.Context, sport, date string) ([]game.ExternalGame, error) {
	provider, ok := p[sport]
	if !ok {
		return nil, &FetchFailure{Message: "unexpected sport " + sport}
	}
	return provider.FetchScoreboard(ctx, sport, date)
}

type countingRunRepo struct {
	count atomic.Int32
}

func (r *countingRunRepo) Record(_ context.Context, run syncrun.Run) error {
	if run.Trigger != syncrun.TriggerAutomated {
		return nil
	}
	r.count.Add(1)
	return nil
}

func TestGameSyncService_SyncAll_SkipsWhenLeaseHeld(t *testing.T) {
	t.Parallel()

	provider := stubSportProvider{"NBA": {}}
	locker := &stubLocker{held: true}
	svc := NewGameSyncService(provider, newStubGameRepo(), DefaultAliasTable(), GameSyncConfig{}, nil, WithRunLocker(locker))

	_, err := svc.SyncAll(context.Background(), syncrun.TriggerSchedule)
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("expected ErrSyncInProgress, got %v", err)
	}
	if provider["NBA"].calls != 0 {
		t.Fatalf("provider must not be called while lease is held")
	}
}

func TestGameSyncService_SyncAll_ReleasesLease(t *testing.T) {
	t.Parallel()

	locker := &stubLocker{}
	svc := NewGameSyncService(stubSportProvider{"NBA": {}}, newStubGameRepo(), DefaultAliasTable(), GameSyncConfig{LockTTL: time.Minute}, nil, WithRunLocker(locker))

	if _, err := svc.SyncAll(context.Background(), syncrun.TriggerSchedule); err != nil {
		t.Fatalf("SyncAll error: %v", err)
	}
	if locker.key != "sync:all" || locker.ttl != time.Minute || !locker.released {
		t.Fatalf("unexpected lease usage: %+v", locker)
	}
}

type stubLocker struct {
	held     bool
	key      string
	ttl      time.Duration
	released bool
}

func (l *stubLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.key, l.ttl = key, ttl
	if l.held {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.released = true
		return nil
	}, true, nil
}

// rejectAfterPool runs the first accepted tasks on goroutines and rejects the rest.
type rejectAfterPool struct {
	accept int
	err    error
}

func (p *rejectAfterPool) Submit(task func()) error {
	if p.accept == 0 {
		return p.err
	}
	p.accept--
	go task()
	return nil
}

func TestSubmitAll_WaitsForAcceptedTasksWhenSubmitFails(t *testing.T) {
	t.Parallel()

	overload := errors.New("pool overload")
	release := make(chan struct{})
	var (
		mu   sync.Mutex
		ran  []string
		done atomic.Bool
	)

	returned := make(chan error, 1)
	go func() {
		returned <- submitAll(&rejectAfterPool{accept: 1, err: overload}, []string{"NBA", "NFL", "MLB"}, func(sport string) {
			<-release
			mu.Lock()
			ran = append(ran, sport)
			mu.Unlock()
			done.Store(true)
		})
	}()

	select {
	case err := <-returned:
		t.Fatalf("submitAll returned before the accepted task finished: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	err := <-returned
	if !errors.Is(err, overload) || err.Error() != "submit sport sync NFL: pool overload" {
		t.Fatalf("unexpected submit error: %v", err)
	}
	if !done.Load() {
		t.Fatalf("accepted task must finish before submitAll returns")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(ran) != 1 || ran[0] != "NBA" {
		t.Fatalf("unexpected tasks run: %v", ran)
	}
}

func TestSubmitAll_RunsEverySport(t *testing.T) {
	t.Parallel()

	var count atomic.Int32
	err := submitAll(&rejectAfterPool{accept: 3}, []string{"NBA", "NFL", "MLB"}, func(string) { count.Add(1) })
	if err != nil {
		t.Fatalf("submitAll error: %v", err)
	}
	if count.Load() != 3 {
		t.Fatalf("expected 3 tasks, got %d", count.Load())
	}
}

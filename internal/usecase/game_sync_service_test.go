package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	gamemock "github.com/allanhy/tallysight-sub000/internal/mocks/domain/game"
	syncrunmock "github.com/allanhy/tallysight-sub000/internal/mocks/domain/syncrun"
	"github.com/stretchr/testify/mock"
)

func TestGameSyncService_Sync_BatchIsolation(t *testing.T) {
	t.Parallel()

	repo := newStubGameRepo(
		game.StoredGame{ID: 1, ParticipantA: "Lakers", ParticipantB: "Celtics"},
		game.StoredGame{ID: 2, ParticipantA: "Miami Heat", ParticipantB: "Chicago Bulls"},
		game.StoredGame{ID: 3, ParticipantA: "Denver Nuggets", ParticipantB: "Utah Jazz"},
	)
	provider := &stubScoreboardProvider{events: []game.ExternalGame{
		completedGame("g1", "Lakers", "100", "Celtics", "98"),
		completedGame("g2", "Miami", "", "Chicago", "90"),
		completedGame("g3", "Utah Jazz", "120", "Denver Nuggets", "99"),
	}}

	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{}, nil)
	report, err := svc.Sync(context.Background(), SyncInput{Sport: "nba"})
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}

	if len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(report.Results))
	}
	wantOutcomes := []game.Outcome{game.OutcomeUpdated, game.OutcomeInvalidData, game.OutcomeUpdated}
	for i, want := range wantOutcomes {
		if report.Results[i].Outcome != want {
			t.Fatalf("result %d: expected %s, got %+v", i, want, report.Results[i])
		}
	}

	first, _, _ := repo.GetByID(context.Background(), 1)
	if first.FinalScore != "100-98" || first.Winner != game.ParticipantAWon || first.ExternalID != "g1" {
		t.Fatalf("unexpected game 1 after sync: %+v", first)
	}
	second, _, _ := repo.GetByID(context.Background(), 2)
	if second.FinalScore != "" || second.Winner != game.Undetermined {
		t.Fatalf("invalid data must not write game 2: %+v", second)
	}
	third, _, _ := repo.GetByID(context.Background(), 3)
	if third.FinalScore != "99-120" || third.Winner != game.ParticipantBWon {
		t.Fatalf("unexpected game 3 after sync: %+v", third)
	}
	if report.Sport != "NBA" || provider.lastSport != "NBA" {
		t.Fatalf("expected normalized sport NBA, got report=%s provider=%s", report.Sport, provider.lastSport)
	}
}

func TestGameSyncService_Sync_IsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newStubGameRepo(game.StoredGame{ID: 2, ParticipantA: "Celtics", ParticipantB: "Lakers"})
	provider := &stubScoreboardProvider{events: []game.ExternalGame{
		completedGame("g1", "Lakers", "100", "Celtics", "98"),
	}}
	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{}, nil)

	if _, err := svc.Sync(context.Background(), SyncInput{}); err != nil {
		t.Fatalf("first Sync error: %v", err)
	}
	after, _, _ := repo.GetByID(context.Background(), 2)

	// The second pass resolves through the backfilled external id.
	match, ok := svc.Matcher().Match(provider.events[0], repo.snapshot())
	if !ok || match.Kind != MatchByExternalID {
		t.Fatalf("expected external id match on rerun, got %+v ok=%v", match, ok)
	}

	report, err := svc.Sync(context.Background(), SyncInput{})
	if err != nil {
		t.Fatalf("second Sync error: %v", err)
	}
	again, _, _ := repo.GetByID(context.Background(), 2)
	if after != again {
		t.Fatalf("second pass changed row: before=%+v after=%+v", after, again)
	}
	if again.Winner != game.ParticipantBWon || again.FinalScore != "98-100" {
		t.Fatalf("unexpected reversed orientation write: %+v", again)
	}
	if report.Results[0].Outcome != game.OutcomeUpdated {
		t.Fatalf("expected updated on rerun, got %+v", report.Results[0])
	}
}

func TestGameSyncService_Sync_FetchFailureAbortsBeforeDatabase(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	runs := syncrunmock.NewRepository(t)
	fetchErr := &FetchFailure{StatusCode: 503}
	provider := &stubScoreboardProvider{err: fetchErr}

	runs.
		On("Record", mock.Anything, mock.MatchedBy(func(run syncrun.Run) bool {
			return run.Status == syncrun.StatusFailed && run.ErrorMessage == "upstream responded with status: 503"
		})).
		Return(nil).
		Once()

	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{}, nil, WithSyncRunRepository(runs))
	_, err := svc.Sync(context.Background(), SyncInput{Trigger: syncrun.TriggerAdmin})
	if !IsFetchFailure(err) {
		t.Fatalf("expected FetchFailure, got %v", err)
	}
	repo.AssertNotCalled(t, "ListRecent", mock.Anything, mock.Anything)
}

func TestGameSyncService_Sync_FiltersByGameIDsAndCompletion(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	inProgress := completedGame("g3", "Miami Heat", "50", "Chicago Bulls", "48")
	inProgress.Completed = false
	inProgress.State = game.StateInProgress
	provider := &stubScoreboardProvider{events: []game.ExternalGame{
		completedGame("g1", "Lakers", "100", "Celtics", "98"),
		completedGame("g2", "Denver Nuggets", "120", "Utah Jazz", "99"),
		inProgress,
	}}

	repo.
		On("ListRecent", mock.Anything, 50).
		Return([]game.StoredGame{{ID: 7, ParticipantA: "Denver Nuggets", ParticipantB: "Utah Jazz"}}, nil).
		Once()
	repo.
		On("ApplyResult", mock.Anything, game.ResultUpdate{GameID: 7, Winner: game.ParticipantAWon, FinalScore: "120-99", ExternalID: "g2"}).
		Return(nil).
		Once()

	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{CandidateLimit: 50}, nil)
	report, err := svc.Sync(context.Background(), SyncInput{GameIDs: []string{" g2 ", "g3", ""}})
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if report.EventCount != 1 || len(report.Results) != 1 || report.Results[0].ExternalID != "g2" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestGameSyncService_Sync_EmptyBatch(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	provider := &stubScoreboardProvider{}

	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{}, nil)
	report, err := svc.Sync(context.Background(), SyncInput{})
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if report.Results == nil || len(report.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", report.Results)
	}
	repo.AssertNotCalled(t, "ListRecent", mock.Anything, mock.Anything)
}

func TestGameSyncService_Sync_NotFoundAndPersistenceFailure(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	provider := &stubScoreboardProvider{events: []game.ExternalGame{
		completedGame("g1", "Unicorns", "3", "Dragons", "1"),
		completedGame("g2", "Lakers", "100", "Celtics", "98"),
	}}

	repo.
		On("ListRecent", mock.Anything, defaultCandidateLimit).
		Return([]game.StoredGame{{ID: 1, ExternalID: "g2", ParticipantA: "Lakers", ParticipantB: "Celtics"}}, nil).
		Once()
	repo.
		On("ApplyResult", mock.Anything, mock.Anything).
		Return(errors.New("connection reset")).
		Once()

	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{}, nil)
	report, err := svc.Sync(context.Background(), SyncInput{})
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}

	if report.Results[0].Outcome != game.OutcomeNotFound || report.Results[0].LocalID != nil {
		t.Fatalf("expected not_found without local id, got %+v", report.Results[0])
	}
	if report.Results[0].Message != "No matching game found for Dragons @ Unicorns on 2026-03-01" {
		t.Fatalf("unexpected not_found message: %s", report.Results[0].Message)
	}
	if report.Results[1].Outcome != game.OutcomeFailed {
		t.Fatalf("expected failed, got %+v", report.Results[1])
	}
	if report.Count(game.OutcomeFailed) != 1 || report.Count(game.OutcomeNotFound) != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
}

func TestGameSyncService_Sync_RejectsMalformedDate(t *testing.T) {
	t.Parallel()

	provider := &stubScoreboardProvider{}
	svc := NewGameSyncService(provider, gamemock.NewRepository(t), DefaultAliasTable(), GameSyncConfig{}, nil)

	_, err := svc.Sync(context.Background(), SyncInput{Date: "2026-03-01"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called on invalid input")
	}
}

func TestGameSyncService_Sync_PanickingWriteIsContained(t *testing.T) {
	t.Parallel()

	repo := gamemock.NewRepository(t)
	provider := &stubScoreboardProvider{events: []game.ExternalGame{
		completedGame("g1", "Lakers", "100", "Celtics", "98"),
		completedGame("g2", "Denver Nuggets", "120", "Utah Jazz", "99"),
	}}

	repo.
		On("ListRecent", mock.Anything, mock.Anything).
		Return([]game.StoredGame{
			{ID: 1, ParticipantA: "Lakers", ParticipantB: "Celtics"},
			{ID: 2, ParticipantA: "Denver Nuggets", ParticipantB: "Utah Jazz"},
		}, nil).
		Once()
	repo.
		On("ApplyResult", mock.Anything, mock.MatchedBy(func(u game.ResultUpdate) bool { return u.GameID == 1 })).
		Run(func(mock.Arguments) { panic("driver bug") }).
		Return(nil).
		Once()
	repo.
		On("ApplyResult", mock.Anything, mock.MatchedBy(func(u game.ResultUpdate) bool { return u.GameID == 2 })).
		Return(nil).
		Once()

	svc := NewGameSyncService(provider, repo, DefaultAliasTable(), GameSyncConfig{}, nil)
	report, err := svc.Sync(context.Background(), SyncInput{})
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if report.Results[0].Outcome != game.OutcomeFailed || report.Results[1].Outcome != game.OutcomeUpdated {
		t.Fatalf("unexpected results: %+v", report.Results)
	}
}

type stubScoreboardProvider struct {
	mu        sync.Mutex
	events    []game.ExternalGame
	err       error
	calls     int
	lastSport string
}

func (p *stubScoreboardProvider) FetchScoreboard(_ context.Context, sport, _ string) ([]game.ExternalGame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.lastSport = sport
	if p.err != nil {
		return nil, p.err
	}
	return append([]game.ExternalGame(nil), p.events...), nil
}

type stubGameRepo struct {
	mu    sync.Mutex
	games []game.StoredGame
}

func newStubGameRepo(games ...game.StoredGame) *stubGameRepo {
	return &stubGameRepo{games: games}
}

func (r *stubGameRepo) snapshot() []game.StoredGame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]game.StoredGame(nil), r.games...)
}

func (r *stubGameRepo) ListRecent(_ context.Context, limit int) ([]game.StoredGame, error) {
	out := r.snapshot()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubGameRepo) GetByID(_ context.Context, id int64) (game.StoredGame, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.games {
		if item.ID == id {
			return item, true, nil
		}
	}
	return game.StoredGame{}, false, nil
}

func (r *stubGameRepo) ApplyResult(_ context.Context, update game.ResultUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.games {
		if r.games[i].ID != update.GameID {
			continue
		}
		r.games[i].Winner = update.Winner
		r.games[i].FinalScore = update.FinalScore
		if update.ExternalID != "" {
			r.games[i].ExternalID = update.ExternalID
		}
		return nil
	}
	return errors.New("game not found")
}

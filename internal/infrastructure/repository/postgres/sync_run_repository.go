package postgres

import (
	"context"
	"fmt"

	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	qb "github.com/allanhy/tallysight-sub000/internal/platform/querybuilder"
	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
)

type SyncRunRepository struct {
	db *sqlx.DB
}

func NewSyncRunRepository(db *sqlx.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func (r *SyncRunRepository) Record(ctx context.Context, run syncrun.Run) error {
	model, err := syncRunToModel(run)
	if err != nil {
		return err
	}

	query, args, err := qb.InsertModel("sync_runs", model, "ON CONFLICT (run_id) DO NOTHING")
	if err != nil {
		return fmt.Errorf("build insert sync run query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert sync run run_id=%s: %w", run.RunID, err)
	}
	return nil
}

func syncRunToModel(run syncrun.Run) (syncRunTableModel, error) {
	results := make([]syncRunResultJSON, 0, len(run.Results))
	for _, item := range run.Results {
		results = append(results, syncRunResultJSON{
			ExternalID: item.ExternalID,
			LocalID:    item.LocalID,
			Outcome:    string(item.Outcome),
			Message:    item.Message,
		})
	}
	encoded, err := sonic.Marshal(results)
	if err != nil {
		return syncRunTableModel{}, fmt.Errorf("marshal sync run results: %w", err)
	}

	return syncRunTableModel{
		RunID:        run.RunID,
		Trigger:      string(run.Trigger),
		Sport:        run.Sport,
		Status:       string(run.Status),
		EventCount:   run.EventCount,
		UpdatedCount: run.UpdatedCount,
		NotFound:     run.NotFound,
		InvalidCount: run.InvalidCount,
		FailedCount:  run.FailedCount,
		ErrorMessage: nullableString(run.ErrorMessage),
		Results:      string(encoded),
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
	}, nil
}

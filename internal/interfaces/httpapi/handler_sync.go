package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	"github.com/allanhy/tallysight-sub000/internal/usecase"
	sonic "github.com/bytedance/sonic"
)

const maxSyncRequestBytes = 1 << 20

type syncRequest struct {
	GameIDs []string `json:"gameIds" validate:"omitempty,max=500,dive,required"`
	Sport   string   `json:"sport" validate:"omitempty,max=32"`
	Date    string   `json:"date" validate:"omitempty,len=8,numeric"`
}

type reconciliationResultDTO struct {
	ExternalID string `json:"externalId"`
	LocalID    *int64 `json:"localId"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
}

type syncResponse struct {
	Success bool                      `json:"success"`
	RunID   string                    `json:"runId,omitempty"`
	Results []reconciliationResultDTO `json:"results"`
}

type syncFailureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error"`
}

type sportOutcomeDTO struct {
	Sport   string                    `json:"sport"`
	RunID   string                    `json:"runId,omitempty"`
	Error   string                    `json:"error,omitempty"`
	Results []reconciliationResultDTO `json:"results,omitempty"`
}

type automatedSyncResultDTO struct {
	SuccessCount int               `json:"successCount"`
	FailedCount  int               `json:"failedCount"`
	Sports       []sportOutcomeDTO `json:"sports"`
}

type automatedSyncResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Result  automatedSyncResultDTO `json:"result"`
}

type cronErrorResponse struct {
	Error string `json:"error"`
}

// TriggerSync runs one pass for the requested sport and optional game ids.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.TriggerSync")
	defer span.End()

	req, err := decodeSyncRequest(r)
	if err == nil {
		err = h.validateRequest(ctx, req)
	}
	if err != nil {
		writeJSON(ctx, w, http.StatusBadRequest, syncFailureResponse{Error: err.Error()})
		return
	}

	report, err := h.syncer.Sync(ctx, usecase.SyncInput{
		Sport:   req.Sport,
		Date:    req.Date,
		GameIDs: req.GameIDs,
		Trigger: syncrun.TriggerAdmin,
	})
	if err != nil {
		if principal, ok := principalFromContext(ctx); ok {
			h.logger.WarnContext(ctx, "admin sync failed", "user_id", principal.UserID, "sport", req.Sport, "error", err)
		}
		writeSyncError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, syncResponse{
		Success: true,
		RunID:   report.RunID,
		Results: resultsToDTO(report.Results),
	})
}

// RunAutomatedSync syncs every configured sport.
func (h *Handler) RunAutomatedSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunAutomatedSync")
	defer span.End()

	result, err := h.syncer.SyncAll(ctx, syncrun.TriggerAutomated)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, usecase.ErrSyncInProgress) {
			status = http.StatusConflict
		}
		h.logger.ErrorContext(ctx, "automated sync failed", "error", err)
		writeJSON(ctx, w, status, syncFailureResponse{
			Message: "Failed to run automated sync",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(ctx, w, http.StatusOK, automatedSyncResponse{
		Success: true,
		Message: "Automated sync completed successfully",
		Result:  automatedResultToDTO(result),
	})
}

// writeSyncError renders err as {success:false, error} with its mapped status.
func writeSyncError(ctx context.Context, w http.ResponseWriter, err error) {
	writeJSON(ctx, w, mapError(ctx, err).HTTPStatus, syncFailureResponse{Error: err.Error()})
}

func decodeSyncRequest(r *http.Request) (syncRequest, error) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSyncRequestBytes))
	if err != nil {
		return syncRequest{}, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}

	var req syncRequest
	if len(raw) == 0 {
		return req, nil
	}
	if err := sonic.Unmarshal(raw, &req); err != nil {
		return syncRequest{}, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return req, nil
}

func resultsToDTO(results []game.ReconciliationResult) []reconciliationResultDTO {
	out := make([]reconciliationResultDTO, 0, len(results))
	for _, item := range results {
		out = append(out, reconciliationResultDTO{
			ExternalID: item.ExternalID,
			LocalID:    item.LocalID,
			Outcome:    string(item.Outcome),
			Message:    item.Message,
		})
	}
	return out
}

func automatedResultToDTO(result usecase.AutomatedSyncResult) automatedSyncResultDTO {
	out := automatedSyncResultDTO{
		SuccessCount: result.SuccessCount,
		FailedCount:  result.FailedCount,
		Sports:       make([]sportOutcomeDTO, 0, len(result.Sports)),
	}
	for _, sport := range result.Sports {
		item := sportOutcomeDTO{Sport: sport.Sport, Error: sport.Error}
		if sport.Report != nil {
			item.RunID = sport.Report.RunID
			item.Results = resultsToDTO(sport.Report.Results)
		}
		out.Sports = append(out.Sports, item)
	}
	return out
}

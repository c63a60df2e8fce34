package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/allanhy/tallysight-sub000/internal/usecase"
	sonic "github.com/bytedance/sonic"
)

const (
	envelopeAPIVersion = "2.0"
	errorDomain        = "tallysight-game-sync"
)

// envelope is the body of every non-sync JSON response.
type envelope struct {
	APIVersion string     `json:"apiVersion"`
	Data       any        `json:"data,omitempty"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Status  string       `json:"status"`
	Errors  []errorCause `json:"errors,omitempty"`
}

type errorCause struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

var internalMapping = mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "internalError", Status: "INTERNAL"}

// errorRules are checked in order. Fetch failures come before dependency errors
// because a FetchFailure may wrap ErrDependencyUnavailable.
var errorRules = []struct {
	matches func(error) bool
	mapped  mappedError
}{
	{isErr(usecase.ErrInvalidInput), mappedError{http.StatusBadRequest, "invalidInput", "INVALID_ARGUMENT"}},
	{isErr(usecase.ErrNotFound), mappedError{http.StatusNotFound, "notFound", "NOT_FOUND"}},
	{isErr(usecase.ErrUnauthorized), mappedError{http.StatusUnauthorized, "unauthorized", "UNAUTHENTICATED"}},
	{isErr(usecase.ErrSyncInProgress), mappedError{http.StatusConflict, "syncInProgress", "ABORTED"}},
	{usecase.IsFetchFailure, mappedError{http.StatusInternalServerError, "upstreamFetchFailed", "INTERNAL"}},
	{isErr(usecase.ErrDependencyUnavailable), mappedError{http.StatusServiceUnavailable, "dependencyUnavailable", "UNAVAILABLE"}},
}

func isErr(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

func mapError(ctx context.Context, err error) mappedError {
	_, span := startSpan(ctx, "httpapi.mapError")
	defer span.End()

	for _, rule := range errorRules {
		if rule.matches(err) {
			return rule.mapped
		}
	}
	return internalMapping
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	_, span := startSpan(ctx, "httpapi.writeJSON")
	defer span.End()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(ctx, w, status, envelope{APIVersion: envelopeAPIVersion, Data: data})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	writeMappedError(ctx, w, mapError(ctx, err), err.Error())
}

// writeInternalError hides the cause; used where the error may carry a panic value.
func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	writeMappedError(ctx, w, internalMapping, "internal server error")
}

func writeMappedError(ctx context.Context, w http.ResponseWriter, mapped mappedError, msg string) {
	writeJSON(ctx, w, mapped.HTTPStatus, envelope{
		APIVersion: envelopeAPIVersion,
		Error: &errorBody{
			Code:    mapped.HTTPStatus,
			Message: msg,
			Status:  mapped.Status,
			Errors:  []errorCause{{Domain: errorDomain, Reason: mapped.Reason, Message: msg}},
		},
	})
}

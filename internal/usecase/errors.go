package usecase

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrSyncInProgress        = errors.New("sync already in progress")
)

// FetchFailure aborts a sync pass before any game is reconciled.
type FetchFailure struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchFailure) Error() string {
	if e == nil {
		return "fetch failure"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream responded with status: %d", e.StatusCode)
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return "failed to fetch data from upstream: " + msg
}

func (e *FetchFailure) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsFetchFailure reports whether err carries a *FetchFailure.
func IsFetchFailure(err error) bool {
	var target *FetchFailure
	return errors.As(err, &target)
}

package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q)=%s want %s", raw, got, want)
		}
	}
}

func TestLogger_FieldsAndErrors(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).Named("sync").With("sport", "NBA")

	logger.WarnContext(context.Background(), "game sync failed", "run_id", "run_1", "error", errors.New("boom"), "dangling")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.LoggerName != "sync" || entry.Message != "game sync failed" {
		t.Fatalf("unexpected entry: %+v", entry.Entry)
	}

	fields := entry.ContextMap()
	if fields["sport"] != "NBA" || fields["run_id"] != "run_1" || fields["error"] != "boom" {
		t.Fatalf("unexpected fields: %v", fields)
	}
	if _, ok := fields["dangling"]; !ok {
		t.Fatalf("expected dangling key to be kept: %v", fields)
	}
}

func TestDefault_FallsBackToNop(t *testing.T) {
	SetDefault(nil)
	if Default() == nil {
		t.Fatalf("expected non-nil default logger")
	}
	var nilLogger *Logger
	nilLogger.Info("no panic")
}

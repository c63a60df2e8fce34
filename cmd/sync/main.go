package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/allanhy/tallysight-sub000/internal/app"
	"github.com/allanhy/tallysight-sub000/internal/config"
	"github.com/allanhy/tallysight-sub000/internal/domain/game"
	"github.com/allanhy/tallysight-sub000/internal/domain/syncrun"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
	"github.com/allanhy/tallysight-sub000/internal/usecase"
	sonic "github.com/bytedance/sonic"
)

type resultLine struct {
	ExternalID string `json:"externalId"`
	LocalID    *int64 `json:"localId"`
	Outcome    string `json:"outcome"`
	Message    string `json:"message"`
}

type reportOutput struct {
	RunID   string         `json:"runId"`
	Sport   string         `json:"sport"`
	Events  int            `json:"events"`
	Counts  map[string]int `json:"counts"`
	Results []resultLine   `json:"results"`
}

type sportOutput struct {
	Sport  string        `json:"sport"`
	Error  string        `json:"error,omitempty"`
	Report *reportOutput `json:"report,omitempty"`
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "sync: %v\n", err)
		os.Exit(1)
	}
}

// run executes one CLI invocation. All cleanup is deferred here so that main
// exits only after the engine is closed and the logger flushed.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("sync", flag.ContinueOnError)
	var (
		sport   = flags.String("sport", "", "sport code to sync (defaults to SYNC_DEFAULT_SPORT)")
		gameIDs = flags.String("game-ids", "", "comma-separated external game ids to restrict the pass to")
		date    = flags.String("date", "", "scoreboard date in YYYYMMDD")
		all     = flags.Bool("all", false, "sync every sport in SYNC_SPORTS")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel).With("service", cfg.ServiceName, "command", "sync")
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.SyncRunTimeout)
	defer cancel()

	engine, err := app.NewEngine(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build sync engine: %w", err)
	}
	defer func() {
		if err := engine.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("close sync engine", "error", err)
		}
	}()

	var (
		output any
		runErr error
	)
	if *all {
		var result usecase.AutomatedSyncResult
		result, runErr = engine.Sync.SyncAll(ctx, syncrun.TriggerCLI)
		output = automatedOutput(result)
	} else {
		var report usecase.SyncReport
		report, runErr = engine.Sync.Sync(ctx, usecase.SyncInput{
			Sport:   *sport,
			Date:    *date,
			GameIDs: splitIDs(*gameIDs),
			Trigger: syncrun.TriggerCLI,
		})
		if runErr == nil {
			output = toReportOutput(report)
		}
	}

	if output != nil {
		raw, err := sonic.ConfigDefault.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		if _, err := fmt.Fprintln(stdout, string(raw)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if runErr != nil {
		logger.Error("sync failed", "error", runErr)
		return runErr
	}
	return nil
}

func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func toReportOutput(report usecase.SyncReport) *reportOutput {
	out := &reportOutput{
		RunID:   report.RunID,
		Sport:   report.Sport,
		Events:  report.EventCount,
		Counts:  make(map[string]int, 4),
		Results: make([]resultLine, 0, len(report.Results)),
	}
	for _, outcome := range []game.Outcome{game.OutcomeUpdated, game.OutcomeNotFound, game.OutcomeInvalidData, game.OutcomeFailed} {
		out.Counts[string(outcome)] = report.Count(outcome)
	}
	for _, item := range report.Results {
		out.Results = append(out.Results, resultLine{
			ExternalID: item.ExternalID,
			LocalID:    item.LocalID,
			Outcome:    string(item.Outcome),
			Message:    item.Message,
		})
	}
	return out
}

func automatedOutput(result usecase.AutomatedSyncResult) []sportOutput {
	out := make([]sportOutput, 0, len(result.Sports))
	for _, item := range result.Sports {
		line := sportOutput{Sport: item.Sport, Error: item.Error}
		if item.Report != nil {
			line.Report = toReportOutput(*item.Report)
		}
		out = append(out, line)
	}
	return out
}

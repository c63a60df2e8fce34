package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/allanhy/tallysight-sub000/internal/app"
	"github.com/allanhy/tallysight-sub000/internal/config"
	"github.com/allanhy/tallysight-sub000/internal/observability"
	"github.com/allanhy/tallysight-sub000/internal/platform/logging"
)

func main() {
	os.Exit(run())
}

// run serves until SIGINT/SIGTERM or a server failure and returns the exit code.
// Telemetry and the logger are flushed by its defers before main exits.
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel).With("service", cfg.ServiceName)
	defer func() { _ = logger.Sync() }()
	logger, shutdownTelemetry, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return 1
	}
	logging.SetDefault(logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Warn("uptrace shutdown failed", "error", err)
		}
		_ = logger.Sync()
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return 1
	}
	defer func() {
		if err := stopProfiler(); err != nil {
			logger.Warn("pyroscope stop failed", "error", err)
		}
	}()

	pprofSrv := observability.StartPprofServer(cfg, logger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := observability.StopPprofServer(ctx, pprofSrv, logger); err != nil {
			logger.Warn("pprof shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		return 1
	}

	exitCode := 0
	serverErr := make(chan error, 1)
	if err := application.StartBackground(ctx); err != nil {
		logger.Error("start scheduler", "error", err)
		exitCode = 1
	} else {
		go func() {
			logger.Info("http server starting", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
			if err := application.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()

		select {
		case <-ctx.Done():
		case err := <-serverErr:
			logger.Error("http server failed", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		exitCode = 1
	}

	logger.Info("http server stopped")
	return exitCode
}

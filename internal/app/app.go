// Package app wires up and runs the application services.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/framelab/framebench-web/internal/adapter"
	"github.com/framelab/framebench-web/internal/bench"
	"github.com/framelab/framebench-web/internal/config"
	"github.com/framelab/framebench-web/internal/frame"
	"github.com/framelab/framebench-web/internal/httpserver"
	"github.com/framelab/framebench-web/internal/timing"
)

const shutdownTimeout = 10 * time.Second

// Run bootstraps the application lifecycle.
func Run(ctx context.Context, baseLogger *slog.Logger, cfg config.Config) error {
	appLogger := baseLogger.With("component", "app")

	adapters, err := adapter.Discover(cfg.SysfsRoot, baseLogger.With("component", "adapter_discovery"))
	if err != nil {
		return fmt.Errorf("discover adapters: %w", err)
	}
	appLogger.Info("discovered adapters", "count", len(adapters))

	var (
		source frame.TimingSource
		clock  frame.Clock
	)
	reader, err := timing.NewReader(cfg.TimingRoot, baseLogger.With("component", "timing_reader"))
	if err != nil {
		appLogger.Warn("timing export unavailable, sub-timings disabled", "root", cfg.TimingRoot, "err", err)
	} else {
		source = reader
		clock = reader
	}

	benchManager, err := bench.NewManager(cfg.SampleInterval, source, clock, cfg.CaptureAdvanced, baseLogger.With("component", "bench"))
	if err != nil {
		return fmt.Errorf("init bench manager: %w", err)
	}
	defer func() {
		if err := benchManager.Close(); err != nil {
			appLogger.Warn("bench manager close", "err", err)
		}
	}()

	benchCtx, benchCancel := context.WithCancel(ctx)
	defer benchCancel()

	benchErrCh := make(chan error, 1)
	go func() {
		benchErrCh <- benchManager.Run(benchCtx)
	}()

	srv := httpserver.New(cfg, baseLogger.With("component", "http"), adapters, benchManager)

	appLogger.Info("starting HTTP server", "listen_addr", cfg.ListenAddr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	for {
		select {
		case err := <-errCh:
			benchCancel()
			if err != nil {
				return err
			}
			if benchErrCh != nil {
				if benchErr := <-benchErrCh; benchErr != nil && !errors.Is(benchErr, context.Canceled) {
					return benchErr
				}
			}
			return nil
		case err := <-benchErrCh:
			benchErrCh = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		case <-ctx.Done():
			appLogger.Info("shutdown initiated", "reason", ctx.Err())

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("http shutdown: %w", err)
			}

			if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			benchCancel()
			if benchErrCh != nil {
				if benchErr := <-benchErrCh; benchErr != nil && !errors.Is(benchErr, context.Canceled) {
					return benchErr
				}
			}

			appLogger.Info("shutdown complete")
			return nil
		}
	}
}

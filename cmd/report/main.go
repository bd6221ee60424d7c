package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"

	"retail-insights/internal/config"
	apperrors "retail-insights/internal/errors"
	"retail-insights/internal/observability"
	"retail-insights/internal/report"
	"retail-insights/internal/services"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(apperrors.ExitCode(apperrors.InvalidConfig(err)))
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()

	if err != nil {
		code := apperrors.ExitCode(err)
		logger.Error("run failed", "error", err, "exit_code", code)
		os.Exit(code)
	}
}

// run executes one pipeline run and writes its outputs. Panics are turned
// into INTERNAL_ERROR so the process still exits with a status.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) (err error) {
	runID := uuid.NewString()
	ctx = observability.WithRunID(ctx, runID)
	logger = logger.With("run_id", runID)

	if cfg.Processing.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Processing.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic recovered", "error", r, "stack", string(debug.Stack()))
			err = apperrors.Internal(fmt.Sprintf("unexpected panic: %v", r))
		}
	}()

	logger.Info("starting run",
		"version", version,
		"transactions", cfg.Inputs.TransactionsFile,
		"output_dir", cfg.Outputs.Dir,
		"workers", cfg.Processing.Workers,
	)
	start := time.Now()

	res, err := services.NewPipeline(cfg, nil, logger).Run(ctx)
	if err != nil {
		return err
	}
	if err := report.Emit(ctx, cfg, res.Document, res.Rows, logger); err != nil {
		return err
	}

	logger.Info("run complete",
		"rows", len(res.Rows),
		"customers", len(res.Customers),
		"missing_references", res.References.Missing,
		"duration", time.Since(start),
	)
	return nil
}

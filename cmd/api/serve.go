package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nyashahama/priority-risk-engine/internal/ai"
	"github.com/nyashahama/priority-risk-engine/internal/api"
	"github.com/nyashahama/priority-risk-engine/internal/config"
	"github.com/nyashahama/priority-risk-engine/internal/db"
	"github.com/nyashahama/priority-risk-engine/internal/metrics"
	"github.com/nyashahama/priority-risk-engine/internal/platform"
	"github.com/nyashahama/priority-risk-engine/internal/store"
	"github.com/nyashahama/priority-risk-engine/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background batch runner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}

	// Root context cancelled by OS signal. Runner and HTTP server both respect it.
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────────────
	pool, err := openDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	if cfg.AutoMigrate {
		if err := platform.Migrate(pool); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		logger.Info("migrations applied")
	}

	queries := db.New(pool)

	// ── Store (atomic multi-step writes) ──────────────────────────────────────
	st := store.New(pool, queries)

	m := metrics.NewManager()

	// ── AI ────────────────────────────────────────────────────────────────────
	// Anthropic is primary, DeepSeek the fallback. With neither key the
	// enricher is disabled and rule explanations are stored as-is.
	var primary, secondary ai.Explainer
	if cfg.AnthropicAPIKey != "" {
		primary = ai.NewAnthropicExplainer(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	if cfg.DeepSeekAPIKey != "" {
		secondary = ai.NewDeepSeekExplainer(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, cfg.DeepSeekBaseURL)
	}
	enricher := ai.NewEnricher(
		ai.NewFallbackExplainer(primary, secondary, logger),
		ai.EnricherConfig{
			Timeout:       cfg.EnrichTimeout,
			RatePerSecond: cfg.EnrichRatePerSecond,
			Burst:         cfg.EnrichBurst,
		},
		logger, m,
	)
	logger.Info("ai: enrichment configured",
		"enabled", enricher.Enabled(),
		"anthropic", primary != nil,
		"deepseek", secondary != nil,
	)

	// ── Worker ────────────────────────────────────────────────────────────────
	pipeline := worker.NewPipeline(queries, st, enricher, m, logger)
	coord := worker.NewCoordinator(pipeline, st, st, queries, worker.CoordinatorConfig{
		ChunkSize:     cfg.BatchChunkSize,
		ErrorLogLimit: cfg.BatchErrorLogLimit,
	}, m, logger)
	runner := worker.NewRunner(coord, st, worker.RunnerConfig{
		Workers:      cfg.BatchWorkers,
		QueueSize:    cfg.BatchQueueSize,
		ReapInterval: cfg.ReapInterval,
		StaleAfter:   cfg.StaleJobAfter,
		MaxRetries:   cfg.BatchMaxRetries,
		RetryBackoff: cfg.BatchRetryBackoff,
	}, m, logger)

	// ── HTTP server ───────────────────────────────────────────────────────────
	// Single scores run the enrichment call inline, so the request budget
	// leaves room for it.
	handler := api.NewServer(queries, st, pipeline, runner, m, api.Config{
		Env:            cfg.Env,
		RequestTimeout: cfg.EnrichTimeout + 10*time.Second,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.EnrichTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the runner in a background goroutine. It blocks until ctx is done
	// and every worker has returned.
	runnerDone := make(chan struct{})
	go func() {
		runner.Start(ctx)
		close(runnerDone)
	}()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until either a signal arrives or the server dies unexpectedly.
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		<-runnerDone
		return fmt.Errorf("server error: %w", err)
	}

	// Give in-flight HTTP requests up to 20 seconds to finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Interrupted jobs are marked failed by the runner and can be resumed.
	<-runnerDone
	logger.Info("shutdown complete")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/elasticbot/internal/ai"
	"github.com/kiranshivaraju/elasticbot/internal/api"
	"github.com/kiranshivaraju/elasticbot/internal/api/handler"
	mw "github.com/kiranshivaraju/elasticbot/internal/api/middleware"
	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/internal/elasticity"
	"github.com/kiranshivaraju/elasticbot/internal/market"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"ai_provider", cfg.AI.Provider,
		"async_enabled", cfg.Broker.AsyncEnabled,
		"env", cfg.Server.Env,
	)

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database, cache and (when async) the broker
	rt, err := connect(ctx, cfg, cfg.Broker.AsyncEnabled)
	if err != nil {
		return err
	}
	defer rt.Close()

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create AI provider
	aiProvider, err := ai.NewProvider(cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name(), "model", aiProvider.Model())

	// 5. Services
	registry := newRegistry(cfg, rt.store, rt.cache)
	calcs := elasticity.NewService(rt.store, newStrategy(cfg.Broker, rt.broker, registry), elasticity.Options{
		MaxSpan:      cfg.Elasticity.MaxSpan,
		RecentWindow: cfg.Elasticity.RecentWindow,
	})
	interpreter := ai.NewInterpretationService(aiProvider, rt.store, rt.cache, cfg.AI.CacheTTL, cfg.AI.InferenceTimeout)

	// 6. Build router with dependencies
	router := api.NewRouter(api.Dependencies{
		Fingerprint: mw.NewFingerprint(cfg.Server.RequesterHashKey),
		RateLimit:   mw.NewRateLimit(rt.cache, cfg.RateLimit.Enabled),
		Limits: api.Limits{
			CalculatePerHour: cfg.RateLimit.CalculatePerHour,
			InterpretPerHour: cfg.RateLimit.InterpretPerHour,
		},

		Elasticity:       handler.NewElasticity(calcs),
		MarketData:       handler.NewMarketData(market.NewReader(rt.store)),
		InterpretHandler: handler.NewInterpretHandler(interpreter),
		HealthHandler:    handler.NewHealthHandler(healthChecks(rt.store, rt.cache, rt.broker)),
	})

	// 7. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// A synchronous calculation runs inside the request.
		WriteTimeout: cfg.Elasticity.ExecutionTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// contextOrBackground tolerates commands executed without a context.
func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

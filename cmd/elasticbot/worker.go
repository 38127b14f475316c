package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/internal/queue"
	"github.com/kiranshivaraju/elasticbot/internal/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWorkerCmd() *cobra.Command {
	var concurrency int
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume background tasks from the broker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of tasks run in parallel (default WORKER_CONCURRENCY)")
	return cmd
}

func runWorker(parent context.Context, concurrency int) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if concurrency > 0 {
		cfg.Worker.Concurrency = concurrency
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := connect(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer rt.Close()

	registry := newRegistry(cfg, rt.store, rt.cache)

	// Tasks claimed by a worker that died are still in its processing lists.
	if rb, ok := rt.broker.(*queue.RedisBroker); ok {
		n, err := rb.RequeueInFlight(ctx, registry.Kinds())
		if err != nil {
			return fmt.Errorf("requeue in-flight tasks: %w", err)
		}
		if n > 0 {
			slog.Warn("requeued in-flight tasks", "count", n)
		}
	}

	pool := worker.NewPool(rt.broker, registry, cfg.Worker.Concurrency)
	reaper := worker.NewReaper(rt.store, cfg.Worker.ProcessingTimeout, cfg.Worker.ReapInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pool.Run(gctx)
	})
	g.Go(func() error {
		reaper.Run(gctx)
		return nil
	})

	slog.Info("worker started", "broker", cfg.Broker.Kind, "concurrency", cfg.Worker.Concurrency)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	slog.Info("worker stopped gracefully")
	return nil
}

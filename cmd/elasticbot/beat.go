package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kiranshivaraju/elasticbot/internal/config"
	"github.com/kiranshivaraju/elasticbot/internal/scheduler"
	"github.com/spf13/cobra"
)

func newBeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "beat",
		Short: "Fire the periodic market data tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBeat(cmd.Context())
		},
	}
}

// runBeat must run as a single instance; two schedulers fire every trigger twice.
func runBeat(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := connect(ctx, cfg, cfg.Broker.AsyncEnabled)
	if err != nil {
		return err
	}
	defer rt.Close()

	strategy := newStrategy(cfg.Broker, rt.broker, newRegistry(cfg, rt.store, rt.cache))
	sched, err := scheduler.New(strategy, scheduler.DefaultSchedule())
	if err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}
	return sched.Run(ctx)
}

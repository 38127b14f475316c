// Package main is the entrypoint for the elasticbot API server, worker,
// scheduler and migration runner.
//
//	@title			Elasticbot API
//	@version		1.0
//	@description	Price elasticity of USDT/BOB P2P demand, computed as asynchronous jobs.
//	@BasePath		/api/v1
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("elasticbot failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "elasticbot",
		Short:         "USDT/BOB demand elasticity service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(os.Getenv("LOG_LEVEL"))
		},
	}
	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newBeatCmd(),
		newMigrateCmd(),
	)
	return root
}

func setupLogger(level string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

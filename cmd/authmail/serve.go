package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/SimpnicServerTeam/scs-authmail-server/internal/app"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/config"
	"github.com/SimpnicServerTeam/scs-authmail-server/internal/logger"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the service with its health and metrics endpoints",
		Long: `Open the user database and token store, start the expired token
sweeper and serve /health and /metrics until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.AppEnv)

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}

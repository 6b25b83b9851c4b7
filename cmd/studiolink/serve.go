package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ingex/studiolink"
	"github.com/ingex/studiolink/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd polls the configured channels and serves the relay API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll the studio and serve the relay API",
	Long: `Poll every configured status channel and serve the relay API.

The relay exposes:
  GET  /api/status                       last snapshot of every channel
  GET  /api/sse                          live snapshot changes
  POST /api/command/{channel}/{command}  vtr, replay, tape or assets
  GET  /api/settings, POST /api/settings the IngexSettings cookie

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  studiolink serve -c studiolink.yaml
  studiolink serve -c studiolink.yaml --port 9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	serveCmd.Flags().Int("port", 0, "relay port, overrides the config file")
	_ = serveCmd.MarkFlagRequired("config")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cfg.Port == 0 {
		return errors.New("serve needs a relay port: set port in the config or pass --port")
	}

	logger.Info("config loaded",
		"base_url", cfg.BaseURL,
		"channels", len(cfg.Channels),
	)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build channels: %w", err)
	}
	opts = append(opts,
		studiolink.WithPort(cfg.Port),
		studiolink.WithLogger(logger),
		studiolink.WithAlertHandler(func(channel, expected, got string) {
			logger.Error("studio server version mismatch",
				"channel", channel,
				"expected", expected,
				"got", got,
			)
		}),
		studiolink.WithMessageBox(func(operation string, err error) {
			logger.Error("asset operation failed", "operation", operation, "error", err)
		}),
	)

	console, err := studiolink.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runUntilDone(ctx, console, logger)
}

// runUntilDone runs console.Start and bounds the graceful shutdown.
func runUntilDone(ctx context.Context, console *studiolink.Console, logger *slog.Logger) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- console.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("console error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for pollers and commands with a timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("console error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}

// Standalone mock Ingex backend for trying the CLI and relay without a studio.
//
// Usage:
//
//	go run ./cmd/studiosim --addr :7000
//
// Then in another terminal:
//
//	go run ./cmd/studiolink watch -c studiolink.yaml
//	go run ./cmd/studiolink send vtr play --url http://localhost:7000
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "studiosim",
	Short:        "Mock Ingex studio backend",
	SilenceUsage: true,
	RunE:         runSim,
}

func init() {
	rootCmd.Flags().String("addr", ":7000", "listen address")
	rootCmd.Flags().String("server-version", "1.4", "version reported in status documents")
	rootCmd.Flags().Bool("debug", false, "log every request")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSim(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	serverVersion, _ := cmd.Flags().GetString("server-version")
	debug, _ := cmd.Flags().GetBool("debug")

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           newStudio(serverVersion, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("studio simulator listening", "addr", addr, "version", serverVersion)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

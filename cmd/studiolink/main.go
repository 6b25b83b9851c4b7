// Package main is the entry point for the studiolink CLI.
//
// Usage:
//
//	studiolink serve -c config.yaml      # Poll channels and serve the relay API
//	studiolink watch -c config.yaml      # Print channel changes to the terminal
//	studiolink validate -c config.yaml   # Validate configuration
//	studiolink send vtr play --url URL   # Send one command
//	studiolink format position 1500      # Format a value like the console does
//	studiolink version                   # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "studiolink",
	Short: "Status polling and command relay for an Ingex studio",
	Long: `studiolink keeps a live view of an Ingex studio backend.

It polls the recorder, VTR and tape status documents, sends gated
control commands, and can relay both over a small HTTP API with
Server-Sent Events for live updates.

Quick start:
  1. Create a config file (studiolink.yaml)
  2. Run: studiolink serve -c studiolink.yaml
  3. Open http://localhost:8090/api/status

Example config:
  base_url: http://studio:7000
  port: 8090
  channels:
    - name: vtr
      preset: vtr
      display:
        - label: Position
          path: position
          format: position`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// newLogger creates a JSON logger for CLI use.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: level,
	}))
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this studiolink binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "studiolink %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "log at debug level")
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ingex/studiolink/config"
)

// validateCmd validates a config file without polling anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a studiolink configuration file without contacting the studio.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  studiolink validate -c studiolink.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// the SDK applies checks the YAML layer does not repeat
	if _, err := config.BuildChannels(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	relay := "disabled"
	if cfg.Port != 0 {
		relay = fmt.Sprintf("port %d", cfg.Port)
	}

	names := make([]string, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		names = append(names, ch.Name)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Base URL:      %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "  Relay:         %s\n", relay)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Channels:      %d (%s)\n", len(cfg.Channels), strings.Join(names, ", "))

	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ingex/studiolink"
	"github.com/ingex/studiolink/config"
	"github.com/ingex/studiolink/internal/render"
)

// watchCmd prints a line whenever a channel's rendered state changes.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print status changes to the terminal",
	Long: `Poll every configured status channel and print a line each time a
channel's state or display fields change. Unchanged polls print nothing.

The relay API is not started.

Example:
  studiolink watch -c studiolink.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = watchCmd.MarkFlagRequired("config")
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if len(cfg.Channels) == 0 {
		return fmt.Errorf("no channels configured")
	}

	channels, err := config.BuildChannels(cfg)
	if err != nil {
		return fmt.Errorf("failed to build channels: %w", err)
	}

	w := newWatcher(cmd.OutOrStdout(), channels)

	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return fmt.Errorf("failed to build channels: %w", err)
	}
	opts = append(opts,
		studiolink.WithPort(0),
		studiolink.WithLogger(logger),
		studiolink.WithStatusCallback(w.observe),
		studiolink.WithAlertHandler(func(channel, expected, got string) {
			w.printf("%s: server version %s, expected %s\n", channel, got, expected)
		}),
	)

	console, err := studiolink.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create console: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runUntilDone(ctx, console, logger)
}

// watcher renders snapshots as single lines and suppresses repeats.
type watcher struct {
	out     io.Writer
	display map[string][]studiolink.DisplayField
	cache   render.Cache

	mu sync.Mutex
}

func newWatcher(out io.Writer, channels []studiolink.StatusChannel) *watcher {
	display := make(map[string][]studiolink.DisplayField, len(channels))
	for _, ch := range channels {
		display[ch.Name()] = ch.Display()
	}
	return &watcher{out: out, display: display}
}

// observe runs on each channel's polling goroutine.
func (w *watcher) observe(s studiolink.Snapshot) {
	line := w.line(s)
	if !w.cache.Changed(s.Channel, line) {
		return
	}
	w.printf("%s\n", line)
}

// line renders a snapshot as "channel state Label=value ...", with fields
// in display order. Failures append the error.
func (w *watcher) line(s studiolink.Snapshot) string {
	var b strings.Builder
	b.WriteString(s.Channel)
	b.WriteByte(' ')
	b.WriteString(s.State.String())

	for _, d := range w.display[s.Channel] {
		fmt.Fprintf(&b, " %s=%s", d.Label, s.Fields[d.Label])
	}
	if s.Err != nil {
		fmt.Fprintf(&b, " error=%q", s.Err.Error())
	}
	return b.String()
}

func (w *watcher) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, format, args...)
}

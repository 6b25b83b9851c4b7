package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ingex/studiolink"
)

// sendCmd groups one-shot commands. Each subcommand sends a single request
// through the same gate the console uses and waits for it to complete.
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single command to the studio",
	Long: `Send one control command and wait for the reply.

Examples:
  studiolink send vtr play --url http://studio:7000
  studiolink send replay seek offset=-25 whence=cur --url http://studio:7000
  studiolink send tape-delete 12 15 --url http://studio:7000
  studiolink send asset getmaterial '{"id":9}' --url http://studio:7000`,
}

var sendVTRCmd = &cobra.Command{
	Use:   "vtr <command>",
	Short: "Send /vtr/control/<command>",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(cmd, func(ctx context.Context, c *studiolink.Console) (bool, error) {
			return c.VTR(ctx, args[0])
		})
	},
}

var sendReplayCmd = &cobra.Command{
	Use:   "replay <command> [key=value...]",
	Short: "Send /confreplay/<command>?<params>",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(args[1:])
		if err != nil {
			return err
		}
		return runSend(cmd, func(ctx context.Context, c *studiolink.Console) (bool, error) {
			return c.Replay(ctx, args[0], params)
		})
	},
}

var sendTapeDeleteCmd = &cobra.Command{
	Use:   "tape-delete <item-id>...",
	Short: "Delete tape cache items",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(cmd, func(ctx context.Context, c *studiolink.Console) (bool, error) {
			return c.DeleteCacheItems(ctx, args)
		})
	},
}

var sendAssetCmd = &cobra.Command{
	Use:   "asset <operation> [jsonIn]",
	Short: "Call an asset-management operation",
	Long: `Call an asset-management operation and print the ok~ payload.

jsonIn defaults to {}. An err~ reply is printed as an error.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := "{}"
		if len(args) == 2 {
			in = args[1]
		}
		if !json.Valid([]byte(in)) {
			return errors.New("jsonIn is not valid JSON")
		}

		var payload string
		err := runSend(cmd, func(ctx context.Context, c *studiolink.Console) (bool, error) {
			return c.Asset(ctx, args[0], json.RawMessage(in), func(p string) {
				payload = p
			})
		})
		if err != nil {
			return err
		}
		if payload != "" {
			fmt.Fprintln(cmd.OutOrStdout(), payload)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.AddCommand(sendVTRCmd, sendReplayCmd, sendTapeDeleteCmd, sendAssetCmd)

	sendCmd.PersistentFlags().String("url", "", "studio base URL, e.g. http://studio:7000 (required)")
	sendCmd.PersistentFlags().Duration("timeout", 5*time.Second, "command timeout")
	_ = sendCmd.MarkPersistentFlagRequired("url")
}

// runSend builds a console, issues one command and waits for its result.
func runSend(cmd *cobra.Command, send func(context.Context, *studiolink.Console) (bool, error)) error {
	baseURL, _ := cmd.Flags().GetString("url")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	var result *studiolink.CommandResult
	c, err := studiolink.New(
		studiolink.WithBaseURL(baseURL),
		studiolink.WithLogger(newLogger(cmd)),
		studiolink.WithCommandTimeout(timeout),
		studiolink.WithCommandCallback(func(r studiolink.CommandResult) {
			result = &r
		}),
	)
	if err != nil {
		return err
	}

	sent, err := send(context.Background(), c)
	if err != nil {
		return err
	}
	if !sent {
		// a fresh console has every gate open
		return errors.New("command was not sent")
	}
	c.Wait()

	if result == nil {
		return errors.New("command completed without a result")
	}
	if result.Err != nil {
		return fmt.Errorf("%s failed: %w", result.Path, result.Err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %d in %s\n", result.Path, result.StatusCode, result.Latency.Round(time.Millisecond))
	return nil
}

// parseParams turns key=value arguments into query parameters. A bare key
// becomes a flag with no value.
func parseParams(args []string) (url.Values, error) {
	params := url.Values{}
	for _, a := range args {
		key, value, hasValue := strings.Cut(a, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", a)
		}
		if !hasValue {
			params[key] = nil
			continue
		}
		params.Add(key, value)
	}
	return params, nil
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ingex/studiolink/format"
)

// formatCmd exposes the console's display formatting.
var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Format sizes, positions and timecodes",
	Long: `Format a value exactly as the console displays it.

Examples:
  studiolink format size 1500000000          # 1.50GB
  studiolink format position 1500            # 00:01:00:00
  studiolink format timecode 10 0 5 24 --drop # 10;00;05;24`,
}

var formatSizeCmd = &cobra.Command{
	Use:   "size <bytes>",
	Short: "Format a byte count with decimal units",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid byte count %q", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), format.Size(n))
		return nil
	},
}

var formatPositionCmd = &cobra.Command{
	Use:   "position <frames>",
	Short: "Format a 25 fps frame count as HH:MM:SS:FF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid frame count %q", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), format.Position(n))
		return nil
	},
}

var formatTimecodeCmd = &cobra.Command{
	Use:   "timecode <hour> <min> <sec> <frame>",
	Short: "Format a discrete timecode",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		var parts [4]int
		for i, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid timecode field %q", a)
			}
			parts[i] = n
		}
		drop, _ := cmd.Flags().GetBool("drop")

		tc := format.Timecode{
			Hour:      parts[0],
			Min:       parts[1],
			Sec:       parts[2],
			Frame:     parts[3],
			DropFrame: drop,
		}
		fmt.Fprintln(cmd.OutOrStdout(), tc)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.AddCommand(formatSizeCmd, formatPositionCmd, formatTimecodeCmd)

	formatTimecodeCmd.Flags().Bool("drop", false, "drop-frame timecode, joined with ';'")
}

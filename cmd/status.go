package cmd

import (
	"fmt"

	"foldersync/internal/daemon"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View the status of a running foldersync",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var result daemon.StatusResponse
		if err := getJSON("/status", &result); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		snap := result.Status

		fmt.Fprintf(out, "source:    %s\n", snap.Source)
		fmt.Fprintf(out, "replica:   %s\n", snap.Replica)
		fmt.Fprintf(out, "interval:  %s\n", snap.Interval)
		fmt.Fprintf(out, "started:   %s\n", humanize.Time(snap.StartedAt))
		fmt.Fprintf(out, "ticks:     %d (%d failed)\n", snap.Ticks, snap.Failed)

		if snap.LastTick == nil {
			fmt.Fprintln(out, "last tick: -")
		} else {
			fmt.Fprintf(out, "last tick: %s, %d copied (%s), %d removed\n",
				humanize.Time(*snap.LastTick),
				snap.LastCopied,
				humanize.Bytes(uint64(snap.LastBytes)),
				snap.LastRemoved)
		}

		if snap.LastError != "" {
			fmt.Fprintf(out, "error:     %s\n", snap.LastError)
		}

		if result.Stats != nil {
			fmt.Fprintf(out, "history:   %d ticks, %d ok, %d failed\n",
				result.Stats.Total, result.Stats.Success, result.Stats.Failed)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

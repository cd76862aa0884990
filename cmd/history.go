package cmd

import (
	"fmt"
	"net/url"
	"strconv"

	"foldersync/internal/model"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	historyN      int
	historyTick   string
	historyFailed bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent synchronization ticks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyTick != "" {
			return showTick(cmd, historyTick)
		}

		path := fmt.Sprintf("/history?n=%d", historyN)
		if historyFailed {
			path += "&status=failed"
		}

		var ticks []model.Tick
		if err := getJSON(path, &ticks); err != nil {
			return err
		}

		if len(ticks) == 0 {
			if historyFailed {
				fmt.Fprintln(cmd.OutOrStdout(), "no failed ticks")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no history yet")
			}
			return nil
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.SetHeader([]string{"Tick", "Status", "Finished", "Copied", "Removed", "Size", "Error"})
		table.SetAutoWrapText(false)

		for _, t := range ticks {
			table.Append([]string{
				t.TickID,
				string(t.Status),
				t.FinishedAt.Format("2006-01-02 15:04:05"),
				strconv.Itoa(t.Copied),
				strconv.Itoa(t.Removed),
				humanize.Bytes(uint64(t.Bytes)),
				t.ErrMsg,
			})
		}

		table.Render()
		return nil
	},
}

func showTick(cmd *cobra.Command, tickID string) error {
	var actions []model.History
	if err := getJSON("/history/"+url.PathEscape(tickID), &actions); err != nil {
		return err
	}

	if len(actions) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "no actions recorded for tick %s\n", tickID)
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Time", "Action", "Name", "Size"})

	for _, h := range actions {
		size := "-"
		if h.Action == model.ActionCopied {
			size = humanize.Bytes(uint64(h.Size))
		}

		table.Append([]string{
			h.SyncedAt.Format("2006-01-02 15:04:05"),
			string(h.Action),
			h.Name,
			size,
		})
	}

	table.Render()
	return nil
}

func init() {
	historyCmd.Flags().IntVar(&historyN, "n", 20, "number of ticks to show")
	historyCmd.Flags().StringVar(&historyTick, "tick", "", "show the actions of one tick")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "show failed ticks only")
	rootCmd.AddCommand(historyCmd)
}

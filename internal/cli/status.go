package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/me/mlfq/pkg/model"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ready-queue occupancy and dispatch counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client.Get("/api/v1/scheduler")
			if err != nil {
				return fmt.Errorf("get scheduler status: %w", err)
			}
			var status model.SchedulerStatus
			if err := resp.decode(&status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tick: %s\n", humanize.Comma(int64(status.Tick)))
			for i, level := range status.CPULevels {
				if level == model.NoLevel {
					fmt.Fprintf(out, "  CPU %d: idle\n", i)
				} else {
					fmt.Fprintf(out, "  CPU %d: running tier %d\n", i, level)
				}
			}
			for _, t := range status.Tiers {
				fmt.Fprintf(out, "  Tier %d: %d queued, %s dispatched, %s discarded, %s promoted\n",
					t.Tier, t.Queued, humanize.Comma(int64(t.Dispatched)),
					humanize.Comma(int64(t.Discarded)), humanize.Comma(int64(t.Promoted)))
				if t.Tier < len(status.Queued) && len(status.Queued[t.Tier]) > 0 {
					pids := make([]string, len(status.Queued[t.Tier]))
					for i, pid := range status.Queued[t.Tier] {
						pids[i] = fmt.Sprint(pid)
					}
					fmt.Fprintf(out, "    pids: %s\n", strings.Join(pids, " "))
				}
			}
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/me/mlfq/pkg/model"
	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var (
		pid   int
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the process lifecycle journal, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			q.Set("limit", strconv.Itoa(limit))
			if pid > 0 {
				q.Set("pid", strconv.Itoa(pid))
			}
			if kind != "" {
				q.Set("kind", kind)
			}

			resp, err := client.Get("/api/v1/events?" + q.Encode())
			if err != nil {
				return fmt.Errorf("list events: %w", err)
			}
			var events []model.Event
			if err := resp.decode(&events); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No events.")
				return nil
			}
			for _, ev := range events {
				fmt.Fprintf(out, "%8d  pid %-4d %-9s %-40s %s\n",
					ev.Tick, ev.PID, ev.Kind, ev.Detail, humanize.Time(ev.CreatedAt))
			}
			if resp.Pagination != nil && resp.Pagination.HasMore {
				fmt.Fprintf(out, "\n(%d of %d shown)\n", len(events), resp.Pagination.Total)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&pid, "pid", 0, "Only events for this pid")
	cmd.Flags().StringVar(&kind, "kind", "", "Only events of this kind (exec, kill, exit, memlim, promote, priority, overflow)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum events to show")
	return cmd
}

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/me/mlfq/pkg/model"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running processes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := client.Processes()
			if err != nil {
				return fmt.Errorf("list processes: %w", err)
			}
			printProcesses(cmd.OutOrStdout(), procs)
			return nil
		},
	}
}

// printProcesses writes one row per process: name, pid, stack pages,
// memory size and limit, then the scheduler view.
func printProcesses(w io.Writer, procs []model.ProcessInfo) {
	if len(procs) == 0 {
		fmt.Fprintln(w, "No processes.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPID\tSTACK\tSIZE\tLIMIT\tSTATE\tTIER\tPRIO\tTICKS")
	for _, p := range procs {
		limit := "unlimited"
		if p.MemLimit > 0 {
			limit = humanize.IBytes(uint64(p.MemLimit))
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			p.Name, p.PID, p.StackPages, humanize.IBytes(uint64(p.Size)), limit,
			p.State, p.Tier, p.Priority, p.Ticks)
	}
	tw.Flush()
}

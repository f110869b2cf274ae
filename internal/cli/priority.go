package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPriorityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "priority <pid> <value>",
		Short: "Set a process's tier-2 priority (0 runs first)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid %q", args[0])
			}
			prio, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid priority %q", args[1])
			}
			if err := client.SetPriority(pid, prio); err != nil {
				return fmt.Errorf("priority %d: %w", pid, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Process %d priority %d\n", pid, prio)
			return nil
		},
	}
}

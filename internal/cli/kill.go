package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill <pid>",
		Short: "Kill a process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid %q", args[0])
			}
			if err := client.Kill(pid); err != nil {
				return fmt.Errorf("kill %d: %w", pid, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Process %d killed\n", pid)
			return nil
		},
	}
}

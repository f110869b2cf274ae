package cli

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute <path> <stack_pages>",
		Short: "Execute a program with the given number of stack pages",
		Long:  "Execute starts a program registered with mlfqd. Stack pages must be between 1 and 100.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid stack size %q", args[1])
			}
			info, err := client.Execute(args[0], stack)
			if err != nil {
				return fmt.Errorf("execute %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Process %d (%s) started, size %s\n",
				info.PID, info.Name, humanize.IBytes(uint64(info.Size)))
			return nil
		},
	}
}

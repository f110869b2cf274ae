package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newMemlimCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "memlim <pid> <limit>",
		Short: "Set a process memory limit",
		Long:  "Memlim caps a process's memory. The limit accepts sizes like 65536, 64KiB or 1MB; 0 removes the cap.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pid, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid pid %q", args[0])
			}
			limit, err := humanize.ParseBytes(args[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}
			if limit > math.MaxInt64 {
				return fmt.Errorf("invalid limit %q: exceeds %s", args[1], humanize.IBytes(math.MaxInt64))
			}
			if err := client.SetMemoryLimit(pid, int64(limit)); err != nil {
				return fmt.Errorf("memlim %d: %w", pid, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Process %d limited to %s\n", pid, humanize.IBytes(limit))
			return nil
		},
	}
}

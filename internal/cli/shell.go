package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive process manager shell",
		Long: `Shell reads one command per line:

  list                        show the process table
  kill <pid>                  kill a process
  execute <path> <stack>      start a program
  memlim <pid> <limit>        set a memory limit in bytes
  exit                        leave the shell`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), client)
		},
	}
}

// runShell executes shell commands from in until EOF or "exit". Command
// results go to msg; only the process listing goes to out.
func runShell(in io.Reader, out, msg io.Writer, c *Client) error {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(msg, "- ")
		if !sc.Scan() {
			return sc.Err()
		}
		fields := strings.Split(sc.Text(), " ")

		switch fields[0] {
		case "list":
			procs, err := c.Processes()
			if err != nil {
				logger.Debug("list", "error", err)
				fmt.Fprintln(msg, "list failed")
				continue
			}
			printProcesses(out, procs)

		case "kill":
			pid, ok := shellArg(fields, 1)
			if !ok {
				fmt.Fprintln(msg, "undefined command")
				continue
			}
			if err := c.Kill(pid); err != nil {
				logger.Debug("kill", "pid", pid, "error", err)
				fmt.Fprintln(msg, "kill failed")
				continue
			}
			fmt.Fprintln(msg, "kill succeed")

		case "execute":
			stack, ok := shellArg(fields, 2)
			if !ok || fields[1] == "" {
				fmt.Fprintln(msg, "undefined command")
				continue
			}
			if _, err := c.Execute(fields[1], stack); err != nil {
				logger.Debug("execute", "path", fields[1], "error", err)
				fmt.Fprintln(msg, "exec failed")
			}

		case "memlim":
			pid, ok := shellArg(fields, 1)
			limit, ok2 := shellArg(fields, 2)
			if !ok || !ok2 {
				fmt.Fprintln(msg, "undefined command")
				continue
			}
			if err := c.SetMemoryLimit(pid, int64(limit)); err != nil {
				logger.Debug("memlim", "pid", pid, "error", err)
				fmt.Fprintln(msg, "memlim failed")
				continue
			}
			fmt.Fprintln(msg, "memlim succeed")

		case "exit":
			return nil

		default:
			fmt.Fprintln(msg, "undefined command")
		}
	}
}

// shellArg parses fields[i] as a non-negative decimal. Signs, spaces and
// anything but digits are rejected.
func shellArg(fields []string, i int) (int, bool) {
	if i >= len(fields) || fields[i] == "" {
		return 0, false
	}
	n := 0
	for _, ch := range fields[i] {
		if ch < '0' || ch > '9' {
			return 0, false
		}
		n = n*10 + int(ch-'0')
		if n > 1<<40 {
			return 0, false
		}
	}
	return n, true
}

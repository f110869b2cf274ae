package cli

import (
	"log/slog"
	"os"

	"github.com/me/mlfq/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking PMANAGER_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("PMANAGER_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the pmanager CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pmanager",
		Short: "pmanager: process manager for the mlfq simulated kernel",
		Long:  "pmanager lists, executes, kills and limits processes running under mlfqd.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "mlfqd server URL (or PMANAGER_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newListCmd(),
		newKillCmd(),
		newExecuteCmd(),
		newMemlimCmd(),
		newPriorityCmd(),
		newStatusCmd(),
		newEventsCmd(),
		newShellCmd(),
	)

	return root
}

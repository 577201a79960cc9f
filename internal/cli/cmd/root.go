package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"tgvidbot/internal/config"
)

const (
	ExitOK           = 0
	ExitCLIError     = 1
	ExitMissingDep   = 2
	ExitResolveError = 3
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tgvidbot",
		Short: "Telegram bot that fetches videos from YouTube, Instagram, TikTok, VK and Rutube",
		Long: "tgvidbot answers links sent to a Telegram bot with a keyboard of the available qualities " +
			"and uploads the chosen file. The resolve, plan and tui commands run the same extraction " +
			"from a terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Init(cmd.Root()); err != nil {
				return &ExitError{Code: ExitCLIError, Err: err}
			}
			return nil
		},
	}

	// Persistent flags available to all subcommands
	bindPersistentFlags(root.PersistentFlags())

	root.AddCommand(newServeCmd())
	root.AddCommand(newResolveCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindPersistentFlags(fs *pflag.FlagSet) {
	fs.BoolP("verbose", "v", false, "Log every yt-dlp command and output line")
	fs.String("dl-binary", "", "Path to yt-dlp or youtube-dl")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.String("db", "", "SQLite database path (default: data dir)")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	return root.ExecuteContext(ctx)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

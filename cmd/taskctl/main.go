// Command taskctl edits the task and status collections directly on disk. It
// takes the same file locks as taskd, so both can run at once.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/micro-nova/taskd/internal/app"
	"github.com/micro-nova/taskd/internal/config"
	"github.com/micro-nova/taskd/internal/identity"
	"github.com/micro-nova/taskd/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	DataDir    string
	JSON       bool
	Debug      bool
}

// open loads the configuration and opens the collections.
func (o *rootOptions) open() (*app.App, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, err
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(cfg), nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "taskctl",
		Short: "taskctl - edit taskd collections from the command line",
		Long: `taskctl reads and writes the tasks and statuses files that taskd serves.

It locks the files exactly as the daemon does, so it is safe to use while
taskd is running. Changes show up on the daemon's /api/subscribe stream.`,
		Version:       identity.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.Debug {
				level = slog.LevelDebug
			}
			logging.Setup(level)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetVersionTemplate("taskctl version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory (overrides config)")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print JSON instead of text")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newTasksCommand(opts))
	cmd.AddCommand(newStatusesCommand(opts))
	cmd.AddCommand(newBackupCommand(opts))
	return cmd
}

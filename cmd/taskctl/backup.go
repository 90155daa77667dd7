package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/micro-nova/taskd/internal/maintenance"
)

func newBackupCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot both collections into the backup directory",
		Long: `Snapshot both collections into a new timestamped directory under the
configured backup directory, then prune to the configured retention.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			dir, err := a.Backups().RunBackupNow(cmd.Context())
			if err != nil {
				return err
			}
			if rootOpts.JSON {
				return printJSON(cmd.OutOrStdout(), map[string]string{"dir": dir})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", dir)
			return err
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List existing backups, oldest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			backups, err := maintenance.ListBackups(a.Config.BackupPath())
			if err != nil {
				return err
			}
			if rootOpts.JSON {
				return printJSON(cmd.OutOrStdout(), backups)
			}
			for _, b := range backups {
				fmt.Fprintln(cmd.OutOrStdout(), b)
			}
			return nil
		},
	})
	return cmd
}

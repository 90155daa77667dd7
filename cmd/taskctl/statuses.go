package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/micro-nova/taskd/internal/models"
)

func newStatusesCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "statuses",
		Aliases: []string{"status"},
		Short:   "List and edit statuses",
	}
	cmd.AddCommand(newStatusesListCommand(rootOpts))
	cmd.AddCommand(newStatusesAddCommand(rootOpts))
	cmd.AddCommand(newStatusesSetCommand(rootOpts))
	cmd.AddCommand(newStatusesRmCommand(rootOpts))
	return cmd
}

func newStatusesListCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List statuses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			statuses, appErr := a.Ctrl.GetStatuses(cmd.Context())
			if appErr != nil {
				return appErr
			}
			if rootOpts.JSON {
				return printJSON(cmd.OutOrStdout(), statuses)
			}
			return printStatuses(cmd.OutOrStdout(), statuses)
		},
	}
}

func newStatusesAddCommand(rootOpts *rootOptions) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Add a status",
		Long: `Add a status. Labels are unique ignoring case.

Examples:
  taskctl statuses add Open --color "#4a90e2"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			s, appErr := a.Ctrl.CreateStatus(cmd.Context(), models.StatusInput{Label: args[0], Color: color})
			if appErr != nil {
				return appErr
			}
			if rootOpts.JSON {
				return printJSON(cmd.OutOrStdout(), s)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", s.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&color, "color", "#4a90e2", "hex color (#RRGGBB)")
	return cmd
}

func newStatusesSetCommand(rootOpts *rootOptions) *cobra.Command {
	var label, color string
	cmd := &cobra.Command{
		Use:   "set <id>",
		Short: "Change the label or color of a status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			cur, appErr := a.Ctrl.GetStatus(cmd.Context(), args[0])
			if appErr != nil {
				return appErr
			}
			in := models.StatusInput{Label: cur.Label, Color: cur.Color}
			if cmd.Flags().Changed("label") {
				in.Label = label
			}
			if cmd.Flags().Changed("color") {
				in.Color = color
			}
			s, appErr := a.Ctrl.UpdateStatus(cmd.Context(), args[0], in)
			if appErr != nil {
				return appErr
			}
			if rootOpts.JSON {
				return printJSON(cmd.OutOrStdout(), s)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", s.ID)
			return err
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "new label")
	cmd.Flags().StringVar(&color, "color", "", "new hex color (#RRGGBB)")
	return cmd
}

func newStatusesRmCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete statuses by ID. Tasks that use them are kept.",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			for _, id := range args {
				if appErr := a.Ctrl.DeleteStatus(cmd.Context(), id); appErr != nil {
					return appErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/micro-nova/taskd/internal/models"
)

func newTasksCommand(rootOpts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "List and edit tasks",
	}
	cmd.AddCommand(newTasksListCommand(rootOpts))
	cmd.AddCommand(newTasksAddCommand(rootOpts))
	cmd.AddCommand(newTasksRmCommand(rootOpts))
	cmd.AddCommand(newTasksClearCommand(rootOpts))
	return cmd
}

func newTasksListCommand(rootOpts *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks in file order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			tasks, appErr := a.Ctrl.GetTasks(cmd.Context())
			if appErr != nil {
				return appErr
			}
			if status != "" {
				filtered := tasks[:0]
				for _, t := range tasks {
					if t.StatusID == status {
						filtered = append(filtered, t)
					}
				}
				tasks = filtered
			}
			if rootOpts.JSON {
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			return printTasks(cmd.OutOrStdout(), tasks)
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only tasks with this status ID")
	return cmd
}

func newTasksAddCommand(rootOpts *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Add a task",
		Long: `Add a task. The words are joined with spaces.

Examples:
  taskctl tasks add "buy milk" --status status-1a2b3c4d
  taskctl tasks add walk the dog -s status-1a2b3c4d`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			t, appErr := a.Ctrl.CreateTask(cmd.Context(), models.TaskCreate{
				Text:     strings.Join(args, " "),
				StatusID: status,
			})
			if appErr != nil {
				return appErr
			}
			if rootOpts.JSON {
				return printJSON(cmd.OutOrStdout(), t)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", t.ID)
			return err
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "status ID (required)")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newTasksRmCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete tasks by ID",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			for _, id := range args {
				if appErr := a.Ctrl.DeleteTask(cmd.Context(), id); appErr != nil {
					return appErr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newTasksClearCommand(rootOpts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear all tasks without --yes")
			}
			a, err := rootOpts.open()
			if err != nil {
				return err
			}
			if appErr := a.Ctrl.ClearTasks(cmd.Context()); appErr != nil {
				return appErr
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Cleared all tasks")
			return err
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/micro-nova/taskd/internal/models"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTasks(w io.Writer, tasks []models.Task) error {
	if len(tasks) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCREATED\tTEXT")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.StatusID, t.Created, t.Text)
	}
	return tw.Flush()
}

func printStatuses(w io.Writer, statuses []models.Status) error {
	if len(statuses) == 0 {
		_, err := fmt.Fprintln(w, "No statuses.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tCOLOR")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Label, s.Color)
	}
	return tw.Flush()
}

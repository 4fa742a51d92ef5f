package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"contentstudio/internal/api"
	"contentstudio/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List generated batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			rows, err := client.History(cmd.Context())
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, api.FromHistoryRows(rows))
			}
			return writeHistory(cmd, rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	return cmd
}

func writeHistory(cmd *cobra.Command, rows []history.Row) error {
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No batches found")
		return nil
	}
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		created := "-"
		if !row.CreatedAt.IsZero() {
			created = api.FormatTime(row.CreatedAt)
		}
		table = append(table, []string{row.BatchID, strconv.Itoa(row.Count), created})
	}
	return writeTable(cmd.OutOrStdout(), []string{"Batch", "Items", "Created"}, table,
		[]columnAlignment{alignLeft, alignRight, alignLeft})
}

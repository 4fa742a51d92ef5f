package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"contentstudio/internal/history"
	"contentstudio/internal/reconcile"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Inspect generated batches",
	}
	batchCmd.AddCommand(newBatchShowCommand(ctx))
	batchCmd.AddCommand(newBatchFilesCommand(ctx))
	batchCmd.AddCommand(newBatchWaitCommand(ctx))
	return batchCmd
}

func newBatchShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <batchId>",
		Short: "Show a resolved batch document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.Batch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, view.Document)
			}
			doc := view.Document
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Batch: %s\n", args[0])
			if doc.Campaign != "" || doc.Cluster != "" {
				fmt.Fprintf(out, "Campaign: %s / %s\n", doc.Campaign, doc.Cluster)
			}
			if created, ok := doc.Created(); ok {
				fmt.Fprintf(out, "Created: %s\n", created.UTC().Format("2006-01-02 15:04:05Z"))
			}
			if view.ViewerURL != "" {
				fmt.Fprintf(out, "Viewer: %s\n", view.ViewerURL)
			}
			if len(doc.Sets) > 0 {
				rows := make([][]string, 0, len(doc.Sets))
				for i, set := range doc.Sets {
					rows = append(rows, []string{strconv.Itoa(i + 1), set.Subject, set.Preheader})
				}
				if err := writeTable(out, []string{"#", "Subject", "Preheader"}, rows, []columnAlignment{alignRight}); err != nil {
					return err
				}
			}
			if len(doc.Images) > 0 {
				rows := make([][]string, 0, len(doc.Images))
				for _, image := range doc.Images {
					hero := image.HeroURL
					if hero == "" {
						hero = "-"
					}
					rows = append(rows, []string{image.FileName, hero})
				}
				return writeTable(out, []string{"Image", "URL"}, rows, nil)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the normalized document as JSON")
	return cmd
}

func newBatchFilesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "files <batchId>",
		Short: "List the objects stored for a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			listing, err := client.Files(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(listing.Files))
			for _, file := range listing.Files {
				rows = append(rows, []string{file.Name, strconv.FormatInt(file.Size, 10), file.ContentType})
			}
			return writeTable(cmd.OutOrStdout(), []string{"Key", "Bytes", "Type"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft})
		},
	}
}

func newBatchWaitCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "wait <batchId>",
		Short: "Poll history until a freshly written batch appears",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			batchID := strings.TrimSpace(args[0])
			out := cmd.OutOrStdout()
			poller := reconcile.New(client, reconcile.Options{
				Delays: cfg.ReconcileDelays(),
				OnRows: func(attempt int, rows []history.Row) {
					fmt.Fprintf(out, "attempt %d: %d batches listed\n", attempt, len(rows))
				},
			})
			result, err := poller.Await(cmd.Context(), batchID)
			if err != nil {
				return err
			}
			if !result.Found {
				return fmt.Errorf("batch %s not listed after %d attempts", batchID, result.Attempts)
			}
			fmt.Fprintf(out, "batch %s listed\n", batchID)
			return nil
		},
	}
}

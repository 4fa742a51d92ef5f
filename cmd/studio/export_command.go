package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"contentstudio/internal/daemonrun"
	"contentstudio/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var version int
	var output string

	cmd := &cobra.Command{
		Use:   "export <batchId>",
		Short: "Export a batch's content sets as CSV or an HTML email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			if format != "csv" && format != "html" {
				return fmt.Errorf("unsupported format %q (use csv or html)", format)
			}
			return ctx.withRuntime(cmd.Context(), func(rt *daemonrun.Runtime) error {
				doc, err := rt.Batches.Resolve(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				items := export.Items(doc)
				if len(items) == 0 {
					return fmt.Errorf("batch %s has no content sets", args[0])
				}

				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					file, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("create %s: %w", output, err)
					}
					defer file.Close()
					w = file
				}
				if format == "csv" {
					return export.WriteCSV(w, items)
				}
				item, _ := export.Pick(items, version)
				return export.WriteHTML(w, item)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv or html")
	cmd.Flags().IntVar(&version, "version", 1, "Content set version for HTML export")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/internal/objectkey"
)

func newExtractIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "extract-id <text>",
		Short:       "Extract a batch id from a URL, path, or pasted text",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := objectkey.ExtractBatchID(args[0])
			if !ok {
				return fmt.Errorf("no batch id found in %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

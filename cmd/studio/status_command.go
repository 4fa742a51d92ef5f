package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon liveness and storage readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			health, err := client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("daemon unreachable: %w", err)
			}
			ready, err := client.Ready(cmd.Context())
			if err != nil {
				return fmt.Errorf("readiness check: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: %s\n", health.Status)
			fmt.Fprintf(out, "Storage ready: %s\n", yesNo(ready.Status == "ready"))
			if ready.Backend != "" {
				fmt.Fprintf(out, "Backend: %s\n", ready.Backend)
			}
			if ready.Bucket != "" {
				fmt.Fprintf(out, "Bucket: %s\n", ready.Bucket)
			}
			if ready.Prefix != "" {
				fmt.Fprintf(out, "Prefix: %s\n", ready.Prefix)
			}
			if ready.Detail != "" {
				fmt.Fprintf(out, "Detail: %s\n", ready.Detail)
			}
			return nil
		},
	}
}

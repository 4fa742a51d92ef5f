package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contentstudio/internal/daemonrun"
)

func newURLCommand(ctx *commandContext) *cobra.Command {
	var minutes int
	var signed bool

	cmd := &cobra.Command{
		Use:   "url <key>",
		Short: "Materialize the URLs of a storage key",
		Long: "Prints the browser URL for a key relative to the configured prefix, " +
			"along with the Cloud Console page and gs:// URI. Private buckets get a signed URL.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd.Context(), func(rt *daemonrun.Runtime) error {
				key := args[0]
				var (
					link string
					err  error
				)
				if signed {
					link, err = rt.URLs.Signed(cmd.Context(), key, minutes)
				} else {
					link, err = rt.URLs.Read(cmd.Context(), key, minutes)
				}
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Key: %s\n", rt.URLs.Key(key))
				fmt.Fprintf(out, "URL: %s\n", link)
				fmt.Fprintf(out, "Console: %s\n", rt.URLs.ConsoleDetails(key))
				fmt.Fprintf(out, "URI: %s\n", rt.URLs.GsURI(key))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Signed URL lifetime (defaults to storage.signed_url_minutes)")
	cmd.Flags().BoolVar(&signed, "signed", false, "Sign even when the bucket is public")
	return cmd
}

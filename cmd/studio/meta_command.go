package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newMetaCommand(ctx *commandContext) *cobra.Command {
	var refresh bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "meta",
		Short: "Show the campaign and cluster catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			cat, err := client.Meta(cmd.Context(), refresh)
			if err != nil {
				return fmt.Errorf("fetch catalog: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, cat)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source: %s\n", cat.Source)
			campaigns := append([]string(nil), cat.Campaigns...)
			for campaign := range cat.CampaignClusters {
				if !containsString(campaigns, campaign) {
					campaigns = append(campaigns, campaign)
				}
			}
			sort.Strings(campaigns)
			rows := make([][]string, 0, len(campaigns))
			for _, campaign := range campaigns {
				rows = append(rows, []string{campaign, strings.Join(cat.CampaignClusters[campaign], ", ")})
			}
			return writeTable(out, []string{"Campaign", "Clusters"}, rows, nil)
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the daemon's catalog cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog as JSON")
	return cmd
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

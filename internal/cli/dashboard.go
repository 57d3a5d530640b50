package cli

import (
	"github.com/spf13/cobra"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show statistics for your listings",
		Long:  "Show views, saves, inquiries and viewings across the listings you own.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newAPIClient().Analytics(cmd.Context())
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(d)
			}
			return printDashboard(d)
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/property"
)

func newListCmd() *cobra.Command {
	var (
		opts   property.ListOptions
		status string
		mine   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Long:  "List properties for sale, optionally filtered. With --mine, list your own listings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !property.ValidStatus(status) {
				return fmt.Errorf("invalid status %q (available, pending or sold)", status)
			}
			opts.Status = property.Status(status)

			c := newAPIClient()
			var (
				props []*property.Property
				err   error
			)
			if mine {
				props, err = c.MyProperties(cmd.Context())
			} else {
				props, err = c.ListProperties(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(props)
			}
			return printPropertyTable(props)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "q", "", "match title or address")
	cmd.Flags().StringVar(&opts.City, "city", "", "city")
	cmd.Flags().StringVar(&status, "status", "", "listing status (available|pending|sold)")
	cmd.Flags().Int64Var(&opts.MinPrice, "min-price", 0, "minimum price")
	cmd.Flags().Int64Var(&opts.MaxPrice, "max-price", 0, "maximum price")
	cmd.Flags().IntVar(&opts.MinBedrooms, "beds", 0, "minimum bedrooms")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of results")
	cmd.Flags().BoolVar(&mine, "mine", false, "list your own listings")

	return cmd
}

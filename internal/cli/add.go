package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/property"
)

func newAddCmd() *cobra.Command {
	var in property.Input

	cmd := &cobra.Command{
		Use:   "add <address>",
		Short: "List a property for sale",
		Long: `Create a listing at the given address. Your profile's name, email and
phone are shown to buyers as the lister contact.

Example:
  hm add 12 Oak Lane --title "Family home" --city Springfield --price 325000 --beds 3 --baths 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Address = strings.Join(args, " ")
			if in.Title == "" {
				in.Title = in.Address
			}

			p, err := newAPIClient().CreateProperty(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("adding property: %w", err)
			}

			if isJSON() {
				return printJSON(p)
			}

			fmt.Println("Property listed successfully!")
			printPropertySummary(p)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "listing title (default: the address)")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&in.City, "city", "", "city")
	cmd.Flags().StringVar(&in.State, "state", "", "state")
	cmd.Flags().StringVar(&in.Zip, "zip", "", "postal code")
	cmd.Flags().Int64Var(&in.Price, "price", 0, "asking price in dollars")
	cmd.Flags().IntVar(&in.Bedrooms, "beds", 0, "bedrooms")
	cmd.Flags().Float64Var(&in.Bathrooms, "baths", 0, "bathrooms")
	cmd.Flags().Int64Var(&in.AreaSqft, "sqft", 0, "floor area in square feet")
	cmd.Flags().StringVar(&in.PropertyType, "type", "", "property type (house, condo, ...)")

	return cmd
}

package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/client"
	"github.com/evcraddock/house-market/internal/preference"
	"github.com/evcraddock/house-market/internal/property"
)

// newToggleCmd builds the command that adds a property to, or removes it
// from, one of the user's saved lists.
func newToggleCmd(use, list string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Add or remove a property in your %s", list),
		Long:  fmt.Sprintf("Toggle a property in your %s: add it if absent, remove it if present.", list),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := preference.ParseList(list)
			if err != nil {
				return err
			}
			return runToggle(cmd, l, args[0])
		},
	}
}

func runToggle(cmd *cobra.Command, list preference.List, id string) error {
	prefs := client.NewPreferences(newAPIClient())
	if _, err := prefs.Get(cmd.Context()); err != nil {
		return err
	}
	if err := prefs.Toggle(cmd.Context(), list, id); err != nil {
		return err
	}

	saved := prefs.Contains(list, id)
	if isJSON() {
		return printJSON(map[string]any{"id": id, "list": list, "saved": saved})
	}
	if saved {
		fmt.Printf("★ Added %s to %s\n", id, list)
	} else {
		fmt.Printf("☆ Removed %s from %s\n", id, list)
	}
	return nil
}

func newSavedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "saved [favorites|catalogue]",
		Short: "List saved properties",
		Long:  "List the properties in your favorites (the default) or catalogue.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := preference.Favorites
			if len(args) == 1 {
				var err error
				if list, err = preference.ParseList(args[0]); err != nil {
					return err
				}
			}
			return runSaved(cmd, list)
		},
	}
}

func runSaved(cmd *cobra.Command, list preference.List) error {
	c := newAPIClient()
	pref, err := c.GetPreferences(cmd.Context())
	if err != nil {
		return err
	}

	ids := pref.Favorites
	if list == preference.Catalogue {
		ids = pref.Catalogue
	}

	props := make([]*property.Property, 0, len(ids))
	for _, id := range ids {
		p, err := c.GetProperty(cmd.Context(), id)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			continue
		}
		if err != nil {
			return err
		}
		props = append(props, p)
	}

	if isJSON() {
		return printJSON(props)
	}
	return printPropertyTable(props)
}

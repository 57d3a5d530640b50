package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show property details",
		Long:  "Show full details for a property. Viewing a property counts toward its views once per session.",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}
}

func runShow(cmd *cobra.Command, args []string) error {
	c := newAPIClient()
	id := args[0]

	if _, err := c.ViewProperty(cmd.Context(), id); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording view: %v\n", err)
	}

	p, err := c.GetProperty(cmd.Context(), id)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(p)
	}

	printPropertySummary(p)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/viewing"
)

func newViewingCmd() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "viewing <id> <date> <time>",
		Short: "Request a viewing of a property",
		Long: `Ask the owner for a viewing at a future date and time (local time).

Date format: YYYY-MM-DD
Time format: HH:MM

Examples:
  hm viewing 3f2c... 2026-11-08 14:30
  hm viewing 3f2c... 2026-11-08 10:00 --notes "bringing a contractor"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseWhen(args[1], args[2])
			if err != nil {
				return err
			}

			v, err := newAPIClient().RequestViewing(cmd.Context(), args[0], viewing.Input{ScheduledAt: at.UTC(), Notes: notes})
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(v)
			}
			fmt.Printf("Viewing requested for %s (#%s)\n", v.ScheduledAt.Local().Format("2006-01-02 15:04"), v.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "n", "", "optional notes for the owner")

	return cmd
}

func newViewingsCmd() *cobra.Command {
	var (
		owner     bool
		setStatus string
	)

	cmd := &cobra.Command{
		Use:   "viewings [viewing-id]",
		Short: "List viewings or update one",
		Long: `List the viewings you requested, or with --owner the requests for your
listings. With a viewing id and --status, update that viewing instead.

Statuses: scheduled, accepted, rejected, completed, cancelled`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()

			if len(args) == 1 {
				status := viewing.Status(setStatus)
				if !status.IsValid() {
					return fmt.Errorf("--status must be one of scheduled, accepted, rejected, completed, cancelled")
				}
				v, err := c.UpdateViewingStatus(cmd.Context(), args[0], status)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(v)
				}
				fmt.Printf("Viewing %s is now %s.\n", v.ID, v.Status)
				return nil
			}

			role := "requester"
			if owner {
				role = "owner"
			}
			list, err := c.ListViewings(cmd.Context(), role)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(list)
			}
			printViewingList(list)
			return nil
		},
	}

	cmd.Flags().BoolVar(&owner, "owner", false, "show requests for your listings")
	cmd.Flags().StringVar(&setStatus, "status", "", "new status for the given viewing")

	return cmd
}

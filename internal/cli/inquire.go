package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/inquiry"
)

func newInquireCmd() *cobra.Command {
	var in inquiry.Input
	var priority string

	cmd := &cobra.Command{
		Use:   `inquire <id> "message"`,
		Short: "Send an inquiry to a property's owner",
		Long:  "Send a message to the owner of a listing. Your profile's contact details are included.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Message = strings.Join(args[1:], " ")
			if strings.TrimSpace(in.Message) == "" {
				return fmt.Errorf("message text is required")
			}
			in.Priority = inquiry.Priority(priority)
			if priority != "" && !in.Priority.IsValid() {
				return fmt.Errorf("invalid priority %q (low, medium or high)", priority)
			}

			q, err := newAPIClient().SendInquiry(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(q)
			}
			fmt.Printf("Inquiry %s sent.\n  %s\n", q.ID, q.Message)
			return nil
		},
	}

	cmd.Flags().StringVarP(&in.Subject, "subject", "s", "", "subject line")
	cmd.Flags().StringVar(&in.SenderPhone, "phone", "", "phone number to share with the owner")
	cmd.Flags().StringVar(&priority, "priority", "", "low, medium or high (default medium)")

	return cmd
}

func newInquiriesCmd() *cobra.Command {
	var sent bool

	cmd := &cobra.Command{
		Use:   "inquiries",
		Short: "List inquiries",
		Long:  "List inquiries received about your listings, or with --sent the ones you sent.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			box := "received"
			if sent {
				box = "sent"
			}

			list, err := newAPIClient().ListInquiries(cmd.Context(), box)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(list)
			}
			printInquiryList(list)
			return nil
		},
	}

	cmd.Flags().BoolVar(&sent, "sent", false, "show inquiries you sent")

	return cmd
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and sign-in status",
		Long:  "Tests the connection to the server and checks whether the stored tokens are still valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	fmt.Printf("Server:  %s\n", getServerURL())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.signedIn() {
		fmt.Println("Account: not signed in")
		fmt.Println("\nRun 'hm login' to sign in.")
		return nil
	}
	fmt.Printf("Account: %s\n", cfg.Email)

	u, err := newAPIClient().Me(ctx)
	var apiErr *client.APIError
	switch {
	case err == nil:
		fmt.Printf("Status:  ✓ connected and signed in as %s\n", u.Email)
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		fmt.Println("Status:  ✗ session expired")
		fmt.Println("\nRun 'hm login' to sign in again.")
	case errors.As(err, &apiErr):
		fmt.Printf("Status:  ✗ unexpected response (%d)\n", apiErr.StatusCode)
	default:
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
	}

	return nil
}

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/client"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove stored tokens",
		Long:  "Ends the session on the server and removes the stored tokens from the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.Context())
		},
	}
}

func runLogout(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.signedIn() {
		fmt.Println("Not logged in.")
		return nil
	}

	// The local tokens are removed even if the server can't be reached.
	if err := newAPIClient().SignOut(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: ending server session: %v\n", err)
	}

	cfg.setTokens(client.Tokens{})
	cfg.Email = ""
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("✓ Logged out.")
	return nil
}

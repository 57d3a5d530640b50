package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/house-market/internal/client"
)

func newLoginCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "login [email]",
		Short: "Sign in and store tokens",
		Long:  "Sign in with email and password. The access and refresh tokens are saved to ~/.config/hm/config.yaml.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var email string
			if len(args) == 1 {
				email = args[0]
			}
			return runLogin(cmd.Context(), server, email, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or http://localhost:8080)")

	return cmd
}

func runLogin(ctx context.Context, serverFlag, email string, in io.Reader, out io.Writer) error {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	p := newPrompter(in, out)
	if email == "" {
		var err error
		if email, err = p.ask("Email: "); err != nil {
			return err
		}
	}
	password, err := p.askSecret("Password: ")
	if err != nil {
		return err
	}

	tokens, err := client.New(serverURL).SignIn(ctx, email, password)
	if err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		cfg = CLIConfig{}
	}

	cfg.setTokens(tokens)
	cfg.Email = email
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("✓ Signed in as %s\n", email)
	return nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newSignUpCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account",
		Long:  "Create an account. A confirmation code is emailed to you; pass it to 'hm confirm'.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSignUp(cmd, args[0], name, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "your display name")

	return cmd
}

func runSignUp(cmd *cobra.Command, email, name string, in io.Reader) error {
	password, err := newPrompter(in, cmd.OutOrStdout()).askSecret("Password: ")
	if err != nil {
		return err
	}

	if err := newAPIClient().SignUp(cmd.Context(), email, password, name); err != nil {
		return err
	}

	fmt.Printf("✓ Account created. Check %s for a confirmation code, then run:\n  hm confirm %s <code>\n", email, email)
	return nil
}

func newConfirmCmd() *cobra.Command {
	var resend bool

	cmd := &cobra.Command{
		Use:   "confirm <email> [code]",
		Short: "Confirm a new account",
		Long:  "Confirm an account with the emailed code, or request a new code with --resend.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := newAPIClient()
			if resend {
				if err := c.ResendCode(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("✓ A new code was sent to %s\n", args[0])
				return nil
			}
			if len(args) < 2 {
				return fmt.Errorf("a confirmation code is required (or use --resend)")
			}
			if err := c.ConfirmSignUp(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("✓ Account confirmed. Run 'hm login' to sign in.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&resend, "resend", false, "send a new confirmation code")

	return cmd
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Reset a forgotten password",
		Long:  "Email a reset code, then prompt for the code and a new password.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(cmd, args[0], cmd.InOrStdin())
		},
	}
}

func runReset(cmd *cobra.Command, email string, in io.Reader) error {
	c := newAPIClient()
	if err := c.ForgotPassword(cmd.Context(), email); err != nil {
		return err
	}
	fmt.Printf("If %s has an account, a reset code is on its way.\n", email)

	p := newPrompter(in, cmd.OutOrStdout())
	code, err := p.ask("Code: ")
	if err != nil {
		return err
	}
	password, err := p.askSecret("New password: ")
	if err != nil {
		return err
	}

	if err := c.ResetPassword(cmd.Context(), email, code, password); err != nil {
		return err
	}
	fmt.Println("✓ Password updated. Run 'hm login' to sign in.")
	return nil
}

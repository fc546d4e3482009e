package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shuportal/portal/internal/cli/client"
	"github.com/shuportal/portal/internal/cli/views"
	"github.com/shuportal/portal/internal/validation"
)

// NewForgetPasswordCmd creates the forgot-password command
func NewForgetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "forgot-password <username-or-email>",
		Aliases: []string{"forget-password"},
		Short:   "Email a password reset link",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForgetPassword(cmd.Context(), args[0])
		},
	}
}

func runForgetPassword(ctx context.Context, usernameOrEmail string, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	_, sess, err := rt.currentSession()
	if err != nil {
		return err
	}
	if views.Resolve(views.ForgetPassword, sess) != views.ForgetPassword {
		return fmt.Errorf("already logged in as %s", sess.Email)
	}

	if err := rt.api.ForgetPassword(ctx, usernameOrEmail); err != nil {
		return fmt.Errorf("password reset failed: %s", client.UserMessage(err))
	}

	fmt.Fprintln(rt.out, "✓ A password reset link has been sent to the account's email address.")
	return nil
}

// NewResetPasswordCmd creates the reset-password command
func NewResetPasswordCmd() *cobra.Command {
	var token, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password using the token from a reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResetPassword(cmd.Context(), token, password, terminalPrompter)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Token from the reset link (the part after #reset-password-)")
	cmd.Flags().StringVar(&password, "password", "", "New password (will prompt if not provided)")
	_ = cmd.MarkFlagRequired("token")

	return cmd
}

func runResetPassword(ctx context.Context, token, password string, ask prompter, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if token == "" {
		return fmt.Errorf("token is required")
	}

	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	_, sess, err := rt.currentSession()
	if err != nil {
		return err
	}
	if views.Resolve(views.ResetPassword, sess) != views.ResetPassword {
		return fmt.Errorf("already logged in as %s", sess.Email)
	}

	if password == "" {
		if password, err = askNewPassword(ask, validation.Password); err != nil {
			return err
		}
	}

	if err := rt.api.ResetPassword(ctx, token, password); err != nil {
		return fmt.Errorf("password reset failed: %s", client.UserMessage(err))
	}

	fmt.Fprintln(rt.out, "✓ Password changed. You can now log in with the new password.")
	return nil
}

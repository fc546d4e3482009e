package commands

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shuportal/portal/internal/cli/client"
	"github.com/shuportal/portal/internal/cli/session"
	"github.com/shuportal/portal/internal/cli/views"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set PORTAL_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PORTAL_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, username, password string, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Check for environment variables (useful for CI/CD)
	if username == "" {
		username = os.Getenv("PORTAL_USERNAME")
	}
	if password == "" {
		password = os.Getenv("PORTAL_PASSWORD")
	}

	if username == "" {
		return fmt.Errorf("username is required (use --username flag or PORTAL_USERNAME env var)")
	}

	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	state, sess, err := rt.currentSession()
	if err != nil {
		return err
	}
	if views.Resolve(views.Login, sess) != views.Login {
		fmt.Fprintf(rt.out, "Already logged in as %s. Run 'portal logout' first to switch accounts.\n", sess.Email)
		return nil
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		password, err = readPassword("Password: ")
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(rt.out, "Logging in to %s...\n", rt.serverURL)

	resp, err := rt.api.Login(ctx, username, password)
	if err != nil {
		rt.log.Debug().Err(err).Msg("Login request failed")
		return fmt.Errorf("login failed: %s", client.UserMessage(err))
	}

	sess = session.New(resp, rt.now())
	if err := state.Install(sess); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	rt.log.Info().Str("email", sess.Email).Time("expires_at", sess.ExpiresAt).Msg("User logged in")

	fmt.Fprintln(rt.out, "✓ Login successful!")
	if sess.Email != "" {
		fmt.Fprintf(rt.out, "  User: %s (%s)\n", username, sess.Email)
	}
	fmt.Fprintf(rt.out, "  Role: %s\n", roleOf(sess))
	fmt.Fprintf(rt.out, "  Session valid for %s. Run 'portal watch' to keep it alive.\n", sess.TTL)

	return nil
}

// readPassword reads a password from the terminal without echo
func readPassword(prompt string) (string, error) {
	// Check if stdin is a terminal (not piped)
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or PORTAL_PASSWORD env var)")
	}

	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func roleOf(sess *session.AuthSession) string {
	switch {
	case sess.IsAdmin:
		return "Admin"
	case sess.IsParent:
		return "Parent"
	case sess.IsStudent:
		return "Student"
	default:
		return "User"
	}
}

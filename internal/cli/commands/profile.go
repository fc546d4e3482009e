package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/shuportal/portal/internal/cli/client"
)

// NewProfileCmd creates the profile command
func NewProfileCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the logged in user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(cmd.Context(), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")

	return cmd
}

func runProfile(ctx context.Context, output string, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateOutput(output); err != nil {
		return err
	}

	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	state, sess, err := rt.currentSession()
	if err != nil {
		return err
	}
	if sess == nil {
		return errNotLoggedIn
	}

	profile, err := rt.api.Profile(ctx, sess.Token)
	if err != nil {
		if isUnauthorized(err) {
			// The server no longer accepts the token
			if clearErr := state.Clear(); clearErr != nil {
				rt.log.Warn().Err(clearErr).Msg("Failed to clear rejected session")
			}
			return fmt.Errorf("session is no longer valid. Please run 'portal login' again")
		}
		return fmt.Errorf("failed to fetch profile: %s", client.UserMessage(err))
	}

	return writeOutput(rt.out, output, profile, func(w io.Writer) {
		fmt.Fprintf(w, "Name:     %s\n", profile.Name)
		fmt.Fprintf(w, "Username: %s\n", profile.Username)
		fmt.Fprintf(w, "Email:    %s\n", profile.Email)
		fmt.Fprintf(w, "Role:     %s\n", roleOf(sess))
		if profile.Student != nil {
			fmt.Fprintf(w, "SHU ID:   %s\n", profile.Student.ShuID)
			fmt.Fprintf(w, "Born:     %s\n", profile.Student.DOB)
		}
	})
}

func isUnauthorized(err error) bool {
	var apiErr *client.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

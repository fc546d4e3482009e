package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout()
		},
	}
}

func runLogout(opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	state, err := rt.openState()
	if err != nil {
		return err
	}

	sess := state.Current()
	if sess == nil {
		fmt.Fprintln(rt.out, "Not logged in.")
		return nil
	}

	if err := state.Clear(); err != nil {
		return err
	}

	rt.log.Info().Str("email", sess.Email).Msg("User logged out")
	fmt.Fprintln(rt.out, "✓ Logged out")
	return nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shuportal/portal/internal/cli/client"
	"github.com/shuportal/portal/internal/cli/views"
	"github.com/shuportal/portal/internal/validation"
)

const (
	accountStudent = "student"
	accountParent  = "parent"
)

type registerInput struct {
	Name     string
	Username string
	Email    string
	Password string
	ShuID    string
	DOB      string
}

// NewRegisterCmd creates the register command with its student and parent subcommands
func NewRegisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new portal account",
	}

	cmd.AddCommand(newRegisterKindCmd(accountStudent))
	cmd.AddCommand(newRegisterKindCmd(accountParent))

	return cmd
}

func newRegisterKindCmd(kind string) *cobra.Command {
	var in registerInput

	cmd := &cobra.Command{
		Use:   kind,
		Short: fmt.Sprintf("Register a %s account", kind),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(cmd.Context(), kind, in, terminalPrompter)
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Username, "username", "", "Username (at least 3 characters)")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password (will prompt if not provided)")
	if kind == accountStudent {
		cmd.Flags().StringVar(&in.ShuID, "shu-id", "", "9-digit SHU ID")
		cmd.Flags().StringVar(&in.DOB, "dob", "", "Date of birth (YYYY-MM-DD)")
	}

	return cmd
}

func runRegister(ctx context.Context, kind string, in registerInput, ask prompter, opts ...Option) error {
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	target := views.RegisterParent
	if kind == accountStudent {
		target = views.RegisterStudent
	}

	_, sess, err := rt.currentSession()
	if err != nil {
		return err
	}
	if views.Resolve(target, sess) != target {
		return fmt.Errorf("already logged in as %s. Run 'portal logout' before registering a new account", sess.Email)
	}

	if err := fill(ask, &in.Name, "Name", false, validation.Name); err != nil {
		return err
	}
	if err := fill(ask, &in.Username, "Username", false, validation.Username); err != nil {
		return err
	}
	if err := fill(ask, &in.Email, "Email", false, validation.Email); err != nil {
		return err
	}
	if kind == accountStudent {
		if err := fill(ask, &in.ShuID, "SHU ID", false, validation.ShuID); err != nil {
			return err
		}
		validDate := func(s string) error {
			_, err := validation.Date(s)
			return err
		}
		if err := fill(ask, &in.DOB, "Date of birth (YYYY-MM-DD)", false, validDate); err != nil {
			return err
		}
	}
	if in.Password == "" {
		if in.Password, err = askNewPassword(ask, validation.Password); err != nil {
			return err
		}
	}

	parent := client.ParentRegistration{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	}

	var resp *client.RegisterResponse
	if kind == accountStudent {
		resp, err = rt.api.RegisterStudent(ctx, client.StudentRegistration{
			ParentRegistration: parent,
			ShuID:              in.ShuID,
			DOB:                in.DOB,
		})
	} else {
		resp, err = rt.api.RegisterParent(ctx, parent)
	}
	if err != nil {
		rt.log.Debug().Err(err).Str("kind", kind).Msg("Registration failed")
		return fmt.Errorf("registration failed: %s", client.UserMessage(err))
	}

	fmt.Fprintf(rt.out, "✓ %s\n", resp.Result)
	fmt.Fprintf(rt.out, "  Run 'portal login --username %s' to sign in.\n", in.Username)
	return nil
}

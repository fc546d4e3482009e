package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shuportal/portal/internal/cli/views"
)

// statusReport is the machine readable form of `portal status`
type statusReport struct {
	Server    string     `json:"server" yaml:"server"`
	LoggedIn  bool       `json:"loggedIn" yaml:"loggedIn"`
	Email     string     `json:"email,omitempty" yaml:"email,omitempty"`
	Role      string     `json:"role,omitempty" yaml:"role,omitempty"`
	View      string     `json:"view" yaml:"view"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	TimeLeft  string     `json:"timeLeft,omitempty" yaml:"timeLeft,omitempty"`
}

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")

	return cmd
}

func runStatus(output string, opts ...Option) error {
	if err := validateOutput(output); err != nil {
		return err
	}

	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	_, sess, err := rt.currentSession()
	if err != nil {
		return err
	}

	report := statusReport{
		Server: rt.serverURL,
		View:   string(views.Resolve(views.Account, sess)),
	}
	if sess != nil {
		expiresAt := sess.ExpiresAt
		report.LoggedIn = true
		report.Email = sess.Email
		report.Role = roleOf(sess)
		report.ExpiresAt = &expiresAt
		report.TimeLeft = sess.TimeLeft(rt.now()).Truncate(time.Second).String()
	}

	return writeOutput(rt.out, output, report, func(w io.Writer) {
		if !report.LoggedIn {
			fmt.Fprintf(w, "Not logged in to %s\n", report.Server)
			return
		}
		fmt.Fprintf(w, "Logged in to %s\n", report.Server)
		fmt.Fprintf(w, "  User:    %s\n", report.Email)
		fmt.Fprintf(w, "  Role:    %s\n", report.Role)
		fmt.Fprintf(w, "  Expires: %s (in %s)\n", report.ExpiresAt.Local().Format(time.RFC3339), report.TimeLeft)
	})
}

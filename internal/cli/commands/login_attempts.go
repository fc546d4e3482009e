package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shuportal/portal/internal/cli/client"
	"github.com/shuportal/portal/internal/cli/views"
	"github.com/shuportal/portal/internal/validation"
)

// defaultAttemptsWindow is how far back login-attempts looks without --from
const defaultAttemptsWindow = 7 * 24 * time.Hour

// NewLoginAttemptsCmd creates the admin-only login-attempts command
func NewLoginAttemptsCmd() *cobra.Command {
	var from, to, output string

	cmd := &cobra.Command{
		Use:   "login-attempts",
		Short: "List login attempts (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoginAttempts(cmd.Context(), from, to, output)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "First day to include (YYYY-MM-DD, default 7 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "Day to stop at, exclusive (YYYY-MM-DD, default tomorrow)")
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text, json, yaml")

	return cmd
}

func runLoginAttempts(ctx context.Context, from, to, output string, opts ...Option) error {
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

	start, end, err := attemptsRange(rt.now(), from, to)
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
	if views.Resolve(views.Admin, sess) != views.Admin {
		return fmt.Errorf("login attempts are only available to admins")
	}

	attempts, err := rt.api.LoginAttempts(ctx, sess.Token, start, end)
	if err != nil {
		if isUnauthorized(err) {
			if clearErr := state.Clear(); clearErr != nil {
				rt.log.Warn().Err(clearErr).Msg("Failed to clear rejected session")
			}
			return fmt.Errorf("session is no longer valid. Please run 'portal login' again")
		}
		return fmt.Errorf("failed to list login attempts: %s", client.UserMessage(err))
	}

	return writeOutput(rt.out, output, attempts, func(out io.Writer) {
		if len(attempts) == 0 {
			fmt.Fprintln(out, "No login attempts in range")
			return
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tUSERNAME\tRESULT\tFROM\tINFO")
		for _, a := range attempts {
			result := "failed"
			if a.Success {
				result = "ok"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				a.At.Local().Format(time.DateTime),
				a.Username,
				result,
				a.FromWhere,
				a.Info,
			)
		}
		w.Flush()
	})
}

// attemptsRange parses --from and --to, defaulting to the last week
func attemptsRange(now time.Time, from, to string) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	start := today.Add(-defaultAttemptsWindow)
	if from != "" {
		d, err := validation.Date(from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		start = d
	}

	end := today.AddDate(0, 0, 1)
	if to != "" {
		d, err := validation.Date(to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		end = d
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("--from must be before --to")
	}
	return start, end, nil
}

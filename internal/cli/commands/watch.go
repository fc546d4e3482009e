package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shuportal/portal/internal/cli/session"
	"github.com/shuportal/portal/internal/cli/views"
)

// ErrSessionExpired is returned by watch when the guard forced a logout
var ErrSessionExpired = errors.New("session expired")

// NewWatchCmd creates the watch command
func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive while you are active",
		Long: `Runs the session guard in the foreground. The token is renewed shortly
before it expires as long as you keep typing; after a minute without input,
or if renewal fails, the session is ended.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx)
		},
	}
}

func runWatch(ctx context.Context, opts ...Option) error {
	rt, err := newRuntime(opts...)
	if err != nil {
		return err
	}

	st, sess, err := rt.currentSession()
	if err != nil {
		return err
	}
	if views.Resolve(views.Account, sess) == views.Login {
		return errNotLoggedIn
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	expired := make(chan session.ExpiryReason, 1)
	guardOpts := []session.GuardOption{
		session.WithGuardLogger(rt.log),
		session.OnExpired(func(reason session.ExpiryReason) {
			select {
			case expired <- reason:
			default:
			}
			cancel()
		}),
	}
	if rt.guardCfg != nil {
		guardOpts = append(guardOpts, session.WithConfig(*rt.guardCfg))
	}
	guard := session.NewGuard(st, rt.api, guardOpts...)

	go watchActivity(ctx, rt.in, st)

	fmt.Fprintf(rt.out, "Watching session for %s (expires %s).\n", sess.Email, sess.ExpiresAt.Local().Format("15:04:05"))
	fmt.Fprintln(rt.out, "Type anything and press Enter to stay active. Ctrl+C to stop.")

	_ = guard.Run(ctx)

	select {
	case reason := <-expired:
		if reason == session.ReasonSuperseded {
			fmt.Fprintln(rt.out, "Stopped watching: logged out elsewhere.")
			return nil
		}
		fmt.Fprintf(rt.out, "%s: %s\n", views.SessionExpired.Title(), describeExpiry(reason))
		return ErrSessionExpired
	default:
	}

	if current := st.Current(); current != nil {
		fmt.Fprintf(rt.out, "Stopped watching. Session valid until %s.\n", current.ExpiresAt.Local().Format("15:04:05"))
	}
	return nil
}

// watchActivity counts every line of input as user activity until ctx is
// done or the input is exhausted
func watchActivity(ctx context.Context, in io.Reader, st *session.State) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		st.Touch()
	}
}

func describeExpiry(reason session.ExpiryReason) string {
	switch reason {
	case session.ReasonIdle:
		return "logged out after a period of inactivity"
	case session.ReasonExpiring:
		return "the session could not be renewed in time"
	case session.ReasonRenewFailed:
		return "the auth service refused to renew the session"
	default:
		return "the session could not be kept"
	}
}

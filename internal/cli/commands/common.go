package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuportal/portal/internal/cli/auth"
	"github.com/shuportal/portal/internal/cli/client"
	"github.com/shuportal/portal/internal/cli/session"
	"github.com/shuportal/portal/internal/cli/userconfig"
	"github.com/shuportal/portal/internal/logger"
)

// Globals holds the values of the root command's persistent flags
var Globals struct {
	Server  string
	Store   string
	Verbose bool
}

// APIClient is the subset of the auth API the commands use
type APIClient interface {
	Login(ctx context.Context, username, password string) (*client.TokenResponse, error)
	Renew(ctx context.Context, token string) (*client.TokenResponse, error)
	RegisterStudent(ctx context.Context, reg client.StudentRegistration) (*client.RegisterResponse, error)
	RegisterParent(ctx context.Context, reg client.ParentRegistration) (*client.RegisterResponse, error)
	ForgetPassword(ctx context.Context, usernameOrEmail string) error
	ResetPassword(ctx context.Context, token, password string) error
	Profile(ctx context.Context, token string) (*client.Profile, error)
	LoginAttempts(ctx context.Context, token string, start, end time.Time) ([]client.LoginAttempt, error)
}

// runtime carries a command's dependencies. Anything not injected through
// an Option is built from the effective user config.
type runtime struct {
	serverURL string
	api       APIClient
	store     auth.Store
	in        io.Reader
	out       io.Writer
	log       zerolog.Logger
	now       func() time.Time
	guardCfg  *session.GuardConfig
	hasLog    bool
}

// Option injects a dependency, mostly for tests
type Option func(*runtime)

// WithAPIClient replaces the HTTP API client
func WithAPIClient(api APIClient) Option {
	return func(r *runtime) { r.api = api }
}

// WithStore replaces the session store
func WithStore(store auth.Store) Option {
	return func(r *runtime) { r.store = store }
}

// WithServerURL sets the auth server URL
func WithServerURL(serverURL string) Option {
	return func(r *runtime) { r.serverURL = serverURL }
}

// WithInput sets where prompts and activity are read from
func WithInput(in io.Reader) Option {
	return func(r *runtime) { r.in = in }
}

// WithOutput sets where command output is written
func WithOutput(out io.Writer) Option {
	return func(r *runtime) { r.out = out }
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(r *runtime) {
		r.log = log
		r.hasLog = true
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(r *runtime) { r.now = now }
}

// WithGuardConfig overrides the session guard thresholds
func WithGuardConfig(cfg session.GuardConfig) Option {
	return func(r *runtime) { r.guardCfg = &cfg }
}

func newRuntime(opts ...Option) (*runtime, error) {
	r := &runtime{
		in:  os.Stdin,
		out: os.Stdout,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if !r.hasLog {
		level := "warn"
		if Globals.Verbose {
			level = "debug"
		}
		r.log = logger.New(os.Stderr, level, "console")
	}

	if r.api != nil && r.store != nil {
		return r, nil
	}

	cfg, err := userconfig.Effective()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if Globals.Server != "" {
		cfg.ServerURL = Globals.Server
	}
	if Globals.Store != "" {
		cfg.Store = Globals.Store
	}
	if r.serverURL == "" {
		r.serverURL = cfg.ServerURL
	}

	if r.api == nil {
		if err := userconfig.ValidateServerURL(r.serverURL); err != nil {
			return nil, err
		}
		r.api = client.New(r.serverURL)
	}

	if r.store == nil {
		store, err := auth.Open(cfg.Store, r.serverURL)
		if err != nil {
			return nil, err
		}
		r.store = store
	}

	return r, nil
}

// openState restores the persisted session
func (r *runtime) openState() (*session.State, error) {
	state := session.NewState(r.store,
		session.WithClock(r.now),
		session.WithLogger(r.log),
	)
	if err := state.Init(); err != nil {
		return nil, err
	}
	return state, nil
}

// currentSession restores the persisted session and returns it, or nil when
// logged out or when the stored token has already lapsed
func (r *runtime) currentSession() (*session.State, *session.AuthSession, error) {
	state, err := r.openState()
	if err != nil {
		return nil, nil, err
	}

	sess := state.Current()
	if sess != nil && sess.Expired(r.now()) {
		r.log.Debug().Time("expires_at", sess.ExpiresAt).Msg("Stored session already expired")
		if err := state.Clear(); err != nil {
			return nil, nil, err
		}
		return state, nil, nil
	}
	return state, sess, nil
}

var errNotLoggedIn = fmt.Errorf("not logged in. Please run 'portal login' first")

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuportal/portal/internal/cli/client"
)

// Renewer exchanges a still-valid token for a fresh one
type Renewer interface {
	Renew(ctx context.Context, token string) (*client.TokenResponse, error)
}

// Action is the outcome of a single Tick
type Action int

const (
	ActionNone Action = iota
	// ActionRenew means a renewal request was started
	ActionRenew
	// ActionRenewPending means a renewal was due but one is already in flight
	ActionRenewPending
	// ActionLogout means the session was force-cleared
	ActionLogout
)

func (a Action) String() string {
	switch a {
	case ActionRenew:
		return "renew"
	case ActionRenewPending:
		return "renew-pending"
	case ActionLogout:
		return "logout"
	default:
		return "none"
	}
}

// ExpiryReason says why a forced logout happened
type ExpiryReason string

const (
	ReasonIdle         ExpiryReason = "idle"
	ReasonExpiring     ExpiryReason = "expiring"
	ReasonRenewFailed  ExpiryReason = "renew_failed"
	ReasonPersistError ExpiryReason = "persist_failed"
	// ReasonSuperseded means another process logged out or logged in
	ReasonSuperseded ExpiryReason = "logged_out_elsewhere"
)

// GuardConfig holds the guard's timing thresholds
type GuardConfig struct {
	Period      time.Duration // how often Run calls Tick
	RenewWindow time.Duration // renew once less than this is left
	MinTimeLeft time.Duration // below this, log out instead of renewing
	MaxIdle     time.Duration // log out after this long without activity
}

// DefaultGuardConfig returns the standard thresholds
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Period:      1 * time.Second,
		RenewWindow: 10 * time.Second,
		MinTimeLeft: 5 * time.Second,
		MaxIdle:     50 * time.Second,
	}
}

// Guard keeps a State's session fresh or terminates it
type Guard struct {
	state   *State
	renewer Renewer
	cfg     GuardConfig
	log     zerolog.Logger

	onExpired func(ExpiryReason)

	mu      sync.Mutex
	renewal *renewal
	wg      sync.WaitGroup
}

type renewal struct {
	cancel context.CancelFunc
}

// GuardOption configures a Guard
type GuardOption func(*Guard)

// WithConfig overrides the default thresholds
func WithConfig(cfg GuardConfig) GuardOption {
	return func(g *Guard) {
		g.cfg = cfg
	}
}

// WithGuardLogger sets the logger for renewal and expiry events
func WithGuardLogger(log zerolog.Logger) GuardOption {
	return func(g *Guard) {
		g.log = log
	}
}

// OnExpired registers the callback run after every forced logout, typically
// to show the "session expired" view. It is not called for explicit logouts.
func OnExpired(fn func(ExpiryReason)) GuardOption {
	return func(g *Guard) {
		g.onExpired = fn
	}
}

// NewGuard creates a guard for state that renews through renewer
func NewGuard(state *State, renewer Renewer, opts ...GuardOption) *Guard {
	g := &Guard{
		state:   state,
		renewer: renewer,
		cfg:     DefaultGuardConfig(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Run calls Tick every period until ctx is done, then cancels any in-flight
// renewal and waits for it to return
func (g *Guard) Run(ctx context.Context) error {
	ticker := time.NewTicker(g.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.cancelRenewal()
			g.Wait()
			return ctx.Err()
		case <-ticker.C:
			g.Tick(ctx)
		}
	}
}

// Tick runs one check. It never blocks on the network: renewals run on
// their own goroutine and finish after Tick returns.
func (g *Guard) Tick(ctx context.Context) Action {
	sess, lastActivity, generation := g.state.snapshot()
	if sess == nil {
		return ActionNone
	}

	dropped, err := g.state.dropIfSuperseded(generation)
	if err != nil {
		g.log.Warn().Err(err).Msg("Failed to read stored session")
	}
	if dropped {
		g.log.Info().Msg("Session ended elsewhere, stopping")
		g.cancelRenewal()
		g.notify(ReasonSuperseded)
		return ActionLogout
	}

	now := g.state.Now()
	timeLeft := sess.TimeLeft(now)
	if timeLeft >= g.cfg.RenewWindow {
		return ActionNone
	}

	if idle := now.Sub(lastActivity); idle > g.cfg.MaxIdle {
		g.log.Info().Dur("idle", idle).Msg("Session idle too long, logging out")
		g.expire(generation, ReasonIdle)
		return ActionLogout
	}

	if timeLeft < g.cfg.MinTimeLeft {
		g.log.Info().Dur("time_left", timeLeft).Msg("Session about to expire, logging out")
		g.expire(generation, ReasonExpiring)
		return ActionLogout
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.renewal != nil {
		return ActionRenewPending
	}

	renewCtx, cancel := context.WithCancel(ctx)
	r := &renewal{cancel: cancel}
	g.renewal = r
	g.wg.Add(1)
	go g.renew(renewCtx, r, sess.Token, generation)

	g.log.Debug().Dur("time_left", timeLeft).Msg("Renewing session")
	return ActionRenew
}

func (g *Guard) renew(ctx context.Context, r *renewal, token string, generation uint64) {
	defer g.wg.Done()
	defer g.finishRenewal(r)

	resp, err := g.renewer.Renew(ctx, token)

	// Cancelled by a logout or by shutdown. Either way the result is moot.
	if ctx.Err() != nil {
		g.log.Debug().Msg("Renewal cancelled, dropping result")
		return
	}

	if err != nil {
		g.log.Warn().Err(err).Msg("Session renewal failed, logging out")
		g.expire(generation, ReasonRenewFailed)
		return
	}

	next := New(resp, g.state.Now())
	applied, err := g.state.replaceIf(generation, next)
	if errors.Is(err, ErrSuperseded) {
		g.log.Info().Msg("Session ended elsewhere, dropping renewal")
		g.notify(ReasonSuperseded)
		return
	}
	if err != nil {
		g.log.Error().Err(err).Msg("Failed to persist renewed session, logging out")
		g.expire(generation, ReasonPersistError)
		return
	}
	if !applied {
		g.log.Debug().Msg("Session changed during renewal, dropping result")
		return
	}

	g.log.Debug().Time("expires_at", next.ExpiresAt).Msg("Session renewed")
}

func (g *Guard) finishRenewal(r *renewal) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r.cancel()
	if g.renewal == r {
		g.renewal = nil
	}
}

func (g *Guard) cancelRenewal() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.renewal != nil {
		g.renewal.cancel()
	}
}

// expire force-clears the session it was called about. A session installed
// in the meantime is left alone.
func (g *Guard) expire(generation uint64, reason ExpiryReason) {
	g.cancelRenewal()

	cleared, err := g.state.clearIf(generation)
	if err != nil {
		g.log.Error().Err(err).Msg("Failed to clear stored session")
	}
	if !cleared {
		return
	}
	g.notify(reason)
}

func (g *Guard) notify(reason ExpiryReason) {
	if g.onExpired != nil {
		g.onExpired(reason)
	}
}

// Logout ends the session on request, cancelling any in-flight renewal
func (g *Guard) Logout() error {
	g.cancelRenewal()
	return g.state.Clear()
}

// Wait blocks until every started renewal has finished
func (g *Guard) Wait() {
	g.wg.Wait()
}

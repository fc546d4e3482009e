package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuportal/portal/internal/cli/auth"
)

// ErrSuperseded means the stored session no longer matches the one held in
// memory: another process logged out or logged in meanwhile
var ErrSuperseded = errors.New("session was ended elsewhere")

// State owns the current AuthSession, the time of the last user activity and
// the persisted copy of the session. All methods are safe for concurrent use.
type State struct {
	mu           sync.Mutex
	store        auth.Store
	now          func() time.Time
	log          zerolog.Logger
	current      *AuthSession
	lastActivity time.Time
	// generation changes every time the session is installed, replaced or
	// cleared. Renewal results carry the generation they started from.
	generation uint64
}

// StateOption configures a State
type StateOption func(*State)

// WithClock overrides the time source
func WithClock(now func() time.Time) StateOption {
	return func(s *State) {
		s.now = now
	}
}

// WithLogger sets the logger used for session lifecycle events
func WithLogger(log zerolog.Logger) StateOption {
	return func(s *State) {
		s.log = log
	}
}

// NewState creates an empty State persisting to store
func NewState(store auth.Store, opts ...StateOption) *State {
	s := &State{
		store: store,
		now:   time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init restores the persisted session, if any. A record that cannot be
// decoded is deleted and the state starts logged out.
func (s *State) Init() error {
	data, err := s.store.Get(StorageKey)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	var restored AuthSession
	if err := json.Unmarshal(data, &restored); err != nil {
		s.log.Warn().Err(err).Msg("Discarding unreadable stored session")
		if err := s.store.Delete(StorageKey); err != nil {
			return fmt.Errorf("failed to discard stored session: %w", err)
		}
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = &restored
	// Startup counts as activity
	s.lastActivity = s.now()
	s.generation++

	s.log.Debug().
		Str("email", restored.Email).
		Time("expires_at", restored.ExpiresAt).
		Msg("Restored session")
	return nil
}

// Teardown drops the in-memory session without touching the persisted copy
func (s *State) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
}

// Now returns the current time from the state's clock
func (s *State) Now() time.Time {
	return s.now()
}

// Current returns a copy of the session, or nil when logged out
func (s *State) Current() *AuthSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// LastActivity returns the time of the most recent recorded user input
func (s *State) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Touch records user activity. Ignored while logged out.
func (s *State) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	s.lastActivity = s.now()
}

// Install makes sess the current session (after a login) and persists it
func (s *State) Install(sess *AuthSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Set(StorageKey, data); err != nil {
		return err
	}

	s.current = sess.clone()
	s.lastActivity = s.now()
	s.generation++
	return nil
}

// Clear logs out: the session is dropped and the persisted copy deleted
func (s *State) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *State) clearLocked() error {
	s.dropLocked()

	if err := s.store.Delete(StorageKey); err != nil {
		return fmt.Errorf("failed to delete stored session: %w", err)
	}
	return nil
}

// snapshot returns a copy of the session with the activity time and
// generation observed under the same lock
func (s *State) snapshot() (*AuthSession, time.Time, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone(), s.lastActivity, s.generation
}

// replaceIf swaps in a renewed session when generation is still current.
// It reports false, without error, when the session moved on meanwhile, and
// ErrSuperseded when the stored copy was removed or replaced by another
// process. In that case only the in-memory session is dropped.
func (s *State) replaceIf(generation uint64, sess *AuthSession) (bool, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.generation != generation {
		return false, nil
	}

	if err := s.checkStoredLocked(); err != nil {
		if errors.Is(err, ErrSuperseded) {
			s.dropLocked()
		}
		return false, err
	}

	if err := s.store.Set(StorageKey, data); err != nil {
		return false, err
	}

	s.current = sess.clone()
	s.generation++
	return true, nil
}

// clearIf clears the session only when generation is still current. The
// stored copy is kept when it already belongs to another login.
func (s *State) clearIf(generation uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.generation != generation {
		return false, nil
	}

	if err := s.checkStoredLocked(); errors.Is(err, ErrSuperseded) {
		s.dropLocked()
		return true, nil
	}
	return true, s.clearLocked()
}

// dropIfSuperseded drops the in-memory session when the stored copy was
// removed or now holds another token. The stored copy is left as it is.
func (s *State) dropIfSuperseded(generation uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || s.generation != generation {
		return false, nil
	}

	err := s.checkStoredLocked()
	if errors.Is(err, ErrSuperseded) {
		s.dropLocked()
		return true, nil
	}
	return false, err
}

// checkStoredLocked compares the persisted session with the current one
func (s *State) checkStoredLocked() error {
	data, err := s.store.Get(StorageKey)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return ErrSuperseded
		}
		return fmt.Errorf("failed to load session: %w", err)
	}

	var stored AuthSession
	if err := json.Unmarshal(data, &stored); err != nil || stored.Token != s.current.Token {
		return ErrSuperseded
	}
	return nil
}

func (s *State) dropLocked() {
	s.current = nil
	s.lastActivity = time.Time{}
	s.generation++
}

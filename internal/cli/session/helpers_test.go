package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shuportal/portal/internal/cli/auth"
	"github.com/shuportal/portal/internal/cli/client"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// mockStore is a simple in-memory store for testing
type mockStore struct {
	mu     sync.Mutex
	values map[string][]byte
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{values: make(map[string][]byte)}
}

func (m *mockStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *mockStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *mockStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *mockStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[key]
	return ok
}

// mockRenewer records calls and answers with resp/err. When block is set,
// Renew waits for release (or ctx) before answering, and ignores ctx when
// ignoreCancel is set, to simulate a response that arrives anyway.
type mockRenewer struct {
	mu     sync.Mutex
	calls  int
	tokens []string

	resp         *client.TokenResponse
	err          error
	block        bool
	ignoreCancel bool
	started      chan struct{}
	release      chan struct{}
}

func newMockRenewer(resp *client.TokenResponse, err error) *mockRenewer {
	return &mockRenewer{
		resp:    resp,
		err:     err,
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (m *mockRenewer) Renew(ctx context.Context, token string) (*client.TokenResponse, error) {
	m.mu.Lock()
	m.calls++
	m.tokens = append(m.tokens, token)
	block, ignoreCancel := m.block, m.ignoreCancel
	m.mu.Unlock()

	m.started <- struct{}{}

	if block {
		if ignoreCancel {
			<-m.release
		} else {
			select {
			case <-m.release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if m.err != nil {
		return nil, m.err
	}
	return m.resp, nil
}

func (m *mockRenewer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var errNetwork = errors.New("dial tcp 127.0.0.1:5000: connect: connection refused")

// newTestState returns a logged-in state whose token expires timeLeft after
// now and whose last activity was idle ago
func newTestState(clock *fakeClock, store *mockStore, timeLeft, idle time.Duration) *State {
	state := NewState(store, WithClock(clock.Now))

	// Log in "idle" ago, then move the clock to now
	clock.Advance(-idle)
	sess := &AuthSession{
		Token:     "token-0",
		Email:     "alice@example.com",
		TTL:       300 * time.Second,
		ExpiresAt: clock.Now().Add(idle + timeLeft),
	}
	if err := state.Install(sess); err != nil {
		panic(err)
	}
	clock.Advance(idle)
	return state
}

package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/shuportal/portal/internal/cli/auth"
	"github.com/shuportal/portal/internal/cli/client"
	"github.com/shuportal/portal/internal/cli/session"
)

// mockAPIClient is an in-memory stand-in for the auth API
type mockAPIClient struct {
	mu sync.Mutex

	username string
	password string
	login    client.TokenResponse

	renewed     client.TokenResponse
	renewErr    error
	renewCalls  int
	profile     *client.Profile
	profileErr  error
	attempts    []client.LoginAttempt
	attemptsErr error
	gotStart    time.Time
	gotEnd      time.Time

	registered []string
	resetToken string
	resetPass  string
	forgotFor  string
}

func unauthorized() error {
	return &client.APIError{StatusCode: http.StatusUnauthorized, Status: "Unauthorized"}
}

func (m *mockAPIClient) Login(ctx context.Context, username, password string) (*client.TokenResponse, error) {
	if username != m.username || password != m.password {
		return nil, unauthorized()
	}
	resp := m.login
	return &resp, nil
}

func (m *mockAPIClient) Renew(ctx context.Context, token string) (*client.TokenResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renewCalls++
	if m.renewErr != nil {
		return nil, m.renewErr
	}
	resp := m.renewed
	return &resp, nil
}

func (m *mockAPIClient) renewCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renewCalls
}

func (m *mockAPIClient) RegisterStudent(ctx context.Context, reg client.StudentRegistration) (*client.RegisterResponse, error) {
	m.registered = append(m.registered, "student:"+reg.Username+":"+reg.ShuID+":"+reg.DOB)
	return &client.RegisterResponse{Result: fmt.Sprintf("Student %s registered", reg.Username)}, nil
}

func (m *mockAPIClient) RegisterParent(ctx context.Context, reg client.ParentRegistration) (*client.RegisterResponse, error) {
	if reg.Username == "taken" {
		return nil, &client.APIError{
			StatusCode: http.StatusBadRequest,
			Status:     "Bad Request",
			Fields:     map[string]string{"username": "Username already exists"},
		}
	}
	m.registered = append(m.registered, "parent:"+reg.Username+":"+reg.Password)
	return &client.RegisterResponse{Result: fmt.Sprintf("Parent %s registered", reg.Username)}, nil
}

func (m *mockAPIClient) ForgetPassword(ctx context.Context, usernameOrEmail string) error {
	m.forgotFor = usernameOrEmail
	return nil
}

func (m *mockAPIClient) ResetPassword(ctx context.Context, token, password string) error {
	m.resetToken = token
	m.resetPass = password
	return nil
}

func (m *mockAPIClient) Profile(ctx context.Context, token string) (*client.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	return m.profile, nil
}

func (m *mockAPIClient) LoginAttempts(ctx context.Context, token string, start, end time.Time) ([]client.LoginAttempt, error) {
	m.gotStart, m.gotEnd = start, end
	if m.attemptsErr != nil {
		return nil, m.attemptsErr
	}
	return m.attempts, nil
}

// testEnv bundles the injected dependencies of a command under test
type testEnv struct {
	api   *mockAPIClient
	store auth.Store
	out   *bytes.Buffer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		api: &mockAPIClient{
			username: "alice",
			password: "Secret1!",
			login: client.TokenResponse{
				Email:     "alice@example.com",
				Token:     "token-1",
				Expires:   300,
				IsStudent: true,
			},
			renewed: client.TokenResponse{
				Email:     "alice@example.com",
				Token:     "token-2",
				Expires:   300,
				IsStudent: true,
			},
		},
		store: auth.NewFileStoreAt(t.TempDir()),
		out:   &bytes.Buffer{},
	}
}

func (e *testEnv) opts(extra ...Option) []Option {
	return append([]Option{
		WithAPIClient(e.api),
		WithStore(e.store),
		WithServerURL("http://portal.test"),
		WithOutput(e.out),
		WithLogger(zerolog.Nop()),
	}, extra...)
}

// loginAs stores a session as if `portal login` had run
func (e *testEnv) loginAs(t *testing.T, resp client.TokenResponse) *session.AuthSession {
	t.Helper()
	sess := session.New(&resp, time.Now())
	if err := session.NewState(e.store).Install(sess); err != nil {
		t.Fatalf("failed to install session: %v", err)
	}
	return sess
}

func (e *testEnv) storedSession(t *testing.T) *session.AuthSession {
	t.Helper()
	st := session.NewState(e.store)
	if err := st.Init(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}
	return st.Current()
}

// scriptedPrompter answers prompts in order and fails on extra prompts
func scriptedPrompter(t *testing.T, answers ...string) prompter {
	t.Helper()
	i := 0
	return func(label string, secret bool, validate func(string) error) (string, error) {
		if i >= len(answers) {
			t.Fatalf("unexpected prompt %q", label)
		}
		answer := answers[i]
		i++
		if validate != nil {
			if err := validate(answer); err != nil {
				return "", fmt.Errorf("%s: %w", label, err)
			}
		}
		return answer, nil
	}
}

func noPrompts(t *testing.T) prompter {
	return scriptedPrompter(t)
}

package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/shuportal/portal/internal/cli/client"
)

func clearCredentialEnv(t *testing.T) {
	t.Setenv("PORTAL_USERNAME", "")
	t.Setenv("PORTAL_PASSWORD", "")
}

func TestLogin_Success(t *testing.T) {
	clearCredentialEnv(t)
	env := newTestEnv(t)

	err := runLogin(context.Background(), "alice", "Secret1!", env.opts()...)
	if err != nil {
		t.Fatalf("expected successful login, got error: %v", err)
	}

	sess := env.storedSession(t)
	if sess == nil {
		t.Fatal("expected session to be saved, but it wasn't")
	}
	if sess.Token != "token-1" {
		t.Errorf("expected token 'token-1', got '%s'", sess.Token)
	}
	if !sess.IsStudent || sess.IsAdmin {
		t.Errorf("unexpected role flags: %+v", sess)
	}

	out := env.out.String()
	if !strings.Contains(out, "Login successful") {
		t.Errorf("expected success message, got %q", out)
	}
	if !strings.Contains(out, "Role: Student") {
		t.Errorf("expected role in output, got %q", out)
	}
}

func TestLogin_FromEnvironment(t *testing.T) {
	t.Setenv("PORTAL_USERNAME", "alice")
	t.Setenv("PORTAL_PASSWORD", "Secret1!")
	env := newTestEnv(t)

	if err := runLogin(context.Background(), "", "", env.opts()...); err != nil {
		t.Fatalf("expected successful login, got error: %v", err)
	}
	if env.storedSession(t) == nil {
		t.Fatal("expected session to be saved")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	clearCredentialEnv(t)
	env := newTestEnv(t)

	err := runLogin(context.Background(), "alice", "wrong", env.opts()...)
	if err == nil {
		t.Fatal("expected login to fail with wrong credentials, but it succeeded")
	}

	expected := "login failed: Wrong username or password"
	if err.Error() != expected {
		t.Errorf("expected error '%s', got '%s'", expected, err.Error())
	}
	if env.storedSession(t) != nil {
		t.Error("expected no session to be saved after failed login")
	}
}

func TestLogin_MissingUsername(t *testing.T) {
	clearCredentialEnv(t)
	env := newTestEnv(t)

	err := runLogin(context.Background(), "", "Secret1!", env.opts()...)
	if err == nil || !strings.Contains(err.Error(), "username is required") {
		t.Fatalf("expected missing username error, got %v", err)
	}
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	clearCredentialEnv(t)
	env := newTestEnv(t)
	env.loginAs(t, client.TokenResponse{Email: "bob@example.com", Token: "bob-token", Expires: 300})

	if err := runLogin(context.Background(), "alice", "Secret1!", env.opts()...); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got := env.storedSession(t).Token; got != "bob-token" {
		t.Errorf("expected existing session to be kept, got token %q", got)
	}
	if !strings.Contains(env.out.String(), "Already logged in as bob@example.com") {
		t.Errorf("unexpected output %q", env.out.String())
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, env.api.login)

	if err := runLogout(env.opts()...); err != nil {
		t.Fatalf("expected successful logout, got error: %v", err)
	}
	if env.storedSession(t) != nil {
		t.Error("expected session to be removed")
	}
	if !strings.Contains(env.out.String(), "Logged out") {
		t.Errorf("unexpected output %q", env.out.String())
	}

	env.out.Reset()
	if err := runLogout(env.opts()...); err != nil {
		t.Fatalf("expected second logout to succeed, got %v", err)
	}
	if !strings.Contains(env.out.String(), "Not logged in") {
		t.Errorf("unexpected output %q", env.out.String())
	}
}

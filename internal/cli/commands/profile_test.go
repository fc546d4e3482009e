package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shuportal/portal/internal/cli/client"
)

func TestProfile_Text(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, env.api.login)
	env.api.profile = &client.Profile{
		Name:     "Alice Example",
		Username: "alice",
		Email:    "alice@example.com",
		Student:  &client.StudentProfile{DOB: "2008-05-01", ShuID: "123456789"},
	}

	if err := runProfile(context.Background(), outputText, env.opts()...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := env.out.String()
	for _, want := range []string{"Alice Example", "alice@example.com", "123456789", "Student"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
}

func TestProfile_NotLoggedIn(t *testing.T) {
	env := newTestEnv(t)

	if err := runProfile(context.Background(), outputText, env.opts()...); err != errNotLoggedIn {
		t.Fatalf("expected not logged in error, got %v", err)
	}
}

func TestProfile_RejectedTokenClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, env.api.login)
	env.api.profileErr = unauthorized()

	err := runProfile(context.Background(), outputText, env.opts()...)
	if err == nil || !strings.Contains(err.Error(), "no longer valid") {
		t.Fatalf("expected invalid session error, got %v", err)
	}
	if env.storedSession(t) != nil {
		t.Error("expected rejected session to be cleared")
	}
}

func TestLoginAttempts_AdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, env.api.login)

	err := runLoginAttempts(context.Background(), "", "", outputText, env.opts()...)
	if err == nil || !strings.Contains(err.Error(), "only available to admins") {
		t.Fatalf("expected admin-only error, got %v", err)
	}
}

func TestLoginAttempts_Table(t *testing.T) {
	env := newTestEnv(t)
	env.loginAs(t, client.TokenResponse{Email: "root@example.com", Token: "admin", Expires: 300, IsAdmin: true})
	env.api.attempts = []client.LoginAttempt{
		{At: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), Success: false, FromWhere: "10.0.0.1", Username: "alice", Info: "Wrong password"},
		{At: time.Date(2024, 3, 1, 9, 1, 0, 0, time.UTC), Success: true, FromWhere: "10.0.0.1", Username: "alice"},
	}

	if err := runLoginAttempts(context.Background(), "2024-03-01", "2024-03-02", outputText, env.opts()...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := env.out.String()
	if !strings.Contains(out, "USERNAME") || !strings.Contains(out, "Wrong password") {
		t.Errorf("unexpected table %q", out)
	}
	if got := env.api.gotStart.Format(time.DateOnly); got != "2024-03-01" {
		t.Errorf("expected start 2024-03-01, got %s", got)
	}
	if got := env.api.gotEnd.Format(time.DateOnly); got != "2024-03-02" {
		t.Errorf("expected end 2024-03-02, got %s", got)
	}
}

func TestAttemptsRange(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

	start, end, err := attemptsRange(now, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Format(time.DateOnly) != "2024-03-03" || end.Format(time.DateOnly) != "2024-03-11" {
		t.Errorf("unexpected default range %s..%s", start, end)
	}

	if _, _, err := attemptsRange(now, "2024-03-05", "2024-03-05"); err == nil {
		t.Error("expected empty range to be rejected")
	}
	if _, _, err := attemptsRange(now, "03/05/2024", ""); err == nil {
		t.Error("expected bad date to be rejected")
	}
}

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLogin_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/" {
			t.Errorf("expected path /api/v1/auth/, got %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		username, password, ok := r.BasicAuth()
		if !ok || username != "alice" || password != "Secret1!" {
			t.Errorf("unexpected basic auth: %q %q %v", username, password, ok)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			Email:     "alice@example.com",
			Token:     "tok-1",
			Expires:   300,
			IsStudent: true,
		})
	}))
	defer server.Close()

	c := New(server.URL)
	resp, err := c.Login(context.Background(), "alice", "Secret1!")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token != "tok-1" {
		t.Errorf("expected token tok-1, got %s", resp.Token)
	}
	if resp.Expires != 300 {
		t.Errorf("expected expires 300, got %d", resp.Expires)
	}
	if !resp.IsStudent || resp.IsAdmin {
		t.Errorf("unexpected role flags: %+v", resp)
	}
}

func TestRenew_SendsTokenAsUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, _ := r.BasicAuth()
		if username != "old-token" || password != RenewPassword {
			t.Errorf("expected token credentials, got %q %q", username, password)
		}
		json.NewEncoder(w).Encode(TokenResponse{Token: "new-token", Expires: 3600})
	}))
	defer server.Close()

	resp, err := New(server.URL + "/").Renew(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Token != "new-token" {
		t.Errorf("expected new-token, got %s", resp.Token)
	}
}

func TestLogin_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>oops</html>`},
		{"missing token", `{"expires": 300}`},
		{"missing expiry", `{"token": "abc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := New(server.URL).Login(context.Background(), "alice", "pw")
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestLogin_ConnectionError(t *testing.T) {
	c := New("http://localhost:99999")
	_, err := c.Login(context.Background(), "alice", "pw")
	if err == nil {
		t.Fatal("expected connection error, got nil")
	}
	if msg := UserMessage(err); msg != "Auth service inaccessible" {
		t.Errorf("unexpected user message: %s", msg)
	}
}

func TestLogin_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(server.URL).Login(ctx, "alice", "pw")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRegisterStudent_ValidationErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/register-student" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if body["shu_id"] != "123456789" || body["dob"] != "2001-01-01" {
			t.Errorf("unexpected payload: %v", body)
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message": {"username": "bob: username is already registered", "email": "bob@x: is not a valid email"}}`)
	}))
	defer server.Close()

	reg := StudentRegistration{
		ParentRegistration: ParentRegistration{Name: "Bob", Username: "bob", Email: "bob@x", Password: "Secret1!"},
		ShuID:              "123456789",
		DOB:                "2001-01-01",
	}
	_, err := New(server.URL).RegisterStudent(context.Background(), reg)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(apiErr.Fields) != 2 {
		t.Errorf("expected 2 field errors, got %v", apiErr.Fields)
	}
	if msg := UserMessage(err); msg != "bob@x: is not a valid email" {
		t.Errorf("unexpected user message: %s", msg)
	}
}

func TestRegisterParent_Created(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/register-parent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"result": "Parent registered"}`)
	}))
	defer server.Close()

	resp, err := New(server.URL).RegisterParent(context.Background(), ParentRegistration{Name: "Pat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != "Parent registered" {
		t.Errorf("unexpected result: %s", resp.Result)
	}
}

func TestForgetPassword_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Username or email not found"}`)
	}))
	defer server.Close()

	err := New(server.URL).ForgetPassword(context.Background(), "nobody")
	if msg := UserMessage(err); msg != "Username or email not found" {
		t.Errorf("unexpected user message: %s", msg)
	}
}

func TestProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/auth/profile" || r.Method != http.MethodGet {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if username, _, _ := r.BasicAuth(); username != "tok" {
			t.Errorf("expected token as username, got %s", username)
		}
		fmt.Fprint(w, `{"name":"Alice","username":"alice","email":"a@example.com","isAdmin":false,"isParent":false,"student":{"dob":"2001-01-01","shuId":"123456789"}}`)
	}))
	defer server.Close()

	profile, err := New(server.URL).Profile(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Student == nil || profile.Student.ShuID != "123456789" {
		t.Errorf("expected student profile, got %+v", profile.Student)
	}
}

func TestLoginAttempts_Query(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("date_start"); got != "2024-03-01" {
			t.Errorf("expected date_start 2024-03-01, got %s", got)
		}
		if got := r.URL.Query().Get("date_end"); got != "" {
			t.Errorf("expected no date_end, got %s", got)
		}
		fmt.Fprint(w, `[{"at":"2024-03-01T10:00:00Z","success":false,"fromWhere":"10.0.0.1","username":"bob","info":"Invalid password"}]`)
	}))
	defer server.Close()

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	attempts, err := New(server.URL).LoginAttempts(context.Background(), "tok", start, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 1 || attempts[0].Info != "Invalid password" {
		t.Errorf("unexpected attempts: %+v", attempts)
	}
}

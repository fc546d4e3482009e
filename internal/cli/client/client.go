package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RenewPassword is the placeholder password sent alongside a token when
// exchanging it for a fresh one
const RenewPassword = "x"

// ErrMalformedResponse is returned when a 2xx response body is not usable
var ErrMalformedResponse = errors.New("malformed response")

// Client represents an HTTP client for the portal auth API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client for the server at serverURL
func New(serverURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/") + "/api/v1/auth/",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// TokenResponse is returned by the auth endpoint on login and renewal
type TokenResponse struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	Expires   int    `json:"expires"` // TTL in seconds
	IsAdmin   bool   `json:"isAdmin"`
	IsStudent bool   `json:"isStudent"`
	IsParent  bool   `json:"isParent"`
}

// Login authenticates with a username and password and returns a token
func (c *Client) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(username, password)

	var tokenResp TokenResponse
	if err := c.do(req, http.StatusOK, &tokenResp); err != nil {
		return nil, err
	}

	if tokenResp.Token == "" || tokenResp.Expires <= 0 {
		return nil, fmt.Errorf("%w: missing token or expiry", ErrMalformedResponse)
	}

	return &tokenResp, nil
}

// Renew exchanges a still-valid token for a fresh one
func (c *Client) Renew(ctx context.Context, token string) (*TokenResponse, error) {
	return c.Login(ctx, token, RenewPassword)
}

// ParentRegistration is the registration payload for a parent account
type ParentRegistration struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// StudentRegistration is the registration payload for a student account
type StudentRegistration struct {
	ParentRegistration
	ShuID string `json:"shu_id"`
	DOB   string `json:"dob"` // YYYY-MM-DD
}

// RegisterResponse is returned on successful registration
type RegisterResponse struct {
	Result string `json:"result"`
}

// RegisterStudent creates a student account
func (c *Client) RegisterStudent(ctx context.Context, reg StudentRegistration) (*RegisterResponse, error) {
	return c.register(ctx, "register-student", reg)
}

// RegisterParent creates a parent account
func (c *Client) RegisterParent(ctx context.Context, reg ParentRegistration) (*RegisterResponse, error) {
	return c.register(ctx, "register-parent", reg)
}

func (c *Client) register(ctx context.Context, path string, payload any) (*RegisterResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}

	var regResp RegisterResponse
	if err := c.do(req, http.StatusCreated, &regResp); err != nil {
		return nil, err
	}
	return &regResp, nil
}

// ForgetPassword asks the server to mail a password reset link
func (c *Client) ForgetPassword(ctx context.Context, usernameOrEmail string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "forget-password", map[string]string{
		"usernameOrEmail": usernameOrEmail,
	})
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

// ResetPassword sets a new password using the token from a reset link
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "reset-password", map[string]string{
		"token":    token,
		"password": password,
	})
	if err != nil {
		return err
	}
	return c.do(req, http.StatusOK, nil)
}

// Profile is the authenticated user's account information
type Profile struct {
	Name      string          `json:"name" yaml:"name"`
	Username  string          `json:"username" yaml:"username"`
	Email     string          `json:"email" yaml:"email"`
	IsAdmin   bool            `json:"isAdmin" yaml:"isAdmin"`
	IsParent  bool            `json:"isParent" yaml:"isParent"`
	Student   *StudentProfile `json:"student,omitempty" yaml:"student,omitempty"`
}

// StudentProfile holds student-only profile fields
type StudentProfile struct {
	DOB   string `json:"dob" yaml:"dob"`
	ShuID string `json:"shuId" yaml:"shuId"`
}

// Profile returns the profile of the token's owner
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "profile", nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(token, RenewPassword)

	var profile Profile
	if err := c.do(req, http.StatusOK, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoginAttempt is one entry of the server's login audit log
type LoginAttempt struct {
	At        time.Time `json:"at" yaml:"at"`
	Success   bool      `json:"success" yaml:"success"`
	FromWhere string    `json:"fromWhere" yaml:"fromWhere"`
	Username  string    `json:"username" yaml:"username"`
	Info      string    `json:"info" yaml:"info"`
}

// LoginAttempts lists login attempts between start (inclusive) and end
// (exclusive) dates. Zero values let the server pick today.
func (c *Client) LoginAttempts(ctx context.Context, token string, start, end time.Time) ([]LoginAttempt, error) {
	query := url.Values{}
	if !start.IsZero() {
		query.Set("date_start", start.Format(time.DateOnly))
	}
	if !end.IsZero() {
		query.Set("date_end", end.Format(time.DateOnly))
	}

	path := "login-attempts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(token, RenewPassword)

	var attempts []LoginAttempt
	if err := c.do(req, http.StatusOK, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// newRequest builds a request against the auth API, JSON-encoding body if set
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	return req, nil
}

// do sends req and decodes the response into out when the status matches
func (c *Client) do(req *http.Request, expectedStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return parseAPIError(resp)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

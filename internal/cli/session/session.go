// Package session keeps the CLI's authentication record alive.
//
// A State owns the optional AuthSession and its persisted copy under the
// "auth" key. A Guard ticks once per second and either renews the token
// shortly before it expires or forces a logout when the user has gone idle,
// the token is about to lapse, or renewal fails.
package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shuportal/portal/internal/cli/client"
)

// StorageKey is the single key the session is persisted under
const StorageKey = "auth"

// AuthSession is the client's cached proof of authentication
type AuthSession struct {
	Token     string
	Email     string
	IsAdmin   bool
	IsStudent bool
	IsParent  bool
	TTL       time.Duration // lifetime granted by the server at issue time
	ExpiresAt time.Time
}

// New builds a session from a login or renewal response received at now
func New(resp *client.TokenResponse, now time.Time) *AuthSession {
	ttl := time.Duration(resp.Expires) * time.Second
	return &AuthSession{
		Token:     resp.Token,
		Email:     resp.Email,
		IsAdmin:   resp.IsAdmin,
		IsStudent: resp.IsStudent,
		IsParent:  resp.IsParent,
		TTL:       ttl,
		// Millisecond precision so a restored copy compares equal
		ExpiresAt: time.UnixMilli(now.Add(ttl).UnixMilli()),
	}
}

// TimeLeft returns how long the token stays valid after now
func (s *AuthSession) TimeLeft(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Expired reports whether the token has lapsed at now
func (s *AuthSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *AuthSession) clone() *AuthSession {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// storedSession is the persisted form. Expiry fields are numeric:
// expires is the TTL in seconds, expiresAt is Unix milliseconds.
type storedSession struct {
	Token     string `json:"token"`
	Email     string `json:"email,omitempty"`
	IsAdmin   bool   `json:"isAdmin"`
	IsStudent bool   `json:"isStudent"`
	IsParent  bool   `json:"isParent"`
	Expires   int64  `json:"expires"`
	ExpiresAt int64  `json:"expiresAt"`
}

// MarshalJSON encodes the session in its persisted form
func (s AuthSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedSession{
		Token:     s.Token,
		Email:     s.Email,
		IsAdmin:   s.IsAdmin,
		IsStudent: s.IsStudent,
		IsParent:  s.IsParent,
		Expires:   int64(s.TTL / time.Second),
		ExpiresAt: s.ExpiresAt.UnixMilli(),
	})
}

// UnmarshalJSON decodes the persisted form, rejecting records without a
// token or expiry
func (s *AuthSession) UnmarshalJSON(data []byte) error {
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	if stored.Token == "" {
		return fmt.Errorf("stored session has no token")
	}
	if stored.ExpiresAt <= 0 {
		return fmt.Errorf("stored session has no expiry")
	}

	*s = AuthSession{
		Token:     stored.Token,
		Email:     stored.Email,
		IsAdmin:   stored.IsAdmin,
		IsStudent: stored.IsStudent,
		IsParent:  stored.IsParent,
		TTL:       time.Duration(stored.Expires) * time.Second,
		ExpiresAt: time.UnixMilli(stored.ExpiresAt),
	}
	return nil
}

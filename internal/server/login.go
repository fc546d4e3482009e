package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shuportal/portal/internal/auth"
	"github.com/shuportal/portal/internal/models"
)

// errAuthFailed covers every credential rejection so callers cannot tell
// an unknown user from a wrong password
var errAuthFailed = errors.New("wrong username or password")

const (
	infoInvalidPassword = "Invalid password"
	infoUnknownUsername = "Unknown username"
)

// authenticate resolves a Basic auth pair to a user. A valid session token
// in the username slot wins; otherwise the pair is a username and password,
// and the attempt is recorded.
func (s *Server) authenticate(ctx context.Context, clientIP, usernameOrToken, password string) (*models.User, string, error) {
	db := s.db.WithContext(ctx)

	if claims, err := auth.ValidateToken(usernameOrToken); err == nil {
		user, err := s.loadUser(db.Where("id = ?", claims.UserID))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, "", errAuthFailed
			}
			return nil, "", err
		}
		return user, auth.MethodToken, nil
	}

	now := s.now().UTC()
	attempt := &models.LoginAttempt{At: now, FromWhere: clientIP, Username: usernameOrToken}

	user, err := s.loadUser(db.Where("username = ?", usernameOrToken))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
		attempt.Info = infoUnknownUsername
		if err := db.Create(attempt).Error; err != nil {
			return nil, "", fmt.Errorf("failed to record login attempt: %w", err)
		}
		return nil, "", errAuthFailed
	}

	if user.Suspended(now) {
		s.logger.Info().Str("username", user.Username).Time("until", *user.SuspendedUntil).Msg("Login refused, account suspended")
		return nil, "", errAuthFailed
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		attempt.Info = infoInvalidPassword
		if err := db.Create(attempt).Error; err != nil {
			return nil, "", fmt.Errorf("failed to record login attempt: %w", err)
		}
		if err := s.suspendIfNeeded(ctx, user, now); err != nil {
			return nil, "", err
		}
		return nil, "", errAuthFailed
	}

	attempt.Success = true
	if err := db.Create(attempt).Error; err != nil {
		return nil, "", fmt.Errorf("failed to record login attempt: %w", err)
	}
	return user, auth.MethodPassword, nil
}

func (s *Server) loadUser(query *gorm.DB) (*models.User, error) {
	var user models.User
	if err := query.Preload("Student").Preload("Parent").First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// suspendIfNeeded blocks the account for the suspend time once it has
// collected too many failed logins inside that same window
func (s *Server) suspendIfNeeded(ctx context.Context, user *models.User, now time.Time) error {
	policy := s.config.Auth

	var failures int64
	err := s.db.WithContext(ctx).Model(&models.LoginAttempt{}).
		Where("username = ? AND success = ? AND at >= ?", user.Username, false, now.Add(-policy.SuspendTime)).
		Count(&failures).Error
	if err != nil {
		return fmt.Errorf("failed to count login failures: %w", err)
	}
	if failures < int64(policy.InvalidLoginAttempts) {
		return nil
	}

	until := now.Add(policy.SuspendTime)
	if err := s.db.WithContext(ctx).Model(user).Update("suspended_until", until).Error; err != nil {
		return fmt.Errorf("failed to suspend user: %w", err)
	}
	user.SuspendedUntil = &until

	s.logger.Warn().
		Str("username", user.Username).
		Int64("failures", failures).
		Time("until", until).
		Msg("Account suspended after repeated login failures")

	loc := policy.Location
	if loc == nil {
		loc = time.UTC
	}
	body := fmt.Sprintf("Account \"%s (%s)\" suspended for %d seconds\n\n"+
		"There were %d invalid login attempts\n\n"+
		"You can login again after %s",
		user.Username, user.Email, int(policy.SuspendTime.Seconds()),
		policy.InvalidLoginAttempts,
		until.In(loc).Format("2006/01/02 15:04:05"))

	// The suspension stands even if the notice cannot be queued
	if err := s.sendMail(user.Email, "Account suspended", body); err != nil {
		s.logger.Error().Err(err).Str("username", user.Username).Msg("Failed to queue suspension notice")
	}
	return nil
}

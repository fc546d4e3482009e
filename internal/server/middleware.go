package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shuportal/portal/internal/auth"
	"github.com/shuportal/portal/internal/models"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	sessionKey      = "session"
	userKey         = "user"
)

func setSession(c *gin.Context, sessionData *auth.SessionData, user *models.User) {
	c.Set(sessionKey, sessionData)
	c.Set(userKey, user)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get(sessionKey)
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	u, ok := user.(*models.User)
	return u, ok
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg(message)
	c.JSON(statusCode, gin.H{"message": message})
	c.Abort()
}

// requestIDMiddleware tags each request with an ID, reusing the caller's if sent
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// basicAuthMiddleware accepts a session token or a username and password
// in the Basic auth header
func (s *Server) basicAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		usernameOrToken, password, ok := c.Request.BasicAuth()
		if !ok {
			respondWithError(c, s.logger, http.StatusUnauthorized, errors.New("no basic auth"), "Unauthorized")
			return
		}

		user, method, err := s.authenticate(c.Request.Context(), c.ClientIP(), usernameOrToken, password)
		if err != nil {
			if errors.Is(err, errAuthFailed) {
				respondWithError(c, s.logger, http.StatusUnauthorized, err, "Unauthorized")
				return
			}
			s.logger.Error().Err(err).Msg("Authentication failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		setSession(c, &auth.SessionData{
			UserID:     user.ID,
			Username:   user.Username,
			Email:      user.Email,
			IsAdmin:    user.IsAdmin,
			AuthMethod: method,
		}, user)

		c.Next()
	}
}

// AdminOnlyMiddleware ensures the authenticated user is an admin
func AdminOnlyMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionData, exists := GetSessionData(c)
		if !exists {
			respondWithError(c, log, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if !sessionData.IsAdmin {
			respondWithError(c, log, http.StatusForbidden, errors.New("not admin"), "Only admin can call this")
			return
		}

		c.Next()
	}
}

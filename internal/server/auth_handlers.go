package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shuportal/portal/internal/auth"
	"github.com/shuportal/portal/internal/models"
	"github.com/shuportal/portal/internal/validation"
)

// TokenResponse is returned by login and renewal
type TokenResponse struct {
	Email     string `json:"email"`
	Token     string `json:"token"`
	Expires   int    `json:"expires"` // seconds
	IsAdmin   bool   `json:"isAdmin"`
	IsStudent bool   `json:"isStudent"`
	IsParent  bool   `json:"isParent"`
}

// ParentRegistrationRequest registers a parent account
type ParentRegistrationRequest struct {
	Name     string `json:"name" validate:"required,fullname"`
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,portal_email"`
	Password string `json:"password" validate:"required,password"`
}

// StudentRegistrationRequest registers a student account
type StudentRegistrationRequest struct {
	ParentRegistrationRequest
	ShuID string `json:"shu_id" validate:"required,shu_id"`
	DOB   string `json:"dob" validate:"required,isodate"`
}

// ForgetPasswordRequest asks for a recovery mail
type ForgetPasswordRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" validate:"required"`
}

// ResetPasswordRequest sets a new password with a recovery token
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,password"`
}

// ProfileResponse describes the caller's account
type ProfileResponse struct {
	Name     string          `json:"name"`
	Username string          `json:"username"`
	Email    string          `json:"email"`
	IsAdmin  bool            `json:"isAdmin"`
	IsParent bool            `json:"isParent"`
	Student  *StudentProfile `json:"student,omitempty"`
}

// StudentProfile holds the student-only profile fields
type StudentProfile struct {
	DOB   string `json:"dob"`
	ShuID string `json:"shuId"`
}

// LoginAttemptResponse is one row of the login attempt log
type LoginAttemptResponse struct {
	At        time.Time `json:"at"`
	Success   bool      `json:"success"`
	FromWhere string    `json:"fromWhere"`
	Username  string    `json:"username"`
	Info      string    `json:"info"`
}

func (s *Server) internalError(c *gin.Context, err error, msg string) {
	s.logger.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg(msg)
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}

// bindJSON decodes and validates the body, answering 400 on failure
func (s *Server) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return false
	}
	return s.validated(c, req)
}

// issueToken logs in with a password or renews with a token; both arrive
// as Basic auth
func (s *Server) issueToken(c *gin.Context) {
	usernameOrToken, password, ok := c.Request.BasicAuth()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	user, method, err := s.authenticate(c.Request.Context(), c.ClientIP(), usernameOrToken, password)
	if err != nil {
		if errors.Is(err, errAuthFailed) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Wrong username or password"})
			return
		}
		s.internalError(c, err, "Failed to authenticate")
		return
	}

	ttl := s.config.Auth.TokenTTL
	token, err := auth.GenerateToken(user.ID, ttl)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("method", method).Msg("Token issued")

	c.JSON(http.StatusOK, TokenResponse{
		Email:     user.Email,
		Token:     token,
		Expires:   int(ttl.Seconds()),
		IsAdmin:   user.IsAdmin,
		IsStudent: user.Student != nil,
		IsParent:  user.Parent != nil,
	})
}

func (r *ParentRegistrationRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
}

// uniqueFields reports which identifying fields are already taken
func (s *Server) uniqueFields(req *ParentRegistrationRequest, shuID string) (map[string]string, error) {
	fields := map[string]string{}

	checks := []struct {
		field, column, value, label string
		model                       any
	}{
		{"username", "username", req.Username, "username", &models.User{}},
		{"email", "email", req.Email, "email", &models.User{}},
		{"shu_id", "shu_id", shuID, "SHU ID", &models.Student{}},
	}
	for _, check := range checks {
		if check.value == "" {
			continue
		}
		var count int64
		if err := s.db.Model(check.model).Where(check.column+" = ?", check.value).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			fields[check.field] = fmt.Sprintf("%s: %s is already registered", check.value, check.label)
		}
	}

	if len(fields) == 0 {
		return nil, nil
	}
	return fields, nil
}

func (s *Server) newUser(req *ParentRegistrationRequest) (*models.User, error) {
	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Username:     req.Username,
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
	}, nil
}

// createUser inserts user. When the insert loses a race with another
// registration, the taken fields are returned instead of the error.
func (s *Server) createUser(user *models.User, req *ParentRegistrationRequest, shuID string) (map[string]string, error) {
	err := s.db.Create(user).Error
	if err == nil {
		return nil, nil
	}

	taken, checkErr := s.uniqueFields(req, shuID)
	if checkErr == nil && taken != nil {
		s.logger.Debug().Err(err).Strs("fields", sortedFields(taken)).Msg("Registration lost a uniqueness race")
		return taken, nil
	}
	return nil, err
}

func (s *Server) registerParent(c *gin.Context) {
	var req ParentRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.trim()
	if !s.validated(c, &req) {
		return
	}
	if !s.available(c, &req, "") {
		return
	}

	user, err := s.newUser(&req)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}
	user.Parent = &models.Parent{}

	taken, err := s.createUser(user, &req, "")
	if err != nil {
		s.internalError(c, err, "Failed to create parent")
		return
	}
	if taken != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": taken})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Parent registered")
	c.JSON(http.StatusCreated, gin.H{"result": "Parent registered"})
}

func (s *Server) registerStudent(c *gin.Context) {
	var req StudentRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	req.trim()
	req.ShuID = strings.TrimSpace(req.ShuID)
	req.DOB = strings.TrimSpace(req.DOB)
	if !s.validated(c, &req) {
		return
	}
	if !s.available(c, &req.ParentRegistrationRequest, req.ShuID) {
		return
	}

	dob, err := validation.Date(req.DOB)
	if err != nil {
		s.internalError(c, err, "Failed to parse date of birth")
		return
	}

	user, err := s.newUser(&req.ParentRegistrationRequest)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}
	user.Student = &models.Student{ShuID: req.ShuID, DOB: dob}

	taken, err := s.createUser(user, &req.ParentRegistrationRequest, req.ShuID)
	if err != nil {
		s.internalError(c, err, "Failed to create student")
		return
	}
	if taken != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": taken})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Student registered")
	c.JSON(http.StatusCreated, gin.H{"result": "Student registered"})
}

func (s *Server) validated(c *gin.Context, req any) bool {
	if fields := s.validateRequest(req); fields != nil {
		s.logger.Debug().Strs("fields", sortedFields(fields)).Msg("Request validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"message": fields})
		return false
	}
	return true
}

func (s *Server) available(c *gin.Context, req *ParentRegistrationRequest, shuID string) bool {
	taken, err := s.uniqueFields(req, shuID)
	if err != nil {
		s.internalError(c, err, "Failed to check uniqueness")
		return false
	}
	if taken != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": taken})
		return false
	}
	return true
}

func (s *Server) forgetPassword(c *gin.Context) {
	var req ForgetPasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}
	key := strings.TrimSpace(req.UsernameOrEmail)

	var user models.User
	err := s.db.Where("email = ?", key).Or("username = ?", key).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Username or email not found"})
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	token, err := auth.GenerateResetToken(user.Email, s.config.Auth.ResetTokenTTL)
	if err != nil {
		s.internalError(c, err, "Failed to generate reset token")
		return
	}

	body := "To reset password follow this link:\n\n" +
		fmt.Sprintf("%s-%s", s.config.Auth.ResetPasswordURL, token)
	if err := s.sendMail(user.Email, "Password reset requested", body); err != nil {
		s.internalError(c, err, "Failed to queue reset mail")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password reset requested")
	c.JSON(http.StatusOK, gin.H{"emailSent": true})
}

func (s *Server) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}

	email, err := auth.ValidateResetToken(req.Token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Rejected reset token")
		c.JSON(http.StatusNotFound, gin.H{"message": "Expired or wrong password recovery link"})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}
	if err := s.db.Model(&user).Update("password_hash", passwordHash).Error; err != nil {
		s.internalError(c, err, "Failed to update password")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password reset")
	c.JSON(http.StatusOK, gin.H{"passwordReset": true})
}

func (s *Server) getProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	resp := ProfileResponse{
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
		IsAdmin:  user.IsAdmin,
		IsParent: user.Parent != nil,
	}
	if user.Student != nil {
		resp.Student = &StudentProfile{
			DOB:   user.Student.DOB.Format(validation.DateLayout),
			ShuID: user.Student.ShuID,
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) listLoginAttempts(c *gin.Context) {
	loc := s.config.Auth.Location
	if loc == nil {
		loc = time.UTC
	}

	now := s.now().In(loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if v := c.Query("date_start"); v != "" {
		d, err := validation.Date(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": gin.H{"date_start": err.Error()}})
			return
		}
		start = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}

	end := start.AddDate(0, 0, 1)
	if v := c.Query("date_end"); v != "" {
		d, err := validation.Date(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": gin.H{"date_end": err.Error()}})
			return
		}
		end = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
	}

	var attempts []models.LoginAttempt
	err := s.db.Where("at >= ? AND at < ?", start.UTC(), end.UTC()).
		Order("at DESC").
		Find(&attempts).Error
	if err != nil {
		s.internalError(c, err, "Failed to list login attempts")
		return
	}

	resp := make([]LoginAttemptResponse, len(attempts))
	for i, a := range attempts {
		resp[i] = LoginAttemptResponse{
			At:        a.At,
			Success:   a.Success,
			FromWhere: a.FromWhere,
			Username:  a.Username,
			Info:      a.Info,
		}
	}

	c.JSON(http.StatusOK, resp)
}

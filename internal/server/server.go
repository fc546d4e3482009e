// Package server implements the portal auth service.
//
// All routes live under /api/v1/auth/. Callers authenticate with HTTP Basic
// auth carrying either a username and password or a session token in the
// username slot, so the same request both logs in and renews.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/shuportal/portal/internal/auth"
	"github.com/shuportal/portal/internal/config"
	"github.com/shuportal/portal/internal/models"
	"github.com/shuportal/portal/internal/tasks"
)

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	db          *gorm.DB
	config      *config.Config
	logger      zerolog.Logger
	validator   *validator.Validate
	asynqClient *asynq.Client
	mailer      tasks.Enqueuer
	now         func() time.Time
	version     string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := OpenDatabase(cfg.Database.URL, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	if err := EnsureAdmin(db, cfg.Admin, zlog); err != nil {
		return nil, err
	}

	// Initialize Asynq client for enqueueing mail
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	s := newServer(db, cfg, zlog, asynqClient)
	s.asynqClient = asynqClient
	s.version = version
	return s, nil
}

func newServer(db *gorm.DB, cfg *config.Config, zlog zerolog.Logger, mailer tasks.Enqueuer) *Server {
	// Initialize JWT authentication
	auth.InitializeJWT(cfg.Auth.JWTSecret)

	s := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: newValidator(),
		mailer:    mailer,
		now:       time.Now,
	}
	s.setupRouter()
	return s
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
// It does nothing if no admin password is configured.
func EnsureAdmin(db *gorm.DB, admin config.AdminConfig, zlog zerolog.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if count > 0 {
		return nil
	}

	if admin.Password == "" {
		zlog.Warn().Msg("No admin account and ADMIN_PASSWORD is not set - skipping admin bootstrap")
		return nil
	}

	passwordHash, err := auth.HashPassword(admin.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	user := &models.User{
		Username:     admin.Username,
		Email:        admin.Email,
		Name:         admin.Name,
		PasswordHash: passwordHash,
		IsAdmin:      true,
	}
	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	zlog.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Admin user created")
	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api/v1/auth")
	{
		// Login and renewal both authenticate in the handler
		api.POST("/", s.issueToken)

		// Public account endpoints
		api.POST("/register-student", s.registerStudent)
		api.POST("/register-parent", s.registerParent)
		api.POST("/forget-password", s.forgetPassword)
		api.POST("/reset-password", s.resetPassword)

		// Authenticated endpoints
		authed := api.Group("")
		authed.Use(s.basicAuthMiddleware())
		{
			authed.GET("/profile", s.getProfile)
			authed.GET("/login-attempts", AdminOnlyMiddleware(s.logger), s.listLoginAttempts)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "portal-auth",
		"version":   s.version,
	})
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	port := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Close Asynq client
	if s.asynqClient != nil {
		if err := s.asynqClient.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing Asynq client")
		}
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

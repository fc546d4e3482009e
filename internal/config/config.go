package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Logging Configuration
	Logging LoggingConfig

	// HTTP server Configuration
	Server ServerConfig

	// Token and login policy
	Auth AuthConfig

	// Account created on first start
	Admin AdminConfig

	// Outgoing mail
	Mail MailConfig

	// Periodic cleanup
	Maintenance MaintenanceConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// AuthConfig holds token and login policy settings
type AuthConfig struct {
	JWTSecret            string
	TokenTTL             time.Duration
	ResetTokenTTL        time.Duration
	SuspendTime          time.Duration // look-back window and suspension length
	InvalidLoginAttempts int
	ResetPasswordURL     string
	Location             *time.Location // day boundaries for login-attempt queries
}

// AdminConfig describes the bootstrap admin account
type AdminConfig struct {
	Username string
	Name     string
	Email    string
	Password string // empty skips the bootstrap
}

// MailConfig holds outgoing mail settings
type MailConfig struct {
	Sender string
}

// MaintenanceConfig holds cleanup job settings
type MaintenanceConfig struct {
	PruneSchedule    string // Cron expression, empty disables pruning
	AttemptRetention time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// Database URL - default to a local SQLite file, allow override for dev
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = "portal.sqlite"
	}

	// Redis address - default to localhost:6379, allow override for dev/docker
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Logging configuration - defaults suitable for production
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	logFormat := os.Getenv("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "json"
	}

	tokenTTL, err := envSeconds("TOKEN_TTL", 300)
	if err != nil {
		return nil, err
	}
	resetTTL, err := envSeconds("RESET_TOKEN_TTL", 900)
	if err != nil {
		return nil, err
	}
	suspendTime, err := envSeconds("SUSPEND_TIME", 60)
	if err != nil {
		return nil, err
	}
	invalidAttempts, err := envInt("INVALID_LOGIN_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}
	retentionDays, err := envInt("LOGIN_ATTEMPT_RETENTION_DAYS", 90)
	if err != nil {
		return nil, err
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	location := time.UTC
	if tz := os.Getenv("TZ_NAME"); tz != "" {
		location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ_NAME %q: %w", tz, err)
		}
	}

	return &Config{
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Redis: RedisConfig{
			Address: redisAddr,
		},
		Logging: LoggingConfig{
			Level:  logLevel,
			Format: logFormat,
		},
		Server: ServerConfig{
			Port:        envOr("PORT", "5000"),
			CORSOrigins: splitList(envOr("CORS_ORIGINS", "http://localhost:5000")),
		},
		Auth: AuthConfig{
			JWTSecret:            jwtSecret,
			TokenTTL:             tokenTTL,
			ResetTokenTTL:        resetTTL,
			SuspendTime:          suspendTime,
			InvalidLoginAttempts: invalidAttempts,
			ResetPasswordURL:     envOr("RESET_PASSWORD_URL", "http://localhost:5000/#reset-password"),
			Location:             location,
		},
		Admin: AdminConfig{
			Username: envOr("ADMIN_USERNAME", "admin"),
			Name:     envOr("ADMIN_NAME", "System Administrator"),
			Email:    envOr("ADMIN_EMAIL", "admin@example.com"),
			Password: os.Getenv("ADMIN_PASSWORD"),
		},
		Mail: MailConfig{
			Sender: envOr("MAIL_SENDER", "noreply@example.com"),
		},
		Maintenance: MaintenanceConfig{
			PruneSchedule:    envOr("PRUNE_SCHEDULE", "0 3 * * *"),
			AttemptRetention: time.Duration(retentionDays) * 24 * time.Hour,
		},
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func envSeconds(key string, fallback int) (time.Duration, error) {
	n, err := envInt(key, fallback)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

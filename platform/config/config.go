// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
// Token issuance is handled by the identity provider, not this service.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRerouteSweepInterval() time.Duration
	GetReminderSweepInterval() time.Duration
	GetSLASweepInterval() time.Duration
}

// EngineConfig provides the rotation engine policy knobs.
type EngineConfig interface {
	GetRotationInactivity() time.Duration
	GetReminderAfter() time.Duration
	GetSLAElapsed() time.Duration
	GetReminderParallelism() int
	GetFallbackRole() string
	GetFallbackEmails() []string
	GetBranchRole() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetBranchRole() string
	GetFallbackRole() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool
	AppBaseURL      string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	RerouteSweepInterval  time.Duration
	ReminderSweepInterval time.Duration
	SLASweepInterval      time.Duration

	RotationInactivity  time.Duration
	ReminderAfter       time.Duration
	SLAElapsed          time.Duration
	ReminderParallelism int
	FallbackRole        string
	FallbackEmails      []string
	BranchRole          string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string                       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                 { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string                 { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                  { return c.AsynqConcurrency }
func (c *Config) GetRerouteSweepInterval() time.Duration    { return c.RerouteSweepInterval }
func (c *Config) GetReminderSweepInterval() time.Duration   { return c.ReminderSweepInterval }
func (c *Config) GetSLASweepInterval() time.Duration        { return c.SLASweepInterval }

// EngineConfig implementation
func (c *Config) GetRotationInactivity() time.Duration { return c.RotationInactivity }
func (c *Config) GetReminderAfter() time.Duration      { return c.ReminderAfter }
func (c *Config) GetSLAElapsed() time.Duration         { return c.SLAElapsed }
func (c *Config) GetReminderParallelism() int          { return c.ReminderParallelism }
func (c *Config) GetFallbackRole() string              { return c.FallbackRole }
func (c *Config) GetFallbackEmails() []string          { return c.FallbackEmails }
func (c *Config) GetBranchRole() string                { return c.BranchRole }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// =============================================================================
// Loading
// =============================================================================

// Load reads configuration from the environment, with an optional .env file
// for local development. Reference policy defaults (20m inactivity, 24h
// reminder, 72h SLA) are applied when the variables are unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),
		CORSAllowAll:    getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:     getListEnv("CORS_ORIGINS"),
		CORSAllowCreds:  getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:3000"),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		RerouteSweepInterval:  getDurationEnv("REROUTE_SWEEP_INTERVAL", time.Hour),
		ReminderSweepInterval: getDurationEnv("REMINDER_SWEEP_INTERVAL", time.Minute),
		SLASweepInterval:      getDurationEnv("SLA_SWEEP_INTERVAL", 24*time.Hour),

		RotationInactivity:  getDurationEnv("ROTATION_INACTIVITY", 20*time.Minute),
		ReminderAfter:       getDurationEnv("REMINDER_AFTER", 24*time.Hour),
		SLAElapsed:          getDurationEnv("SLA_ELAPSED", 72*time.Hour),
		ReminderParallelism: getIntEnv("REMINDER_PARALLELISM", 4),
		FallbackRole:        getEnv("FALLBACK_ROLE", "legal_services"),
		FallbackEmails:      getListEnv("FALLBACK_EMAILS"),
		BranchRole:          getEnv("BRANCH_ROLE", "branch_staff"),

		EmailEnabled:     getBoolEnv("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Legal Search Portal"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", "no-reply@localhost"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}

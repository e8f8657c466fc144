package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration for the portal sync client.
type Config struct {
	Env      string
	LogLevel string
	OpsPort  string

	// Upstream portal API.
	APIBaseURL     string
	APIUserAgent   string
	HTTPTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Daemon session credentials (cookie-based login at startup).
	PortalEmail    string
	PortalPassword string
	PortalRole     string

	// Polling synchronizers. One mechanism, per-slice intervals.
	ConsultationsInterval time.Duration
	PrescriptionsInterval time.Duration
	AdminUsersInterval    time.Duration
	DashboardInterval     time.Duration
	MessagesInterval      time.Duration
	BackoffAfterFailures  int
	MaxBackoffMultiplier  int

	// Optional push channel; pollers pause while the stream is healthy.
	StreamEnabled bool
	StreamURL     string

	// Snapshot archive for dashboard growth deltas.
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	SnapshotCronSpec  string
	SnapshotRetention time.Duration

	// Ops surface.
	AdminJWTSecret string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		OpsPort:  getEnv("OPS_PORT", "8090"),

		APIBaseURL:     getEnv("PORTAL_API_BASE_URL", "http://localhost:5000/api"),
		APIUserAgent:   getEnv("PORTAL_API_USER_AGENT", ""),
		HTTPTimeout:    getEnvAsDuration("PORTAL_HTTP_TIMEOUT", 15*time.Second),
		MaxRetries:     getEnvAsInt("PORTAL_MAX_RETRIES", 2),
		RetryBaseDelay: getEnvAsDuration("PORTAL_RETRY_BASE_DELAY", 250*time.Millisecond),

		PortalEmail:    getEnv("PORTAL_EMAIL", ""),
		PortalPassword: getEnv("PORTAL_PASSWORD", ""),
		PortalRole:     strings.ToLower(strings.TrimSpace(getEnv("PORTAL_ROLE", "patient"))),

		ConsultationsInterval: getEnvAsDuration("SYNC_CONSULTATIONS_INTERVAL", 5*time.Second),
		PrescriptionsInterval: getEnvAsDuration("SYNC_PRESCRIPTIONS_INTERVAL", 10*time.Second),
		AdminUsersInterval:    getEnvAsDuration("SYNC_ADMIN_USERS_INTERVAL", 15*time.Second),
		DashboardInterval:     getEnvAsDuration("SYNC_DASHBOARD_INTERVAL", 15*time.Second),
		MessagesInterval:      getEnvAsDuration("SYNC_MESSAGES_INTERVAL", 3*time.Second),
		BackoffAfterFailures:  getEnvAsInt("SYNC_BACKOFF_AFTER_FAILURES", 3),
		MaxBackoffMultiplier:  getEnvAsInt("SYNC_MAX_BACKOFF_MULTIPLIER", 8),

		StreamEnabled: getEnvAsBool("STREAM_ENABLED", false),
		StreamURL:     getEnv("STREAM_URL", ""),

		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		SnapshotCronSpec:  getEnv("SNAPSHOT_CRON_SPEC", "5 0 * * *"),
		SnapshotRetention: getEnvAsDuration("SNAPSHOT_RETENTION", 90*24*time.Hour),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

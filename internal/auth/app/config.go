package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer       string        // Issuer claim for session tokens
	DatabaseFile string        // Path to SQLite database file (default: ./auth.db)
	PepperFile   string        // Path to the password pepper file (default: ./pepper)
	AccessTTL    time.Duration // Session token lifetime (default: 1h)
	ChallengeTTL time.Duration // Login MFA challenge lifetime (default: 5m)

	LockoutThreshold int           // Consecutive failures before lockout (default: 5)
	LockoutWindow    time.Duration // Sliding window for counting failures (default: 15m)
	LockoutCooldown  time.Duration // Lockout duration once tripped (default: 15m)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-challenge sweep interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:       getEnvOrDefault("AUTH_ISSUER", "binsight-auth"),
		DatabaseFile: getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:   getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		AccessTTL:    getEnvDurationOrDefault("AUTH_ACCESS_TTL", time.Hour),
		ChallengeTTL: getEnvDurationOrDefault("AUTH_CHALLENGE_TTL", 5*time.Minute),

		LockoutThreshold: getEnvIntOrDefault("AUTH_LOCKOUT_THRESHOLD", 5),
		LockoutWindow:    getEnvDurationOrDefault("AUTH_LOCKOUT_WINDOW", 15*time.Minute),
		LockoutCooldown:  getEnvDurationOrDefault("AUTH_LOCKOUT_COOLDOWN", 15*time.Minute),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

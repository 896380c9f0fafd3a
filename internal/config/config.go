package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds portal configuration
type Config struct {
	Env      string
	LogLevel string

	// Clinic backend the portal core talks to.
	BackendURL     string
	RequestTimeout time.Duration

	// Where the session token is persisted: "file" or "redis".
	SessionBackend string
	SessionFile    string
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// clinic-stub settings.
	StubPort      string
	StubJWTSecret string
	StubTokenTTL  time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 20*time.Second),

		SessionBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "file"))),
		SessionFile:    getEnv("SESSION_FILE", defaultSessionFile()),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		StubPort:      getEnv("STUB_PORT", "8080"),
		StubJWTSecret: getEnv("STUB_JWT_SECRET", "dev-only-secret"),
		StubTokenTTL:  getEnvAsDuration("STUB_TOKEN_TTL", 30*time.Minute),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".portal-session.json"
	}
	return dir + "/patient-portal/session.json"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
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

// Package config loads the proxy server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/sportsorca/nba-proxy/pkg/client"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the server configuration.
type Config struct {
	Port    string
	APIKey  string
	BaseURL string
	Env     string

	LogLevel  string
	LogPretty bool

	UpstreamTimeout   time.Duration
	RequestSpacing    time.Duration
	TierCheckInterval time.Duration
}

// Load reads an optional .env file and then the environment. A missing API
// key is not an error here: gated routes answer 500 until one is set.
func Load(files ...string) Config {
	if err := godotenv.Load(files...); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	return Config{
		Port:              getEnv("PORT", "5000"),
		APIKey:            os.Getenv("API_KEY"),
		BaseURL:           getEnv("API_BASE_URL", client.DefaultBaseURL),
		Env:               strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogPretty:         getBool("LOG_PRETTY", false),
		UpstreamTimeout:   getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		RequestSpacing:    getDuration("REQUEST_SPACING", 1*time.Second),
		TierCheckInterval: getDuration("TIER_CHECK_INTERVAL", 24*time.Hour),
	}
}

// IsProduction reports whether error details must be hidden from responses.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Addr is the listen address.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

// getDuration accepts Go durations ("1500ms") or whole seconds ("10").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration, using default")
	return defaultValue
}

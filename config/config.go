// ABOUTME: Application configuration loaded from the environment
// ABOUTME: Reads an optional .env file, then SALESCRM_* and LLM_* variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath string
	Port         int
	APIURL       string
	LogLevel     string
	LogPretty    bool
	HTTPTimeout  time.Duration

	LLMAPIKey    string
	LLMBaseURL   string
	LLMModel     string
	LLMMaxTokens int
}

// DefaultDatabasePath is the XDG data location used when SALESCRM_DB_PATH is unset.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "salescrm", "crm.db")
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath: getEnv("SALESCRM_DB_PATH", DefaultDatabasePath()),
		Port:         getEnvAsInt("SALESCRM_PORT", 8080),
		APIURL:       getEnv("SALESCRM_API_URL", "http://localhost:8080"),
		LogLevel:     getEnv("SALESCRM_LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("SALESCRM_LOG_PRETTY", false),
		HTTPTimeout:  getEnvAsDuration("SALESCRM_HTTP_TIMEOUT", 15*time.Second),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.anthropic.com"),
		LLMModel:     getEnv("LLM_MODEL", "claude-sonnet-4-5"),
		LLMMaxTokens: getEnvAsInt("LLM_MAX_TOKENS", 1024),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("SALESCRM_DB_PATH is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("SALESCRM_PORT must be between 1 and 65535, got %d", c.Port)
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("SALESCRM_API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("SALESCRM_HTTP_TIMEOUT must be positive")
	}
	// LLM key is optional; coaching endpoints report unavailable without it
	return nil
}

// LLMEnabled reports whether conversation analysis and coaching can run.
func (c *Config) LLMEnabled() bool {
	return c.LLMAPIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

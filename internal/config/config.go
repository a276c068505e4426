package config

import (
	"fmt"
	"os"
	"strconv"

	"recovery-engine/internal/engine"
	"recovery-engine/internal/logger"
)

type Config struct {
	// OpenAI Configuration (optional — the engine runs rule-based without it)
	OpenAIAPIKey string
	OpenAIModel  string

	// Postgres store (optional — in-memory stores are used when empty)
	PostgresDSN string

	// Redis profile cache (optional)
	RedisAddr string

	// Engine numeric policy
	Thresholds engine.Thresholds

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),

		Thresholds: loadThresholds(),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "console"),
		LogTimeFormat: getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:     getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadThresholds starts from the stock policy and applies the tenant
// overrides the host most commonly tunes.
func loadThresholds() engine.Thresholds {
	t := engine.DefaultThresholds()
	t.SuccessFeeRate = getFloatEnv("SUCCESS_FEE_RATE", t.SuccessFeeRate)
	t.DecayRate = getFloatEnv("RECOVERY_DECAY_RATE", t.DecayRate)
	t.LargeInvoice = getInt64Env("LARGE_INVOICE_UNITS", t.LargeInvoice)
	t.VeryLargeInvoice = getInt64Env("VERY_LARGE_INVOICE_UNITS", t.VeryLargeInvoice)
	t.ConcentrationLimit = getInt64Env("CONCENTRATION_LIMIT_UNITS", t.ConcentrationLimit)
	t.SqueezeWindowDays = getIntEnv("SQUEEZE_WINDOW_DAYS", t.SqueezeWindowDays)
	return t
}

func (c *Config) validate() error {
	t := c.Thresholds
	if t.SuccessFeeRate < 0 || t.SuccessFeeRate >= 1 {
		return fmt.Errorf("SUCCESS_FEE_RATE must be in [0, 1), got %v", t.SuccessFeeRate)
	}
	if t.DecayRate < 0 {
		return fmt.Errorf("RECOVERY_DECAY_RATE must be non-negative, got %v", t.DecayRate)
	}
	if t.LargeInvoice <= 0 || t.VeryLargeInvoice <= t.LargeInvoice {
		return fmt.Errorf("invoice size bands must satisfy 0 < LARGE_INVOICE_UNITS < VERY_LARGE_INVOICE_UNITS")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBPath      string
	BusyTimeout time.Duration

	// Recurrence engine
	RecurrenceInterval time.Duration

	// Budget alerts; zero disables the threshold check.
	BudgetThreshold float64

	// AMQP (optional; empty URL disables the broker-backed notifier)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel string
}

func Load() *Config {
	return &Config{
		DBPath:      getEnv("KOBO_DB_PATH", "./data/kobo.db"),
		BusyTimeout: getEnvDuration("KOBO_BUSY_TIMEOUT", 5*time.Second),

		RecurrenceInterval: getEnvDuration("KOBO_RECURRENCE_INTERVAL", time.Hour),

		BudgetThreshold: getEnvFloat("KOBO_BUDGET_THRESHOLD", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "kobo"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "budget_alerts"),

		LogLevel: getEnv("KOBO_LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration and returns an error listing every
// problem found.
func (c *Config) Validate() error {
	var problems []string

	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	} else {
		dir := filepath.Dir(c.DBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.BusyTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("busy timeout must be positive, got %v", c.BusyTimeout))
	}

	if c.RecurrenceInterval < time.Minute {
		problems = append(problems, fmt.Sprintf("recurrence interval must be at least 1m, got %v", c.RecurrenceInterval))
	}

	if c.BudgetThreshold < 0 {
		problems = append(problems, fmt.Sprintf("budget threshold cannot be negative, got %v", c.BudgetThreshold))
	}

	if c.AMQPURL != "" {
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange cannot be empty when an AMQP URL is set")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue cannot be empty when an AMQP URL is set")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Login
	AdminUser     string
	AdminPassword string
	SessionTTL    time.Duration

	// Fuel types offered in forms; an open list, extend per deployment.
	FuelTypes []string

	// Upload limit for CSV imports, in bytes.
	MaxUploadBytes int64
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		SQLiteDBPath: getEnv("KFZ_DB_PATH", "./data/kfz.db"),

		AdminUser:     getEnv("KFZ_ADMIN_USER", "admin"),
		AdminPassword: getEnv("KFZ_ADMIN_PASSWORD", "admin"),
		SessionTTL:    getEnvDuration("KFZ_SESSION_TTL", 12*time.Hour),

		FuelTypes: getEnvList("KFZ_FUEL_TYPES", []string{"benzin", "diesel", "elektro", "hybrid", "lpg"}),

		MaxUploadBytes: int64(getEnvInt("KFZ_MAX_UPLOAD", 5<<20)),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "database path cannot be empty")
	}

	if c.AdminUser == "" {
		errors = append(errors, "admin username cannot be empty")
	}
	if c.AdminPassword == "" {
		errors = append(errors, "admin password cannot be empty")
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}

	if len(c.FuelTypes) == 0 {
		errors = append(errors, "fuel type list cannot be empty")
	}
	for _, ft := range c.FuelTypes {
		if strings.TrimSpace(ft) == "" {
			errors = append(errors, "fuel type list contains an empty entry")
			break
		}
	}

	if c.MaxUploadBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid upload limit %d: must be at least 1024 bytes", c.MaxUploadBytes))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// DefaultFuelType is the type preselected in forms and stamped on CSV
// imports.
func (c *Config) DefaultFuelType() string {
	return c.FuelTypes[0]
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

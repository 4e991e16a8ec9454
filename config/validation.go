package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// requirements lists the settings that must be non-empty in each environment.
// Postgres settings are only checked when DB_DRIVER is postgres.
var requirements = map[Environment][]string{
	Development: {"SERVER_PORT", "JWT_SECRET"},
	Test:        {"SERVER_PORT", "JWT_SECRET"},
	CI:          {"SERVER_PORT", "JWT_SECRET"},
	Production:  {"SERVER_PORT", "JWT_SECRET", "REDIS_URL"},
}

var postgresRequirements = []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME"}

func (c *Config) lookup(key string) string {
	switch key {
	case "SERVER_PORT":
		return c.ServerPort
	case "JWT_SECRET":
		return c.JWTSecret
	case "REDIS_URL":
		return c.RedisURL
	case "DB_HOST":
		return c.DBHost
	case "DB_PORT":
		return c.DBPort
	case "DB_USER":
		return c.DBUser
	case "DB_PASSWORD":
		return c.DBPassword
	case "DB_NAME":
		return c.DBName
	}
	return ""
}

// ValidateConfig checks if the configuration meets the requirements for the current environment
func ValidateConfig(cfg *Config) error {
	env := GetEnvironment()

	var errs []string
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg}.Error())
	}

	required := requirements[env]
	if cfg.DBDriver == "postgres" {
		required = append(append([]string{}, required...), postgresRequirements...)
	}
	for _, key := range required {
		if cfg.lookup(key) == "" {
			add(key, "is required in "+string(env))
		}
	}

	switch cfg.DBDriver {
	case "postgres":
	case "sqlite":
		if cfg.SQLitePath == "" {
			add("SQLITE_PATH", "is required for the sqlite driver")
		}
		if env == Production {
			add("DB_DRIVER", "sqlite is not supported in production")
		}
	default:
		add("DB_DRIVER", fmt.Sprintf("unsupported driver %q", cfg.DBDriver))
	}

	if cfg.PageSize < 1 {
		add("PAGE_SIZE", "must be at least 1")
	}
	if cfg.TokenTTL <= 0 {
		add("TOKEN_TTL", "must be positive")
	}
	if cfg.RecipeCreationLimit < 1 {
		add("RECIPE_CREATION_LIMIT", "must be at least 1")
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		add("LOG_FORMAT", "must be text or json")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid %s configuration:\n%s", env, strings.Join(errs, "\n"))
	}
	return nil
}

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field, e.g. "server.listen_address".
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every validation failure in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate checks the configuration and returns a ValidationError
// listing every failed rule, or nil when the configuration is valid.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Server.ListenAddress == "" {
		errs = append(errs, FieldError{"server.listen_address", "must not be empty"})
	}

	if cfg.Store.Path == "" {
		errs = append(errs, FieldError{"store.path", "must not be empty"})
	}
	if cfg.Store.MaxIdleConns > cfg.Store.MaxOpenConns {
		errs = append(errs, FieldError{"store.max_idle_conns",
			fmt.Sprintf("must not exceed max_open_conns (%d)", cfg.Store.MaxOpenConns)})
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "remote":
		if cfg.Cache.Remote.BaseURL == "" {
			errs = append(errs, FieldError{"cache.remote.base_url", "required for the remote backend"})
		} else if u, err := url.Parse(cfg.Cache.Remote.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{"cache.remote.base_url",
				fmt.Sprintf("invalid URL %q", cfg.Cache.Remote.BaseURL)})
		}
	default:
		errs = append(errs, FieldError{"cache.backend",
			fmt.Sprintf("unknown backend %q (must be \"memory\" or \"remote\")", cfg.Cache.Backend)})
	}

	if cfg.Health.ErrorThreshold < 0 {
		errs = append(errs, FieldError{"health.error_threshold", "must not be negative"})
	}
	if cfg.Limits.RequestsPerWindow < 0 {
		errs = append(errs, FieldError{"limits.requests_per_window", "must not be negative"})
	}

	if cfg.Audit.AuditEnabled() {
		if cfg.Audit.Path == "" {
			errs = append(errs, FieldError{"audit.path", "must not be empty"})
		}
		if cfg.Audit.Retention.Days < 0 {
			errs = append(errs, FieldError{"audit.retention.days", "must not be negative"})
		}
		if s := cfg.Audit.Retention.Schedule; s != "" {
			if _, err := cron.ParseStandard(s); err != nil {
				errs = append(errs, FieldError{"audit.retention.schedule",
					fmt.Sprintf("invalid cron expression %q: %v", s, err)})
			}
		}
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{"logging.level",
			fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		errs = append(errs, FieldError{"logging.format",
			fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

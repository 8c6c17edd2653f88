package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadWithEnvOverrides for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the convention
// RELAY_SECTION_FIELD (e.g. RELAY_SERVER_LISTEN_ADDRESS) and always take
// precedence over the file. The result is re-validated after overrides.
func LoadWithEnvOverrides(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("after environment overrides: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration a missing file would produce.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

func applyEnvOverrides(cfg *Config) {
	envString("RELAY_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("RELAY_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("RELAY_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("RELAY_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("RELAY_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	envString("RELAY_STORE_PATH", &cfg.Store.Path)
	envBool("RELAY_STORE_WATCH", &cfg.Store.Watch)

	envString("RELAY_CACHE_BACKEND", &cfg.Cache.Backend)
	envString("RELAY_CACHE_REMOTE_BASE_URL", &cfg.Cache.Remote.BaseURL)
	envDuration("RELAY_CACHE_REMOTE_TIMEOUT", &cfg.Cache.Remote.Timeout)

	envInt("RELAY_HEALTH_ERROR_THRESHOLD", &cfg.Health.ErrorThreshold)
	envDuration("RELAY_HEALTH_RECOVERY_WINDOW", &cfg.Health.RecoveryWindow)

	envInt64("RELAY_LIMITS_REQUESTS_PER_WINDOW", &cfg.Limits.RequestsPerWindow)
	envDuration("RELAY_LIMITS_WINDOW", &cfg.Limits.Window)

	envDuration("RELAY_ROUTING_CONFIG_TTL", &cfg.Routing.ConfigTTL)

	if val := os.Getenv("RELAY_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = &b
		}
	}
	envString("RELAY_AUDIT_PATH", &cfg.Audit.Path)
	envInt("RELAY_AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString("RELAY_AUDIT_RETENTION_SCHEDULE", &cfg.Audit.Retention.Schedule)

	envString("RELAY_LOG_LEVEL", &cfg.Logging.Level)
	envString("RELAY_LOG_FORMAT", &cfg.Logging.Format)
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(name string, dst *int64) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

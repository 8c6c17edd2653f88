package config

import (
	"time"

	"octane/relay/pkg/telemetry/logging"
)

// Config is the root configuration for the relay.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Store   StoreConfig    `yaml:"store"`
	Cache   CacheConfig    `yaml:"cache"`
	Health  HealthConfig   `yaml:"health"`
	Limits  LimitsConfig   `yaml:"limits"`
	Routing RoutingConfig  `yaml:"routing"`
	Audit   AuditConfig    `yaml:"audit"`
	Logging logging.Config `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddress   string        `yaml:"listen_address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig configures the SQLite configuration store.
type StoreConfig struct {
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`

	// Watch reloads routing snapshots when the database file changes
	// on disk, for deployments where an external tool edits the store.
	Watch bool `yaml:"watch"`
}

// CacheConfig selects and configures the shared cache backend.
type CacheConfig struct {
	// Backend is "memory" or "remote".
	Backend string `yaml:"backend"`

	// CleanupInterval is the expiry sweep period of the memory backend.
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	Remote RemoteCacheConfig `yaml:"remote"`
}

// RemoteCacheConfig configures the remote key-value backend.
type RemoteCacheConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig configures channel health tracking.
type HealthConfig struct {
	ErrorThreshold int           `yaml:"error_threshold"`
	RecoveryWindow time.Duration `yaml:"recovery_window"`
	StateTTL       time.Duration `yaml:"state_ttl"`
}

// LimitsConfig configures per-user rate limiting.
type LimitsConfig struct {
	RequestsPerWindow int64         `yaml:"requests_per_window"`
	Window            time.Duration `yaml:"window"`
}

// RoutingConfig configures group snapshot caching.
type RoutingConfig struct {
	ConfigTTL time.Duration `yaml:"config_ttl"`
}

// AuditConfig configures the audit trail and its retention.
type AuditConfig struct {
	// Enabled turns the audit trail on. Default: true.
	Enabled *bool `yaml:"enabled"`

	Path         string          `yaml:"path"`
	Buffer       int             `yaml:"buffer"`
	WriteTimeout time.Duration   `yaml:"write_timeout"`
	Retention    RetentionConfig `yaml:"retention"`
}

// RetentionConfig bounds how long audit records are kept.
type RetentionConfig struct {
	Days     int    `yaml:"days"`
	Schedule string `yaml:"schedule"`
}

// AuditEnabled reports whether the audit trail is on, defaulting to true
// when unset.
func (c *AuditConfig) AuditEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

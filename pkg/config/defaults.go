package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Store defaults
	DefaultStorePath         = "data/relay.db"
	DefaultStoreMaxOpenConns = 10
	DefaultStoreMaxIdleConns = 5

	// Cache defaults
	DefaultCacheBackend         = "memory"
	DefaultCacheCleanupInterval = time.Minute
	DefaultRemoteCacheTimeout   = 2 * time.Second

	// Routing defaults
	DefaultRoutingConfigTTL = 60 * time.Second

	// Audit defaults
	DefaultAuditPath              = "data/audit.db"
	DefaultAuditBuffer            = 1000
	DefaultAuditWriteTimeout      = 5 * time.Second
	DefaultAuditRetentionDays     = 90
	DefaultAuditRetentionSchedule = "0 3 * * *"

	// Logging defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
)

// ApplyDefaults fills unset fields with their defaults. Sections whose
// types live in other packages keep their own ApplyDefaults; this covers
// everything declared here.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	// Streams stay open for minutes; the write timeout must cover the
	// whole response, not one write.
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.MaxHeaderBytes <= 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Store.MaxOpenConns <= 0 {
		cfg.Store.MaxOpenConns = DefaultStoreMaxOpenConns
	}
	if cfg.Store.MaxIdleConns <= 0 {
		cfg.Store.MaxIdleConns = DefaultStoreMaxIdleConns
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = DefaultCacheBackend
	}
	if cfg.Cache.CleanupInterval <= 0 {
		cfg.Cache.CleanupInterval = DefaultCacheCleanupInterval
	}
	if cfg.Cache.Remote.Timeout <= 0 {
		cfg.Cache.Remote.Timeout = DefaultRemoteCacheTimeout
	}

	if cfg.Routing.ConfigTTL <= 0 {
		cfg.Routing.ConfigTTL = DefaultRoutingConfigTTL
	}

	if cfg.Audit.Path == "" {
		cfg.Audit.Path = DefaultAuditPath
	}
	if cfg.Audit.Buffer <= 0 {
		cfg.Audit.Buffer = DefaultAuditBuffer
	}
	if cfg.Audit.WriteTimeout <= 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.Retention.Days == 0 {
		cfg.Audit.Retention.Days = DefaultAuditRetentionDays
	}
	if cfg.Audit.Retention.Schedule == "" {
		cfg.Audit.Retention.Schedule = DefaultAuditRetentionSchedule
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}
}

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"octane/relay/pkg/audit"
	"octane/relay/pkg/auth"
	"octane/relay/pkg/cache"
	"octane/relay/pkg/config"
	"octane/relay/pkg/gateway"
	"octane/relay/pkg/health"
	"octane/relay/pkg/limits"
	"octane/relay/pkg/pricing"
	"octane/relay/pkg/proxy/handlers"
	"octane/relay/pkg/proxy/middleware"
	"octane/relay/pkg/relay"
	"octane/relay/pkg/relay/anthropic"
	"octane/relay/pkg/relay/openai"
	"octane/relay/pkg/relay/responses"
	"octane/relay/pkg/routing"
	"octane/relay/pkg/routing/strategies"
	"octane/relay/pkg/store"
	"octane/relay/pkg/telemetry/metrics"
)

// Server is the assembled relay: the HTTP listener plus every component
// behind it.
type Server struct {
	config *config.Config

	store      *store.SQLiteStore
	cache      cache.Cache
	closeCache func()
	resolver   *routing.Resolver
	gateway    *gateway.Gateway
	metrics    *metrics.Collector

	auditStorage *audit.SQLiteStorage
	recorder     *audit.Recorder
	pruner       *audit.Pruner
	watcher      *config.FileWatcher

	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.Mutex
	isRunning    bool
}

// New builds a server from configuration. Nothing listens until Start.
func New(cfg *config.Config) (*Server, error) {
	s := &Server{
		config:       cfg,
		shutdownChan: make(chan struct{}),
	}

	storeCfg := store.DefaultSQLiteConfig()
	storeCfg.Path = cfg.Store.Path
	storeCfg.MaxOpenConns = cfg.Store.MaxOpenConns
	storeCfg.MaxIdleConns = cfg.Store.MaxIdleConns
	st, err := store.NewSQLiteStore(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open configuration store: %w", err)
	}
	s.store = st

	if err := s.setupCache(); err != nil {
		s.store.Close()
		return nil, err
	}

	tracker := health.NewTracker(s.cache, health.Config{
		ErrorThreshold: cfg.Health.ErrorThreshold,
		RecoveryWindow: cfg.Health.RecoveryWindow,
		StateTTL:       cfg.Health.StateTTL,
	})
	s.resolver = routing.NewResolver(st, s.cache, cfg.Routing.ConfigTTL)
	selector := routing.NewSelector(s.resolver, tracker, strategies.All(s.cache))

	registry := relay.NewRegistry(
		openai.NewAdapter(),
		responses.NewAdapter(),
		anthropic.NewAdapter(),
	)

	s.metrics = metrics.NewCollector(prometheus.NewRegistry())

	if cfg.Audit.AuditEnabled() {
		if err := s.setupAudit(); err != nil {
			s.store.Close()
			s.closeCache()
			return nil, err
		}
	}

	s.gateway = gateway.New(gateway.Deps{
		Auth:     auth.NewAuthenticator(st),
		Limiter:  limits.NewLimiter(s.cache, limits.Config{RequestsPerWindow: cfg.Limits.RequestsPerWindow, Window: cfg.Limits.Window}),
		Selector: selector,
		Registry: registry,
		Tracker:  tracker,
		Store:    st,
		Pricing:  pricing.NewCalculator(st),
		Recorder: s.recorder,
		Metrics:  s.metrics,
	})

	if cfg.Store.Watch {
		watcher, err := config.NewFileWatcher(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to watch store: %w", err)
		}
		s.watcher = watcher
	}

	return s, nil
}

func (s *Server) setupCache() error {
	switch s.config.Cache.Backend {
	case "remote":
		remote, err := cache.NewRemote(cache.RemoteConfig{
			BaseURL: s.config.Cache.Remote.BaseURL,
			Timeout: s.config.Cache.Remote.Timeout,
		})
		if err != nil {
			return fmt.Errorf("failed to create remote cache: %w", err)
		}
		s.cache = remote
		s.closeCache = func() {}
	default:
		mem := cache.NewMemory(s.config.Cache.CleanupInterval)
		s.cache = mem
		s.closeCache = mem.Close
	}
	return nil
}

func (s *Server) setupAudit() error {
	auditCfg := audit.DefaultSQLiteConfig()
	auditCfg.Path = s.config.Audit.Path
	storage, err := audit.NewSQLiteStorage(auditCfg)
	if err != nil {
		return fmt.Errorf("failed to open audit storage: %w", err)
	}
	s.auditStorage = storage
	s.recorder = audit.NewRecorder(storage, audit.RecorderConfig{
		Buffer:       s.config.Audit.Buffer,
		WriteTimeout: s.config.Audit.WriteTimeout,
		OnDrop:       s.metrics.AuditRecordDropped,
	})
	s.pruner = audit.NewPruner(storage, audit.RetentionConfig{
		Days:     s.config.Audit.Retention.Days,
		Schedule: s.config.Audit.Retention.Schedule,
	})
	return nil
}

// Start runs the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.Server.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	if s.pruner != nil {
		if err := s.pruner.Start(); err != nil {
			return fmt.Errorf("failed to start audit retention: %w", err)
		}
	}

	if s.watcher != nil {
		go func() {
			if err := s.watcher.Watch(ctx, s.resolver.InvalidateAll); err != nil {
				slog.Error("store watcher terminated", "error", err)
			}
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting relay server", "address", s.config.Server.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the listener and all background components.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		slog.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				slog.Error("error stopping store watcher", "error", err)
			}
		}
		if s.pruner != nil {
			s.pruner.Stop()
		}
		// The recorder drains buffered records before its storage closes.
		if s.recorder != nil {
			s.recorder.Close()
		}
		if s.auditStorage != nil {
			if err := s.auditStorage.Close(); err != nil {
				slog.Error("error closing audit storage", "error", err)
			}
		}
		if s.closeCache != nil {
			s.closeCache()
		}
		if err := s.store.Close(); err != nil {
			slog.Error("error closing configuration store", "error", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("relay server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/v1/chat/completions", handlers.NewRelayHandler(s.gateway, relay.FormatOpenAIChat))
	mux.Handle("/v1/responses", handlers.NewRelayHandler(s.gateway, relay.FormatOpenAIResponses))
	mux.Handle("/v1/messages", handlers.NewRelayHandler(s.gateway, relay.FormatAnthropic))
	mux.Handle("/health", handlers.NewHealthHandler())
	mux.Handle("/ready", handlers.NewReadyHandler(s.store))
	mux.Handle("/metrics", s.metrics.Handler())

	return middleware.Chain(mux,
		middleware.Recovery,
		middleware.Logging,
		middleware.RequestID,
		middleware.CORS,
	)
}

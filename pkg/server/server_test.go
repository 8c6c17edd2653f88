package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"octane/relay/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Store.Path = filepath.Join(t.TempDir(), "relay.db")
	cfg.Audit.Path = filepath.Join(t.TempDir(), "audit.db")
	return cfg
}

func TestNewWiresAllComponents(t *testing.T) {
	srv, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Shutdown(context.Background())

	if srv.gateway == nil {
		t.Error("gateway not wired")
	}
	if srv.recorder == nil {
		t.Error("audit recorder not wired despite audit enabled")
	}
	if srv.metrics == nil {
		t.Error("metrics collector not wired")
	}
}

func TestNewWithAuditDisabled(t *testing.T) {
	cfg := testConfig(t)
	disabled := false
	cfg.Audit.Enabled = &disabled

	srv, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Shutdown(context.Background())

	if srv.recorder != nil {
		t.Error("audit recorder wired despite audit disabled")
	}
}

func TestRoutes(t *testing.T) {
	srv, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Shutdown(context.Background())

	handler := srv.setupRoutes()

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/chat/completions", http.StatusMethodNotAllowed},
		{http.MethodPost, "/v1/chat/completions", http.StatusBadRequest},
		{http.MethodPost, "/v1/responses", http.StatusBadRequest},
		{http.MethodPost, "/v1/messages", http.StatusBadRequest},
		{http.MethodGet, "/no-such-route", http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	srv, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	srv, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	// Let the listener come up before cancelling.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v after cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after context cancel")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	srv, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("first Shutdown() error = %v", err)
	}
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

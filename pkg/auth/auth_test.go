package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"octane/relay/pkg/relay"
	"octane/relay/pkg/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	cfg := store.DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "relay.db")

	s, err := store.NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestExtractKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"bearer token", map[string]string{"Authorization": "Bearer sk-abc"}, "sk-abc"},
		{"x-api-key", map[string]string{"x-api-key": "sk-def"}, "sk-def"},
		{"bearer wins", map[string]string{"Authorization": "Bearer sk-abc", "x-api-key": "sk-def"}, "sk-abc"},
		{"non-bearer authorization ignored", map[string]string{"Authorization": "Basic dXNlcg==", "x-api-key": "sk-def"}, "sk-def"},
		{"no key", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ExtractKey(r); got != tt.want {
				t.Errorf("ExtractKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateAPIKey(ctx, &store.APIKeyInfo{Key: "sk-live", UserID: 1, Enabled: true}); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	if _, err := s.CreateAPIKey(ctx, &store.APIKeyInfo{Key: "sk-off", UserID: 2, Enabled: false}); err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}

	a := NewAuthenticator(s)

	info, err := a.Validate(ctx, "sk-live")
	if err != nil {
		t.Fatalf("Validate(live): %v", err)
	}
	if info.UserID != 1 {
		t.Errorf("user = %d, want 1", info.UserID)
	}

	for _, key := range []string{"", "sk-unknown", "sk-off"} {
		_, err := a.Validate(ctx, key)
		var authErr *relay.AuthError
		if !errors.As(err, &authErr) {
			t.Errorf("Validate(%q) error = %v, want *relay.AuthError", key, err)
		}
	}
}

func TestValidateNeverEchoesKey(t *testing.T) {
	s := newTestStore(t)
	a := NewAuthenticator(s)

	_, err := a.Validate(context.Background(), "sk-super-secret")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); strings.Contains(got, "sk-super-secret") {
		t.Errorf("error message echoes the key: %q", got)
	}
}

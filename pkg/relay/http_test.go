package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"transport failure", &UpstreamError{Vendor: "OpenAI", Message: "connection refused"}, true},
		{"rate limited", &UpstreamError{Vendor: "OpenAI", StatusCode: 429, Message: "slow down"}, true},
		{"server error", &UpstreamError{Vendor: "OpenAI", StatusCode: 503, Message: "overloaded"}, true},
		{"bad request", &UpstreamError{Vendor: "OpenAI", StatusCode: 400, Message: "bad"}, false},
		{"auth rejected", &UpstreamError{Vendor: "OpenAI", StatusCode: 401, Message: "key"}, false},
		{"timeout", &TimeoutError{Vendor: "OpenAI", Timeout: time.Second}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		if got := r.Header.Get("X-Test"); got != "yes" {
			t.Errorf("custom header = %q, want yes", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := Send(context.Background(), srv.Client(), srv.URL, []byte(`{}`), SendOptions{
		Vendor:  "OpenAI",
		Headers: map[string]string{"X-Test": "yes"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
}

func TestSendUpstreamErrorFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	_, err := Send(context.Background(), srv.Client(), srv.URL, nil, SendOptions{Vendor: "Anthropic"})
	if err == nil {
		t.Fatal("expected error")
	}

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error type %T, want *UpstreamError", err)
	}
	want := `Anthropic API error: 401 - {"error":{"message":"invalid key"}}`
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestSendRetriesTransientFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("retry backoff sleeps")
	}

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	resp, err := Send(context.Background(), srv.Client(), srv.URL, nil, SendOptions{
		Vendor:     "OpenAI",
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	resp.Body.Close()

	if got := calls.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestSendNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("bad request"))
	}))
	defer srv.Close()

	_, err := Send(context.Background(), srv.Client(), srv.URL, nil, SendOptions{
		Vendor:     "OpenAI",
		MaxRetries: 3,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestSendNeverRetriesStreams(t *testing.T) {
	// A streaming request must not be retried even for retryable statuses.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := Send(context.Background(), srv.Client(), srv.URL, nil, SendOptions{
		Vendor:     "OpenAI",
		MaxRetries: 3,
		Streaming:  true,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestSendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := Send(context.Background(), srv.Client(), srv.URL, nil, SendOptions{
		Vendor:  "OpenAI",
		Timeout: 50 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("error type %T, want *TimeoutError", err)
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Errorf("error = %q", err.Error())
	}
}

func TestSendCallerCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Send(ctx, srv.Client(), srv.URL, nil, SendOptions{Vendor: "OpenAI"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

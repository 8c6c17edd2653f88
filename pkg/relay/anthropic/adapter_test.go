package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"octane/relay/pkg/relay"
	"octane/relay/pkg/store"
)

func TestAdapterSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "sk-ant-secret" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != "2023-06-01" {
			t.Errorf("anthropic-version = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("unexpected Authorization header %q", got)
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode upstream body: %v", err)
		}
		if req.Model != "claude-haiku" {
			t.Errorf("upstream model = %q", req.Model)
		}
		if req.MaxTokens != DefaultMaxTokens {
			t.Errorf("max_tokens = %d, want default %d", req.MaxTokens, DefaultMaxTokens)
		}

		json.NewEncoder(w).Encode(Response{
			ID:         "msg_1",
			Type:       "message",
			Role:       "assistant",
			Model:      req.Model,
			StopReason: "end_turn",
			Content:    []ContentBlock{{Type: "text", Text: "hello"}},
			Usage:      &Usage{InputTokens: 5, OutputTokens: 2},
		})
	}))
	defer srv.Close()

	ch := &store.Channel{
		ID:      2,
		Name:    "anthropic-primary",
		Type:    store.ChannelTypeAnthropic,
		BaseURL: srv.URL,
		APIKey:  "sk-ant-secret",
	}

	result := NewAdapter().Send(context.Background(), ch, &relay.UnifiedRequest{
		Model:    "fast",
		Messages: []relay.Message{{Role: "user", Content: "hi"}},
	}, "claude-haiku")

	if result.Err != nil {
		t.Fatalf("Send: %v", result.Err)
	}
	if result.Response.Content != "hello" || result.Response.FinishReason != "stop" {
		t.Errorf("response = %+v", result.Response)
	}
	if result.Response.Usage.InputTokens != 5 {
		t.Errorf("usage = %+v", result.Response.Usage)
	}
}

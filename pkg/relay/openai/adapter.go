package openai

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"octane/relay/pkg/relay"
	"octane/relay/pkg/store"
)

// vendor is the display name used in error messages.
const vendor = "OpenAI"

// pathSuffix is appended to every channel base URL.
const pathSuffix = "/chat/completions"

// Adapter sends unified requests to OpenAI-compatible Chat Completions
// endpoints.
type Adapter struct {
	client *http.Client
	logger *slog.Logger
}

// NewAdapter creates the Chat Completions adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		client: relay.NewHTTPClient(),
		logger: slog.Default().With("component", "relay.openai"),
	}
}

// Type implements relay.Adapter.
func (a *Adapter) Type() store.ChannelType {
	return store.ChannelTypeOpenAIChat
}

// Send implements relay.Adapter.
func (a *Adapter) Send(ctx context.Context, ch *store.Channel, req *relay.UnifiedRequest, actualModel string) *relay.Result {
	body, err := json.Marshal(FromUnified(req, actualModel))
	if err != nil {
		return &relay.Result{Err: err}
	}

	url := strings.TrimSuffix(ch.BaseURL, "/") + pathSuffix
	resp, err := relay.Send(ctx, a.client, url, body, relay.SendOptions{
		Vendor:     vendor,
		Timeout:    ch.Timeout,
		MaxRetries: ch.MaxRetries,
		Streaming:  req.Stream,
		Headers: map[string]string{
			"Authorization": "Bearer " + ch.APIKey,
		},
	})
	if err != nil {
		return &relay.Result{Err: err}
	}

	if req.Stream {
		return &relay.Result{Stream: resp.Body}
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &relay.Result{Err: &relay.UpstreamError{Vendor: vendor, Message: err.Error()}}
	}

	var parsed Response
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &relay.Result{Err: &relay.ParseError{Vendor: vendor, RawResponse: string(raw), Cause: err}}
	}

	a.logger.Debug("completion request succeeded",
		"channel", ch.Name,
		"model", parsed.Model,
	)

	return &relay.Result{Response: ResponseToUnified(&parsed)}
}

package anthropic

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
const vendor = "Anthropic"

// pathSuffix is appended to every channel base URL.
const pathSuffix = "/messages"

// apiVersion is the anthropic-version header sent on every request.
const apiVersion = "2023-06-01"

// Adapter sends unified requests to Anthropic Messages endpoints.
type Adapter struct {
	client *http.Client
	logger *slog.Logger
}

// NewAdapter creates the Messages adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		client: relay.NewHTTPClient(),
		logger: slog.Default().With("component", "relay.anthropic"),
	}
}

// Type implements relay.Adapter.
func (a *Adapter) Type() store.ChannelType {
	return store.ChannelTypeAnthropic
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
			"x-api-key":         ch.APIKey,
			"anthropic-version": apiVersion,
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

	a.logger.Debug("messages request succeeded",
		"channel", ch.Name,
		"model", parsed.Model,
	)

	return &relay.Result{Response: ResponseToUnified(&parsed)}
}

package responses

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

const vendor = "OpenAI"

const pathSuffix = "/responses"

// Adapter sends unified requests to OpenAI Responses endpoints.
type Adapter struct {
	client *http.Client
	logger *slog.Logger
}

// NewAdapter creates the Responses adapter.
func NewAdapter() *Adapter {
	return &Adapter{
		client: relay.NewHTTPClient(),
		logger: slog.Default().With("component", "relay.responses"),
	}
}

// Type implements relay.Adapter.
func (a *Adapter) Type() store.ChannelType {
	return store.ChannelTypeOpenAIResponses
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

	a.logger.Debug("response request succeeded",
		"channel", ch.Name,
		"model", parsed.Model,
	)

	return &relay.Result{Response: ResponseToUnified(&parsed)}
}

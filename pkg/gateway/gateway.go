package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"octane/relay/pkg/audit"
	"octane/relay/pkg/auth"
	"octane/relay/pkg/health"
	"octane/relay/pkg/limits"
	"octane/relay/pkg/pricing"
	"octane/relay/pkg/proxy/middleware"
	"octane/relay/pkg/relay"
	"octane/relay/pkg/relay/anthropic"
	"octane/relay/pkg/relay/openai"
	"octane/relay/pkg/relay/responses"
	"octane/relay/pkg/routing"
	"octane/relay/pkg/store"
	"octane/relay/pkg/streaming"
	"octane/relay/pkg/telemetry/metrics"
	"octane/relay/pkg/tokens"
)

// maxBodySize bounds inbound request bodies.
const maxBodySize = 10 << 20

// accountingTimeout bounds the post-response bookkeeping writes.
const accountingTimeout = 5 * time.Second

// Deps are the collaborators a Gateway needs. Recorder and Metrics may
// be nil; the rest are required.
type Deps struct {
	Auth     *auth.Authenticator
	Limiter  *limits.Limiter
	Selector *routing.Selector
	Registry *relay.Registry
	Tracker  *health.Tracker
	Store    store.Store
	Pricing  *pricing.Calculator
	Recorder *audit.Recorder
	Metrics  *metrics.Collector
}

// Gateway handles proxied completion requests in all supported formats.
type Gateway struct {
	deps   Deps
	logger *slog.Logger
}

// New creates the gateway.
func New(deps Deps) *Gateway {
	return &Gateway{
		deps:   deps,
		logger: slog.Default().With("component", "gateway"),
	}
}

// callInfo carries the facts needed for accounting after the response is
// decided.
type callInfo struct {
	requestID string
	format    relay.Format
	key       *store.APIKeyInfo
	model     string
	channel   *store.Channel
	actual    string
	stream    bool
	status    int
	errMsg    string
	input     int
	output    int
	start     time.Time
}

// Handle processes one request whose body is in the given client format.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request, format relay.Format) {
	ctx := r.Context()
	info := &callInfo{
		requestID: middleware.GetRequestID(ctx),
		format:    format,
		start:     time.Now(),
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		g.fail(w, info, &relay.MalformedRequestError{Cause: err})
		return
	}

	unified, err := parseRequest(format, body)
	if err != nil {
		g.fail(w, info, err)
		return
	}
	info.model = unified.Model
	info.stream = unified.Stream

	key, err := g.deps.Auth.Validate(ctx, auth.ExtractKey(r))
	if err != nil {
		g.fail(w, info, err)
		return
	}
	info.key = key

	if err := limits.CheckQuota(key); err != nil {
		g.fail(w, info, err)
		return
	}
	if err := g.deps.Limiter.CheckRate(ctx, key); err != nil {
		g.fail(w, info, err)
		return
	}

	selection, err := g.deps.Selector.Select(ctx, unified.Model)
	if err != nil {
		g.logger.Error("channel selection failed",
			"request_id", info.requestID,
			"model", unified.Model,
			"error", err,
		)
		g.fail(w, info, fmt.Errorf("selection: %w", err))
		return
	}
	if selection == nil {
		g.fail(w, info, &relay.ModelNotFoundError{Model: unified.Model})
		return
	}
	info.channel = &selection.Channel.Channel
	info.actual = selection.ActualModel

	adapter := g.deps.Registry.Lookup(selection.Channel.Type)
	if adapter == nil {
		g.fail(w, info, fmt.Errorf("no adapter for channel type %q", selection.Channel.Type))
		return
	}

	result := adapter.Send(ctx, info.channel, unified, selection.ActualModel)

	// Health bookkeeping happens exactly once per logical request, here,
	// regardless of how the response is delivered.
	if result.Err != nil {
		g.deps.Tracker.RecordError(ctx, info.channel.ID, result.Err.Error())
		g.fail(w, info, result.Err)
		return
	}
	g.deps.Tracker.RecordSuccess(ctx, info.channel.ID)

	if result.Stream != nil {
		g.handleStream(ctx, w, info, unified, selection.Channel.Type, result.Stream)
		return
	}
	g.handleBuffered(w, info, unified, result.Response)
}

// handleBuffered converts a parsed upstream response to the client's
// format.
func (g *Gateway) handleBuffered(w http.ResponseWriter, info *callInfo, req *relay.UnifiedRequest, resp *relay.UnifiedResponse) {
	if resp.Usage.InputTokens == 0 {
		resp.Usage.InputTokens = estimateInput(req)
	}
	if resp.Usage.OutputTokens == 0 && resp.Content != "" {
		resp.Usage.OutputTokens = tokens.Estimate(resp.Content)
	}
	info.input = resp.Usage.InputTokens
	info.output = resp.Usage.OutputTokens
	info.status = http.StatusOK

	w.Header().Set("Content-Type", "application/json")
	if err := writeClientResponse(w, info.format, resp); err != nil {
		g.logger.Warn("failed to write response",
			"request_id", info.requestID,
			"error", err,
		)
	}
	g.account(info)
}

// handleStream pipes the upstream stream through the transformer. The
// transformer's completion callback performs accounting exactly once,
// whether the stream finished cleanly or the client disconnected.
func (g *Gateway) handleStream(ctx context.Context, w http.ResponseWriter, info *callInfo, req *relay.UnifiedRequest, sourceType store.ChannelType, upstream io.ReadCloser) {
	defer upstream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if g.deps.Metrics != nil {
		g.deps.Metrics.StreamStarted()
		defer g.deps.Metrics.StreamEnded()
	}

	tr := streaming.NewTransformer(sourceType, info.format, func(sc *streaming.StreamContext) {
		info.status = http.StatusOK
		info.input = sc.InputTokens
		if info.input == 0 {
			info.input = estimateInput(req)
		}
		info.output = sc.OutputTokens
		g.account(info)
	})

	if err := tr.Pipe(ctx, upstream, w); err != nil && ctx.Err() == nil {
		g.logger.Warn("stream transform ended with error",
			"request_id", info.requestID,
			"channel", info.channel.Name,
			"error", err,
		)
	}
}

// fail renders err to the client and accounts the failed call.
func (g *Gateway) fail(w http.ResponseWriter, info *callInfo, err error) {
	info.status = StatusFor(err)
	info.errMsg = err.Error()
	WriteError(w, info.format, err)
	g.account(info)
}

// account records usage, cost, metrics, and the audit trail for one
// finished call. Failures here are logged and swallowed; accounting must
// never alter the response already sent.
func (g *Gateway) account(info *callInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), accountingTimeout)
	defer cancel()

	var cost float64
	if info.actual != "" && info.input+info.output > 0 {
		cost = g.deps.Pricing.CostForModel(ctx, info.actual, info.input, info.output)
	}

	if info.key != nil && info.input+info.output > 0 {
		if err := g.deps.Store.AddUsedQuota(ctx, info.key.ID, int64(info.input+info.output)); err != nil {
			g.logger.Warn("failed to add used quota",
				"request_id", info.requestID,
				"api_key_id", info.key.ID,
				"error", err,
			)
		}
	}

	channelName := ""
	var channelID int64
	if info.channel != nil {
		channelName = info.channel.Name
		channelID = info.channel.ID
	}

	if g.deps.Metrics != nil {
		g.deps.Metrics.RecordRequest(string(info.format), channelName, info.status, time.Since(info.start))
		if info.input+info.output > 0 {
			g.deps.Metrics.RecordUsage(channelName, info.actual, info.input, info.output, cost)
		}
	}

	if g.deps.Recorder != nil {
		var userID, apiKeyID int64
		if info.key != nil {
			userID = info.key.UserID
			apiKeyID = info.key.ID
		}
		g.deps.Recorder.Record(&audit.Record{
			RequestID:    info.requestID,
			UserID:       userID,
			APIKeyID:     apiKeyID,
			Model:        info.model,
			ActualModel:  info.actual,
			ChannelID:    channelID,
			ChannelName:  channelName,
			Format:       string(info.format),
			Stream:       info.stream,
			StatusCode:   info.status,
			ErrorMessage: info.errMsg,
			InputTokens:  info.input,
			OutputTokens: info.output,
			Cost:         cost,
			Latency:      time.Since(info.start),
		})
	}
}

// parseRequest decodes the inbound body per the client format into the
// unified shape.
func parseRequest(format relay.Format, body []byte) (*relay.UnifiedRequest, error) {
	switch format {
	case relay.FormatOpenAIChat:
		req, err := openai.ParseRequest(body)
		if err != nil {
			return nil, err
		}
		return openai.ToUnified(req), nil
	case relay.FormatOpenAIResponses:
		req, err := responses.ParseRequest(body)
		if err != nil {
			return nil, err
		}
		return responses.ToUnified(req), nil
	case relay.FormatAnthropic:
		req, err := anthropic.ParseRequest(body)
		if err != nil {
			return nil, err
		}
		return anthropic.ToUnified(req), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// writeClientResponse renders a unified response in the client's format.
func writeClientResponse(w io.Writer, format relay.Format, resp *relay.UnifiedResponse) error {
	var payload any
	switch format {
	case relay.FormatOpenAIChat:
		payload = openai.ResponseFromUnified(resp)
	case relay.FormatOpenAIResponses:
		payload = responses.ResponseFromUnified(resp)
	case relay.FormatAnthropic:
		payload = anthropic.ResponseFromUnified(resp)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return json.NewEncoder(w).Encode(payload)
}

// estimateInput estimates prompt tokens from the request when the vendor
// did not report usage.
func estimateInput(req *relay.UnifiedRequest) int {
	contents := make([]string, 0, len(req.Messages))
	for _, msg := range req.Messages {
		contents = append(contents, msg.Content)
	}
	return tokens.EstimateMessages(contents)
}

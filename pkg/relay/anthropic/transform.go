package anthropic

import (
	"encoding/json"
	"fmt"

	"octane/relay/pkg/relay"
)

// DefaultMaxTokens is used when the client did not cap output; the
// Messages API requires max_tokens.
const DefaultMaxTokens = 4096

// Messages API wire types.

// Request is an Anthropic Messages request body.
type Request struct {
	Model         string    `json:"model"`
	Messages      []Message `json:"messages"`
	System        string    `json:"system,omitempty"`
	MaxTokens     int       `json:"max_tokens"`
	Temperature   *float64  `json:"temperature,omitempty"`
	TopP          *float64  `json:"top_p,omitempty"`
	StopSequences []string  `json:"stop_sequences,omitempty"`
	Stream        bool      `json:"stream,omitempty"`
}

// Message is a message in Anthropic format. Content is a string or a
// list of content blocks.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentBlock is one block of structured message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Response is an Anthropic Messages response body.
type Response struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason,omitempty"`
	Usage      *Usage         `json:"usage,omitempty"`
}

// Usage is Anthropic token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// StreamEvent is one typed event of the Messages SSE stream.
type StreamEvent struct {
	Type string `json:"type"`

	// message_start carries the initial message envelope.
	Message *Response `json:"message,omitempty"`

	// content_block_start / content_block_delta.
	Index        int             `json:"index,omitempty"`
	ContentBlock *ContentBlock   `json:"content_block,omitempty"`
	Delta        json.RawMessage `json:"delta,omitempty"`

	// message_delta carries cumulative usage.
	Usage *Usage `json:"usage,omitempty"`
}

// DeltaPayload is the delta of content_block_delta and message_delta
// events. The two event types share a field name with different shapes,
// so StreamEvent keeps it raw and callers decode into this.
type DeltaPayload struct {
	Type       string `json:"type,omitempty"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

// ParseRequest decodes an inbound Messages body.
func ParseRequest(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &relay.MalformedRequestError{Cause: err}
	}
	if req.Model == "" {
		return nil, &relay.MalformedRequestError{Cause: fmt.Errorf("model is required")}
	}
	return &req, nil
}

// ToUnified converts an inbound Messages request to the unified shape.
// The system field becomes a leading system message.
func ToUnified(req *Request) *relay.UnifiedRequest {
	unified := &relay.UnifiedRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}

	if req.System != "" {
		unified.Messages = append(unified.Messages, relay.Message{Role: "system", Content: req.System})
	}
	for _, msg := range req.Messages {
		unified.Messages = append(unified.Messages, relay.Message{
			Role:    msg.Role,
			Content: flattenContent(msg.Content),
		})
	}
	return unified
}

// FromUnified builds the outbound Messages request for an upstream call.
// System messages fold into the system field.
func FromUnified(req *relay.UnifiedRequest, actualModel string) *Request {
	out := &Request{
		Model:         actualModel,
		MaxTokens:     req.MaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = DefaultMaxTokens
	}

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if out.System != "" {
				out.System += "\n"
			}
			out.System += msg.Content
			continue
		}
		out.Messages = append(out.Messages, Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// ResponseToUnified converts an upstream Messages body to the unified
// shape. Stop reasons normalize to the unified vocabulary.
func ResponseToUnified(resp *Response) *relay.UnifiedResponse {
	unified := &relay.UnifiedResponse{
		ID:           resp.ID,
		Model:        resp.Model,
		FinishReason: FinishReasonFromStop(resp.StopReason),
	}
	for _, block := range resp.Content {
		if block.Type == "text" {
			unified.Content += block.Text
		}
	}
	if resp.Usage != nil {
		unified.Usage = relay.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}
	return unified
}

// ResponseFromUnified renders a unified response in Messages shape for
// the client.
func ResponseFromUnified(u *relay.UnifiedResponse) *Response {
	return &Response{
		ID:         relay.RebrandID(u.ID, relay.IDPrefixMessage),
		Type:       "message",
		Role:       "assistant",
		Model:      u.Model,
		StopReason: StopReasonFromFinish(u.FinishReason),
		Content:    []ContentBlock{{Type: "text", Text: u.Content}},
		Usage: &Usage{
			InputTokens:  u.Usage.InputTokens,
			OutputTokens: u.Usage.OutputTokens,
		},
	}
}

// FinishReasonFromStop maps an Anthropic stop_reason to the unified
// finish reason.
func FinishReasonFromStop(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "":
		return ""
	default:
		return stopReason
	}
}

// StopReasonFromFinish maps a unified finish reason to an Anthropic
// stop_reason.
func StopReasonFromFinish(finishReason string) string {
	switch finishReason {
	case "length":
		return "max_tokens"
	case "", "stop":
		return "end_turn"
	default:
		return finishReason
	}
}

func flattenContent(content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var text string
		for _, part := range v {
			m, ok := part.(map[string]any)
			if !ok {
				continue
			}
			if m["type"] == "text" {
				if s, ok := m["text"].(string); ok {
					text += s
				}
			}
		}
		return text
	default:
		return ""
	}
}

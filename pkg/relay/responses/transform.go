package responses

import (
	"encoding/json"
	"fmt"

	"octane/relay/pkg/relay"
)

// Responses API wire types.

// Request is an OpenAI Responses request body. Input is either a plain
// string or a list of role/content messages.
type Request struct {
	Model           string   `json:"model"`
	Input           any      `json:"input"`
	Instructions    string   `json:"instructions,omitempty"`
	MaxOutputTokens int      `json:"max_output_tokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	Stream          bool     `json:"stream,omitempty"`
}

// Response is an OpenAI Responses response body.
type Response struct {
	ID     string       `json:"id"`
	Object string       `json:"object"`
	Status string       `json:"status"`
	Model  string       `json:"model"`
	Output []OutputItem `json:"output"`
	Usage  *Usage       `json:"usage,omitempty"`
}

// OutputItem is one entry of the output list; only message items carry
// text content.
type OutputItem struct {
	Type    string        `json:"type"`
	ID      string        `json:"id,omitempty"`
	Role    string        `json:"role,omitempty"`
	Status  string        `json:"status,omitempty"`
	Content []ContentPart `json:"content,omitempty"`
}

// ContentPart is one content element of a message output item.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Usage is Responses token accounting.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// StreamEvent is one typed event of the Responses SSE stream. Only the
// fields the gateway consumes or emits are modeled.
type StreamEvent struct {
	Type        string      `json:"type"`
	Response    *Response   `json:"response,omitempty"`
	Item        *OutputItem `json:"item,omitempty"`
	ItemID      string      `json:"item_id,omitempty"`
	OutputIndex int         `json:"output_index,omitempty"`
	ContentIdx  int         `json:"content_index,omitempty"`
	Part        *ContentPart `json:"part,omitempty"`
	Delta       string      `json:"delta,omitempty"`
	Text        string      `json:"text,omitempty"`
}

// ParseRequest decodes an inbound Responses body.
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

// ToUnified converts an inbound Responses request to the unified shape.
// Instructions become a system message; string input becomes a single
// user message.
func ToUnified(req *Request) *relay.UnifiedRequest {
	unified := &relay.UnifiedRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxOutputTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
	}

	if req.Instructions != "" {
		unified.Messages = append(unified.Messages, relay.Message{Role: "system", Content: req.Instructions})
	}

	switch input := req.Input.(type) {
	case string:
		unified.Messages = append(unified.Messages, relay.Message{Role: "user", Content: input})
	case []any:
		for _, item := range input {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			role, _ := m["role"].(string)
			if role == "" {
				role = "user"
			}
			unified.Messages = append(unified.Messages, relay.Message{
				Role:    role,
				Content: flattenInputContent(m["content"]),
			})
		}
	}
	return unified
}

// FromUnified builds the outbound Responses request for an upstream call.
// System messages fold into instructions; the rest become input messages.
func FromUnified(req *relay.UnifiedRequest, actualModel string) *Request {
	out := &Request{
		Model:           actualModel,
		MaxOutputTokens: req.MaxTokens,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		Stream:          req.Stream,
	}

	var input []map[string]any
	for _, msg := range req.Messages {
		if msg.Role == "system" {
			if out.Instructions != "" {
				out.Instructions += "\n"
			}
			out.Instructions += msg.Content
			continue
		}
		input = append(input, map[string]any{"role": msg.Role, "content": msg.Content})
	}
	out.Input = input
	return out
}

// ResponseToUnified converts an upstream Responses body to the unified
// shape.
func ResponseToUnified(resp *Response) *relay.UnifiedResponse {
	unified := &relay.UnifiedResponse{
		ID:    resp.ID,
		Model: resp.Model,
	}

	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				unified.Content += part.Text
			}
		}
	}

	if resp.Status == "completed" || resp.Status == "" {
		unified.FinishReason = "stop"
	} else if resp.Status == "incomplete" {
		unified.FinishReason = "length"
	}

	if resp.Usage != nil {
		unified.Usage = relay.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
	}
	return unified
}

// ResponseFromUnified renders a unified response in Responses shape for
// the client.
func ResponseFromUnified(u *relay.UnifiedResponse) *Response {
	id := relay.RebrandID(u.ID, relay.IDPrefixResponse)
	status := "completed"
	if u.FinishReason == "length" {
		status = "incomplete"
	}

	return &Response{
		ID:     id,
		Object: "response",
		Status: status,
		Model:  u.Model,
		Output: []OutputItem{{
			Type:   "message",
			ID:     relay.RebrandID(u.ID, relay.IDPrefixMessage),
			Role:   "assistant",
			Status: "completed",
			Content: []ContentPart{{
				Type: "output_text",
				Text: u.Content,
			}},
		}},
		Usage: &Usage{
			InputTokens:  u.Usage.InputTokens,
			OutputTokens: u.Usage.OutputTokens,
			TotalTokens:  u.Usage.InputTokens + u.Usage.OutputTokens,
		},
	}
}

// flattenInputContent reduces Responses input content (string or typed
// part array) to plain text.
func flattenInputContent(content any) string {
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
			switch m["type"] {
			case "input_text", "output_text", "text":
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

package openai

import (
	"encoding/json"
	"fmt"
	"time"

	"octane/relay/pkg/relay"
)

// Chat Completions wire types.

// Request is an OpenAI Chat Completions request body.
type Request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// Message is a chat message in OpenAI format. Content is typed loosely
// because clients may send multimodal arrays; only text parts survive the
// conversion to the unified shape.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// Response is an OpenAI Chat Completions response body.
type Response struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ResponseMessage is the assistant message inside a choice.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage is OpenAI token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// StreamChunk is one chat.completion.chunk frame.
type StreamChunk struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
}

// StreamChoice is one delta inside a stream chunk.
type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// StreamDelta carries the incremental fields of a streamed message.
type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ParseRequest decodes an inbound Chat Completions body.
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

// ToUnified converts an inbound Chat Completions request to the unified
// shape. Multimodal content arrays collapse to their concatenated text
// parts.
func ToUnified(req *Request) *relay.UnifiedRequest {
	unified := &relay.UnifiedRequest{
		Model:       req.Model,
		Messages:    make([]relay.Message, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      req.Stream,
	}

	for _, msg := range req.Messages {
		unified.Messages = append(unified.Messages, relay.Message{
			Role:    msg.Role,
			Content: flattenContent(msg.Content),
		})
	}
	return unified
}

// FromUnified builds the outbound Chat Completions request for an
// upstream call, with the channel's actual model substituted.
func FromUnified(req *relay.UnifiedRequest, actualModel string) *Request {
	out := &Request{
		Model:       actualModel,
		Messages:    make([]Message, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      req.Stream,
	}
	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// ResponseToUnified converts an upstream Chat Completions response to the
// unified shape.
func ResponseToUnified(resp *Response) *relay.UnifiedResponse {
	unified := &relay.UnifiedResponse{
		ID:    resp.ID,
		Model: resp.Model,
	}
	if len(resp.Choices) > 0 {
		unified.Content = resp.Choices[0].Message.Content
		unified.FinishReason = resp.Choices[0].FinishReason
	}
	if resp.Usage != nil {
		unified.Usage = relay.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}
	return unified
}

// ResponseFromUnified renders a unified response in Chat Completions
// shape for the client.
func ResponseFromUnified(u *relay.UnifiedResponse) *Response {
	return &Response{
		ID:      relay.RebrandID(u.ID, relay.IDPrefixChatCompletion),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   u.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      ResponseMessage{Role: "assistant", Content: u.Content},
			FinishReason: finishReasonOrStop(u.FinishReason),
		}},
		Usage: &Usage{
			PromptTokens:     u.Usage.InputTokens,
			CompletionTokens: u.Usage.OutputTokens,
			TotalTokens:      u.Usage.InputTokens + u.Usage.OutputTokens,
		},
	}
}

func finishReasonOrStop(reason string) string {
	if reason == "" {
		return "stop"
	}
	return reason
}

// flattenContent reduces OpenAI message content (string or multimodal
// part array) to plain text.
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
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

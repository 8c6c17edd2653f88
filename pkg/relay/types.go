package relay

import (
	"context"
	"io"

	"octane/relay/pkg/store"
)

// Format identifies one of the supported wire formats, both for inbound
// client requests and for upstream channels.
type Format string

const (
	// FormatOpenAIChat is the OpenAI Chat Completions format.
	FormatOpenAIChat Format = "openai_chat"

	// FormatOpenAIResponses is the OpenAI Responses format.
	FormatOpenAIResponses Format = "openai_responses"

	// FormatAnthropic is the Anthropic Messages format.
	FormatAnthropic Format = "anthropic"
)

// FormatForChannel maps a channel type to its wire format.
// The two enumerations use the same values on purpose.
func FormatForChannel(t store.ChannelType) Format {
	return Format(t)
}

// Message is one turn of a conversation in the unified representation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// UnifiedRequest is the provider-agnostic request shape.
type UnifiedRequest struct {
	// Model is the model name; the gateway replaces the client's virtual
	// model with the channel's actual model before the upstream call.
	Model string `json:"model"`

	// Messages is the ordered conversation.
	Messages []Message `json:"messages"`

	// MaxTokens caps the generated output (0 = vendor default).
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature is the sampling temperature (nil = vendor default).
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP is the nucleus-sampling parameter (nil = vendor default).
	TopP *float64 `json:"top_p,omitempty"`

	// Stop lists stop sequences.
	Stop []string `json:"stop,omitempty"`

	// Stream requests a streaming response.
	Stream bool `json:"stream,omitempty"`
}

// Usage is token accounting for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// UnifiedResponse is the provider-agnostic response shape for buffered
// (non-streaming) calls.
type UnifiedResponse struct {
	// ID is the upstream response id, re-prefixed per target format on the
	// way out (the suffix is stable across formats).
	ID string `json:"id"`

	// Model is the model name the upstream reported.
	Model string `json:"model"`

	// Content is the generated text.
	Content string `json:"content"`

	// FinishReason is the unified finish reason: "stop", "length",
	// "content_filter", or "" when the vendor sent none.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage is the reported token usage; zero values mean the vendor
	// omitted usage and the caller should estimate.
	Usage Usage `json:"usage"`
}

// Result is the outcome of one adapter call. Exactly one of Response,
// Stream, or Err is set.
type Result struct {
	// Response is the parsed upstream reply for non-streaming calls.
	Response *UnifiedResponse

	// Stream is the raw upstream body for streaming calls, handed to the
	// streaming transformer unparsed.
	Stream io.ReadCloser

	// Err is the failure, already classified into the error taxonomy.
	Err error
}

// Adapter sends a unified request to one vendor's API.
type Adapter interface {
	// Send performs the upstream call described by req against ch, with
	// actualModel substituted for the client's virtual model name.
	// The channel's timeout and retry policy are applied inside; streaming
	// requests are never retried.
	Send(ctx context.Context, ch *store.Channel, req *UnifiedRequest, actualModel string) *Result

	// Type returns the channel type this adapter serves.
	Type() store.ChannelType
}

// Registry is the closed dispatch table from channel type to adapter,
// built once at startup.
type Registry struct {
	adapters map[store.ChannelType]Adapter
}

// NewRegistry builds a registry from the given adapters.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[store.ChannelType]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Type()] = a
	}
	return &Registry{adapters: m}
}

// Lookup returns the adapter for a channel type, or nil when the type is
// unknown.
func (r *Registry) Lookup(t store.ChannelType) Adapter {
	return r.adapters[t]
}

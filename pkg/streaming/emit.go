package streaming

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"octane/relay/pkg/relay"
	"octane/relay/pkg/relay/anthropic"
	"octane/relay/pkg/relay/openai"
	"octane/relay/pkg/relay/responses"
)

// emitter renders frames in one target wire format. Each method writes
// complete SSE events; init runs once before the first delta, complete
// runs once at stream end.
type emitter interface {
	init(w io.Writer, c *StreamContext) error
	delta(w io.Writer, c *StreamContext, text string) error
	complete(w io.Writer, c *StreamContext) error
}

// emitterFor returns the emitter for a target format, or nil for the
// Anthropic-to-Anthropic passthrough decided by the caller.
func emitterFor(target relay.Format) emitter {
	switch target {
	case relay.FormatOpenAIChat:
		return &openAIChatEmitter{}
	case relay.FormatOpenAIResponses:
		return &responsesEmitter{}
	case relay.FormatAnthropic:
		return &anthropicEmitter{}
	}
	return nil
}

// writeData writes one "data: <json>" SSE event.
func writeData(w io.Writer, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", body)
	return err
}

// writeEvent writes one named SSE event, the Anthropic framing.
func writeEvent(w io.Writer, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, body)
	return err
}

// openAIChatEmitter renders chat.completion.chunk frames terminated by
// the literal [DONE] sentinel.
type openAIChatEmitter struct {
	created int64
}

func (e *openAIChatEmitter) chunk(c *StreamContext, choice openai.StreamChoice, usage *openai.Usage) openai.StreamChunk {
	if e.created == 0 {
		e.created = time.Now().Unix()
	}
	return openai.StreamChunk{
		ID:      relay.RebrandID(c.ID, relay.IDPrefixChatCompletion),
		Object:  "chat.completion.chunk",
		Created: e.created,
		Model:   c.Model,
		Choices: []openai.StreamChoice{choice},
		Usage:   usage,
	}
}

func (e *openAIChatEmitter) init(w io.Writer, c *StreamContext) error {
	// The first frame carries a role-only delta.
	return writeData(w, e.chunk(c, openai.StreamChoice{
		Delta: openai.StreamDelta{Role: "assistant"},
	}, nil))
}

func (e *openAIChatEmitter) delta(w io.Writer, c *StreamContext, text string) error {
	return writeData(w, e.chunk(c, openai.StreamChoice{
		Delta: openai.StreamDelta{Content: text},
	}, nil))
}

func (e *openAIChatEmitter) complete(w io.Writer, c *StreamContext) error {
	finish := c.FinishReason
	if finish == "" {
		finish = "stop"
	}
	err := writeData(w, e.chunk(c, openai.StreamChoice{
		FinishReason: finish,
	}, &openai.Usage{
		PromptTokens:     c.InputTokens,
		CompletionTokens: c.OutputTokens,
		TotalTokens:      c.InputTokens + c.OutputTokens,
	}))
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, "data: [DONE]\n\n")
	return err
}

// responsesEmitter renders the typed Responses event chain, synthesizing
// the item/part granularity the source never sent.
type responsesEmitter struct{}

func (e *responsesEmitter) envelope(c *StreamContext, status string, usage *responses.Usage) *responses.Response {
	resp := &responses.Response{
		ID:     relay.RebrandID(c.ID, relay.IDPrefixResponse),
		Object: "response",
		Status: status,
		Model:  c.Model,
		Usage:  usage,
	}
	if status != "in_progress" {
		resp.Output = []responses.OutputItem{e.item(c, "completed")}
	}
	return resp
}

func (e *responsesEmitter) item(c *StreamContext, status string) responses.OutputItem {
	item := responses.OutputItem{
		Type:   "message",
		ID:     relay.RebrandID(c.ID, relay.IDPrefixMessage),
		Role:   "assistant",
		Status: status,
	}
	if status == "completed" {
		item.Content = []responses.ContentPart{{Type: "output_text", Text: c.Text}}
	}
	return item
}

func (e *responsesEmitter) init(w io.Writer, c *StreamContext) error {
	if err := writeData(w, responses.StreamEvent{
		Type:     "response.created",
		Response: e.envelope(c, "in_progress", nil),
	}); err != nil {
		return err
	}

	item := e.item(c, "in_progress")
	if err := writeData(w, responses.StreamEvent{
		Type: "response.output_item.added",
		Item: &item,
	}); err != nil {
		return err
	}

	return writeData(w, responses.StreamEvent{
		Type:   "response.content_part.added",
		ItemID: item.ID,
		Part:   &responses.ContentPart{Type: "output_text"},
	})
}

func (e *responsesEmitter) delta(w io.Writer, c *StreamContext, text string) error {
	return writeData(w, responses.StreamEvent{
		Type:   "response.output_text.delta",
		ItemID: relay.RebrandID(c.ID, relay.IDPrefixMessage),
		Delta:  text,
	})
}

func (e *responsesEmitter) complete(w io.Writer, c *StreamContext) error {
	itemID := relay.RebrandID(c.ID, relay.IDPrefixMessage)

	if err := writeData(w, responses.StreamEvent{
		Type:   "response.output_text.done",
		ItemID: itemID,
		Text:   c.Text,
	}); err != nil {
		return err
	}

	if err := writeData(w, responses.StreamEvent{
		Type:   "response.content_part.done",
		ItemID: itemID,
		Part:   &responses.ContentPart{Type: "output_text", Text: c.Text},
	}); err != nil {
		return err
	}

	item := e.item(c, "completed")
	if err := writeData(w, responses.StreamEvent{
		Type: "response.output_item.done",
		Item: &item,
	}); err != nil {
		return err
	}

	status := "completed"
	if c.FinishReason == "length" {
		status = "incomplete"
	}
	return writeData(w, responses.StreamEvent{
		Type: "response.completed",
		Response: e.envelope(c, status, &responses.Usage{
			InputTokens:  c.InputTokens,
			OutputTokens: c.OutputTokens,
			TotalTokens:  c.InputTokens + c.OutputTokens,
		}),
	})
}

// anthropicEmitter renders the Messages event chain using named SSE
// events.
type anthropicEmitter struct{}

func (e *anthropicEmitter) init(w io.Writer, c *StreamContext) error {
	if err := writeEvent(w, "message_start", anthropic.StreamEvent{
		Type: "message_start",
		Message: &anthropic.Response{
			ID:      relay.RebrandID(c.ID, relay.IDPrefixMessage),
			Type:    "message",
			Role:    "assistant",
			Model:   c.Model,
			Content: []anthropic.ContentBlock{},
			Usage:   &anthropic.Usage{InputTokens: c.InputTokens},
		},
	}); err != nil {
		return err
	}

	return writeEvent(w, "content_block_start", anthropic.StreamEvent{
		Type:         "content_block_start",
		ContentBlock: &anthropic.ContentBlock{Type: "text"},
	})
}

func (e *anthropicEmitter) delta(w io.Writer, c *StreamContext, text string) error {
	payload, err := json.Marshal(anthropic.DeltaPayload{Type: "text_delta", Text: text})
	if err != nil {
		return err
	}
	return writeEvent(w, "content_block_delta", anthropic.StreamEvent{
		Type:  "content_block_delta",
		Delta: payload,
	})
}

func (e *anthropicEmitter) complete(w io.Writer, c *StreamContext) error {
	if err := writeEvent(w, "content_block_stop", anthropic.StreamEvent{
		Type: "content_block_stop",
	}); err != nil {
		return err
	}

	payload, err := json.Marshal(anthropic.DeltaPayload{
		StopReason: anthropic.StopReasonFromFinish(c.FinishReason),
	})
	if err != nil {
		return err
	}
	if err := writeEvent(w, "message_delta", anthropic.StreamEvent{
		Type:  "message_delta",
		Delta: payload,
		Usage: &anthropic.Usage{OutputTokens: c.OutputTokens},
	}); err != nil {
		return err
	}

	return writeEvent(w, "message_stop", anthropic.StreamEvent{
		Type: "message_stop",
	})
}

package streaming

import (
	"encoding/json"
	"fmt"

	"octane/relay/pkg/relay"
	"octane/relay/pkg/relay/anthropic"
	"octane/relay/pkg/relay/openai"
	"octane/relay/pkg/relay/responses"
	"octane/relay/pkg/store"
)

// frame is the format-neutral extraction of one upstream SSE event.
// A nil frame from an extractor means the event carries nothing the
// transform needs (ping, content_block_start, ...).
type frame struct {
	id           string
	model        string
	delta        string
	finishReason string
	usage        *relay.Usage

	// terminal marks the source's own end-of-stream event.
	terminal bool
}

// extractFrame decodes one data payload according to the source format.
func extractFrame(source store.ChannelType, data []byte) (*frame, error) {
	switch source {
	case store.ChannelTypeOpenAIChat:
		return extractOpenAIChat(data)
	case store.ChannelTypeOpenAIResponses:
		return extractResponses(data)
	case store.ChannelTypeAnthropic:
		return extractAnthropic(data)
	}
	return nil, fmt.Errorf("unknown source type %q", source)
}

func extractOpenAIChat(data []byte) (*frame, error) {
	var chunk openai.StreamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return nil, err
	}

	f := &frame{id: chunk.ID, model: chunk.Model}
	if len(chunk.Choices) > 0 {
		f.delta = chunk.Choices[0].Delta.Content
		f.finishReason = chunk.Choices[0].FinishReason
	}
	if chunk.Usage != nil {
		f.usage = &relay.Usage{
			InputTokens:  chunk.Usage.PromptTokens,
			OutputTokens: chunk.Usage.CompletionTokens,
		}
	}
	return f, nil
}

func extractResponses(data []byte) (*frame, error) {
	var ev responses.StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "response.created", "response.in_progress":
		if ev.Response == nil {
			return nil, nil
		}
		return &frame{id: ev.Response.ID, model: ev.Response.Model}, nil

	case "response.output_text.delta":
		return &frame{delta: ev.Delta}, nil

	case "response.completed", "response.incomplete":
		f := &frame{terminal: true}
		if ev.Response != nil {
			f.id = ev.Response.ID
			f.model = ev.Response.Model
			if ev.Response.Status == "incomplete" {
				f.finishReason = "length"
			} else {
				f.finishReason = "stop"
			}
			if ev.Response.Usage != nil {
				f.usage = &relay.Usage{
					InputTokens:  ev.Response.Usage.InputTokens,
					OutputTokens: ev.Response.Usage.OutputTokens,
				}
			}
		}
		return f, nil
	}

	// output_item.added, content_part.*, ping: nothing to extract.
	return nil, nil
}

func extractAnthropic(data []byte) (*frame, error) {
	var ev anthropic.StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return nil, nil
		}
		f := &frame{id: ev.Message.ID, model: ev.Message.Model}
		if ev.Message.Usage != nil {
			f.usage = &relay.Usage{InputTokens: ev.Message.Usage.InputTokens}
		}
		return f, nil

	case "content_block_delta":
		var delta anthropic.DeltaPayload
		if len(ev.Delta) > 0 {
			if err := json.Unmarshal(ev.Delta, &delta); err != nil {
				return nil, err
			}
		}
		return &frame{delta: delta.Text}, nil

	case "message_delta":
		var delta anthropic.DeltaPayload
		if len(ev.Delta) > 0 {
			if err := json.Unmarshal(ev.Delta, &delta); err != nil {
				return nil, err
			}
		}
		f := &frame{finishReason: anthropic.FinishReasonFromStop(delta.StopReason)}
		if ev.Usage != nil {
			f.usage = &relay.Usage{OutputTokens: ev.Usage.OutputTokens}
		}
		return f, nil

	case "message_stop":
		return &frame{terminal: true}, nil
	}

	// content_block_start, content_block_stop, ping: nothing to extract.
	return nil, nil
}

package responses

import (
	"testing"

	"octane/relay/pkg/relay"
)

func TestToUnifiedStringInput(t *testing.T) {
	req, err := ParseRequest([]byte(`{"model":"gpt-4o","input":"tell me a joke","instructions":"be brief"}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}

	unified := ToUnified(req)
	if len(unified.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(unified.Messages))
	}
	if unified.Messages[0].Role != "system" || unified.Messages[0].Content != "be brief" {
		t.Errorf("instructions message = %+v", unified.Messages[0])
	}
	if unified.Messages[1].Role != "user" || unified.Messages[1].Content != "tell me a joke" {
		t.Errorf("input message = %+v", unified.Messages[1])
	}
}

func TestToUnifiedStructuredInput(t *testing.T) {
	req, err := ParseRequest([]byte(`{
		"model": "gpt-4o",
		"max_output_tokens": 128,
		"input": [
			{"role": "user", "content": "first"},
			{"role": "assistant", "content": [{"type": "output_text", "text": "second"}]},
			{"role": "user", "content": [{"type": "input_text", "text": "third"}]}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}

	unified := ToUnified(req)
	if unified.MaxTokens != 128 {
		t.Errorf("max tokens = %d", unified.MaxTokens)
	}
	want := []relay.Message{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "second"},
		{Role: "user", Content: "third"},
	}
	if len(unified.Messages) != len(want) {
		t.Fatalf("messages = %d, want %d", len(unified.Messages), len(want))
	}
	for i, msg := range want {
		if unified.Messages[i] != msg {
			t.Errorf("message %d = %+v, want %+v", i, unified.Messages[i], msg)
		}
	}
}

func TestFromUnifiedFoldsSystemIntoInstructions(t *testing.T) {
	unified := &relay.UnifiedRequest{
		Model: "fast",
		Messages: []relay.Message{
			{Role: "system", Content: "rule one"},
			{Role: "user", Content: "hello"},
			{Role: "system", Content: "rule two"},
		},
		MaxTokens: 64,
	}

	out := FromUnified(unified, "gpt-4o")
	if out.Model != "gpt-4o" {
		t.Errorf("model = %q", out.Model)
	}
	if out.Instructions != "rule one\nrule two" {
		t.Errorf("instructions = %q", out.Instructions)
	}
	input, ok := out.Input.([]map[string]any)
	if !ok || len(input) != 1 {
		t.Fatalf("input = %#v", out.Input)
	}
	if input[0]["role"] != "user" || input[0]["content"] != "hello" {
		t.Errorf("input message = %v", input[0])
	}
	if out.MaxOutputTokens != 64 {
		t.Errorf("max_output_tokens = %d", out.MaxOutputTokens)
	}
}

func TestResponseToUnifiedStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   string
	}{
		{"completed", "completed", "stop"},
		{"incomplete", "incomplete", "length"},
		{"missing status", "", "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unified := ResponseToUnified(&Response{
				ID:     "resp_1",
				Status: tt.status,
				Output: []OutputItem{{
					Type:    "message",
					Content: []ContentPart{{Type: "output_text", Text: "x"}},
				}},
			})
			if unified.FinishReason != tt.want {
				t.Errorf("finish reason = %q, want %q", unified.FinishReason, tt.want)
			}
		})
	}
}

func TestResponseToUnifiedSkipsNonMessageItems(t *testing.T) {
	unified := ResponseToUnified(&Response{
		ID:     "resp_2",
		Status: "completed",
		Output: []OutputItem{
			{Type: "reasoning"},
			{Type: "message", Content: []ContentPart{
				{Type: "output_text", Text: "Hel"},
				{Type: "output_text", Text: "lo"},
			}},
		},
		Usage: &Usage{InputTokens: 7, OutputTokens: 2},
	})

	if unified.Content != "Hello" {
		t.Errorf("content = %q, want Hello", unified.Content)
	}
	if unified.Usage.InputTokens != 7 || unified.Usage.OutputTokens != 2 {
		t.Errorf("usage = %+v", unified.Usage)
	}
}

func TestResponseFromUnified(t *testing.T) {
	resp := ResponseFromUnified(&relay.UnifiedResponse{
		ID:           "chatcmpl-abc",
		Model:        "gpt-4o",
		Content:      "done",
		FinishReason: "length",
		Usage:        relay.Usage{InputTokens: 4, OutputTokens: 6},
	})

	if resp.ID != "resp_abc" {
		t.Errorf("id = %q, want resp_abc", resp.ID)
	}
	if resp.Status != "incomplete" {
		t.Errorf("status = %q, want incomplete for truncated output", resp.Status)
	}
	if len(resp.Output) != 1 || resp.Output[0].Content[0].Text != "done" {
		t.Fatalf("output = %+v", resp.Output)
	}
	if resp.Usage.TotalTokens != 10 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

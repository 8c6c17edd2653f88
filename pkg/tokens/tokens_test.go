package tokens

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"short ascii", "Hel", 1},
		{"two chars", "lo", 1},
		{"eight ascii", "abcdefgh", 2},
		{"rounds up", "abcde", 2},
		{"han only", "你好世界", 2},
		{"kana", "こんにちは", 3},
		{"hangul", "안녕하세요", 3},
		{"mixed", "hello 世界", 2 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateMessages(t *testing.T) {
	// Two messages of one token each plus per-message overhead.
	got := EstimateMessages([]string{"hi", "yo"})
	want := (1 + 3) * 2
	if got != want {
		t.Errorf("EstimateMessages = %d, want %d", got, want)
	}
}

// Package tokens estimates token counts for billing fallback when a
// vendor response omits usage. The heuristic is character-class based:
// CJK scripts average about two characters per token, everything else
// about four.
package tokens

import "unicode"

// cjkTables covers the scripts counted at the denser ratio.
var cjkTables = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
}

// Estimate returns the approximate token count of text.
func Estimate(text string) int {
	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return ceilDiv(cjk, 2) + ceilDiv(other, 4)
}

// EstimateMessages sums the estimate over message contents, adding a
// small per-message overhead for role framing.
func EstimateMessages(contents []string) int {
	const perMessageOverhead = 3

	total := 0
	for _, content := range contents {
		total += Estimate(content) + perMessageOverhead
	}
	return total
}

func isCJK(r rune) bool {
	for _, table := range cjkTables {
		if unicode.Is(table, r) {
			return true
		}
	}
	return false
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

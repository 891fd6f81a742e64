// Package spam scores chat messages with a fixed point heuristic.
package spam

import "strings"

const (
	Threshold = 60

	emojiLow        = 5
	emojiHigh       = 10
	emojiLowPoints  = 30
	emojiHighPoints = 50
	wordPoints      = 40
	linkLimit       = 3
	linkPoints      = 40
)

// Words each add wordPoints once when present anywhere in the text.
var Words = []string{"博彩", "首存", "网址", "点击链接", "刷单", "兼职", "AV", "裸聊"}

// Score returns the spam score of text.
func Score(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	score := 0

	emoji := countEmoji(text)
	if emoji > emojiLow {
		score += emojiLowPoints
	}
	if emoji > emojiHigh {
		score += emojiHighPoints
	}

	for _, word := range Words {
		if strings.Contains(text, word) {
			score += wordPoints
		}
	}

	if strings.Count(text, "http")+strings.Count(text, "t.me") > linkLimit {
		score += linkPoints
	}

	return score
}

func IsSpam(text string) bool {
	return Score(text) >= Threshold
}

// countEmoji counts code points in the Emoticons block U+1F600..U+1F64F.
func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		if r >= 0x1F600 && r <= 0x1F64F {
			n++
		}
	}
	return n
}

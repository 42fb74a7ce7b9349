package tokenizer

import (
	"unicode/utf8"
)

// 估算器的每条消息开销
const (
	messageOverhead      = 4
	conversationOverhead = 3
)

// EstimatorTokenizer 按字符数估算 token：CJK 约 1.5 字符/token，其余约 4 字符/token。
type EstimatorTokenizer struct {
	model     string
	maxTokens int
}

// NewEstimatorTokenizer 创建估算器。maxTokens <= 0 时取 4096。
func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens}
}

func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}

	estimated := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

func (e *EstimatorTokenizer) CountMessages(messages []Message) (int, error) {
	total := conversationOverhead
	for _, msg := range messages {
		n, err := e.CountTokens(msg.Content)
		if err != nil {
			return 0, err
		}
		total += n + messageOverhead
	}
	return total, nil
}

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator" }

// isCJK 判断字符是否属于 CJK 区段。
func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) || // Halfwidth and Fullwidth Forms
		(r >= 0x3040 && r <= 0x30FF) || // Hiragana, Katakana
		(r >= 0xAC00 && r <= 0xD7AF) // Hangul Syllables
}

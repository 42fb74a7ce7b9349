package tokenizer

import (
	"fmt"
	"strings"
	"sync"
)

// Tokenizer 是统一的 token 计数接口。
type Tokenizer interface {
	// CountTokens 返回文本的 token 数。
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数，包含每条消息的角色与分隔开销。
	CountMessages(messages []Message) (int, error)

	// MaxTokens 返回模型的上下文长度。
	MaxTokens() int

	// Name 返回分词器名称。
	Name() string
}

// Message 是计数用的轻量消息，避免与 llm 包循环依赖。
type Message struct {
	Role    string
	Content string
}

var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
)

// RegisterTokenizer 为模型名（或模型名前缀）注册分词器。
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// GetTokenizer 返回为模型注册的分词器；精确匹配优先，否则取最长前缀匹配。
func GetTokenizer(model string) (Tokenizer, error) {
	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	if t, ok := modelTokenizers[model]; ok {
		return t, nil
	}

	var (
		best    Tokenizer
		bestLen int
	)
	for prefix, t := range modelTokenizers {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = t, len(prefix)
		}
	}
	if best != nil {
		return best, nil
	}
	return nil, fmt.Errorf("no tokenizer registered for model: %s", model)
}

// GetTokenizerOrEstimator 返回已注册的分词器，未注册时退回估算器。
func GetTokenizerOrEstimator(model string) Tokenizer {
	t, err := GetTokenizer(model)
	if err != nil {
		return NewEstimatorTokenizer(model, 0)
	}
	return t
}

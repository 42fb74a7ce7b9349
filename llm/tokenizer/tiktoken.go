package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// modelEncodings 把 OpenAI 模型前缀映射到 tiktoken 编码与上下文大小。
var modelEncodings = map[string]encodingInfo{
	"gpt-5":         {"o200k_base", 400000},
	"gpt-4.1":       {"o200k_base", 1047576},
	"gpt-4o":        {"o200k_base", 128000},
	"gpt-4-turbo":   {"cl100k_base", 128000},
	"gpt-4":         {"cl100k_base", 8192},
	"gpt-3.5-turbo": {"cl100k_base", 16385},
	"o1":            {"o200k_base", 200000},
	"o3":            {"o200k_base", 200000},
	"o4-mini":       {"o200k_base", 200000},
}

// TiktokenTokenizer 为 OpenAI 系列模型提供精确计数。编码表在首次使用时加载。
type TiktokenTokenizer struct {
	model string
	info  encodingInfo

	once    sync.Once
	enc     *tiktoken.Tiktoken
	initErr error
}

// NewTiktokenTokenizer 按最长前缀选择编码，未知模型使用 cl100k_base。
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	info := encodingInfo{"cl100k_base", 8192}
	bestLen := 0
	for prefix, i := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			info, bestLen = i, len(prefix)
		}
	}
	return &TiktokenTokenizer{model: model, info: info}
}

func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.info.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.info.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountMessages(messages []Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	// <|start|>role\ncontent<|end|>\n 每条约 4 个 token，回复引导 3 个
	total := conversationOverhead
	for _, msg := range messages {
		total += messageOverhead + len(t.enc.Encode(msg.Role, nil, nil)) + len(t.enc.Encode(msg.Content, nil, nil))
	}
	return total, nil
}

func (t *TiktokenTokenizer) MaxTokens() int { return t.info.maxTokens }

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.info.encoding)
}

// RegisterOpenAITokenizers 为所有已知 OpenAI 模型前缀注册 tiktoken 分词器。
func RegisterOpenAITokenizers() {
	for model := range modelEncodings {
		RegisterTokenizer(model, NewTiktokenTokenizer(model))
	}
}

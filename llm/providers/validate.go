package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/tokenizer"
	"github.com/BaSui01/chatbridge/types"
)

// MaxAttachmentBytes 是单个附件解码后的上限。
const MaxAttachmentBytes = 20 << 20

// Validate 在任何 I/O 之前校验请求，失败时返回 *types.ValidationError。
func (b *Base) Validate(ctx context.Context, req *llm.SendRequest, model string) error {
	if req == nil || (strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0) {
		return types.NewValidationError(types.ErrValidationRequired, "message is required", "message", nil)
	}

	caps := b.Capabilities()
	for i, a := range req.Attachments {
		field := fmt.Sprintf("attachments[%d]", i)
		if !caps.Supports(a) {
			return types.NewValidationError(types.ErrValidationUnsupportedFormat,
				fmt.Sprintf("%s does not accept %s attachments", b.Name(), a.Type), field, a.MimeType)
		}
		if size := a.DecodedSize(); size > MaxAttachmentBytes {
			return types.NewValidationError(types.ErrValidationAttachmentTooLarge,
				fmt.Sprintf("attachment is %d bytes, limit is %d", size, MaxAttachmentBytes), field, size)
		}
	}

	if caps.ContextWindow > 0 {
		tokens, err := tokenizer.GetTokenizerOrEstimator(model).CountMessages(tokenizerMessages(req))
		if err == nil && tokens > caps.ContextWindow {
			return types.NewValidationError(types.ErrValidationMessageTooLong,
				fmt.Sprintf("prompt is about %d tokens, context window is %d", tokens, caps.ContextWindow), "message", tokens)
		}
	}

	if b.ResolveAPIKey(ctx) == "" {
		return types.NewValidationError(types.ErrValidationAPIKeyInvalid,
			fmt.Sprintf("%s API key is not configured", b.Name()), "api_key", nil)
	}
	return nil
}

func tokenizerMessages(req *llm.SendRequest) []tokenizer.Message {
	out := make([]tokenizer.Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		out = append(out, tokenizer.Message{Role: string(RoleSystem), Content: req.SystemPrompt})
	}
	for _, t := range BuildTurns(req) {
		out = append(out, tokenizer.Message{Role: string(t.Role), Content: t.Content})
	}
	return out
}

package providers

import (
	"strings"

	"github.com/BaSui01/chatbridge/types"
)

// AttachmentEncoding 决定附件负载的线上形式。
type AttachmentEncoding int

const (
	// EncodingDataURI 形如 data:<mime>;base64,<payload>。
	EncodingDataURI AttachmentEncoding = iota
	// EncodingRawBase64 只发送裸 base64。
	EncodingRawBase64
)

// EncodeAttachment 返回附件负载，必要时剥离或补齐 data URI 前缀。
// 没有 base64 负载时返回原始 URI。
func EncodeAttachment(a types.Attachment, enc AttachmentEncoding) string {
	payload := a.Base64
	if payload == "" {
		return a.URI
	}
	raw := payload
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			raw = payload[i+1:]
		}
	}
	if enc == EncodingRawBase64 {
		return raw
	}
	mime := a.MimeType
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + raw
}

// OpenAICompatContent 把一轮对话转换为 OpenAI 兼容的 content：
// 无附件时为纯字符串，否则为文本段加图片/文件段。
func OpenAICompatContent(t Turn) any {
	if len(t.Attachments) == 0 {
		return t.Content
	}
	parts := make([]OpenAICompatContentPart, 0, len(t.Attachments)+1)
	if t.Content != "" {
		parts = append(parts, OpenAICompatContentPart{Type: "text", Text: t.Content})
	}
	for _, a := range t.Attachments {
		if a.IsImage() {
			parts = append(parts, OpenAICompatContentPart{
				Type:     "image_url",
				ImageURL: &OpenAICompatImageURL{URL: EncodeAttachment(a, EncodingDataURI)},
			})
			continue
		}
		parts = append(parts, OpenAICompatContentPart{
			Type: "file",
			File: &OpenAICompatFile{Filename: a.FileName, FileData: EncodeAttachment(a, EncodingDataURI)},
		})
	}
	return parts
}

// OpenAICompatMessages 把对话轮转换为 OpenAI 兼容消息。
func OpenAICompatMessages(turns []Turn) []OpenAICompatMessage {
	out := make([]OpenAICompatMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, OpenAICompatMessage{Role: string(t.Role), Content: OpenAICompatContent(t)})
	}
	return out
}

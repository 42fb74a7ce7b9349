package providers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatbridge/types"
)

func TestEncodeAttachment(t *testing.T) {
	doc := types.Attachment{Type: types.AttachmentDocument, MimeType: "application/pdf", Base64: "XYZ"}

	assert.Equal(t, "XYZ", EncodeAttachment(doc, EncodingRawBase64))
	assert.Equal(t, "data:application/pdf;base64,XYZ", EncodeAttachment(doc, EncodingDataURI))

	prefixed := doc
	prefixed.Base64 = "data:application/pdf;base64,XYZ"
	assert.Equal(t, "XYZ", EncodeAttachment(prefixed, EncodingRawBase64))
	assert.Equal(t, "data:application/pdf;base64,XYZ", EncodeAttachment(prefixed, EncodingDataURI))

	remote := types.Attachment{Type: types.AttachmentImage, URI: "https://example.com/cat.png"}
	assert.Equal(t, "https://example.com/cat.png", EncodeAttachment(remote, EncodingDataURI))

	untyped := types.Attachment{Type: types.AttachmentDocument, Base64: "QQ=="}
	assert.Equal(t, "data:application/octet-stream;base64,QQ==", EncodeAttachment(untyped, EncodingDataURI))
}

func TestOpenAICompatMessages_Parts(t *testing.T) {
	turns := []Turn{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "what is this?", Attachments: []types.Attachment{
			{Type: types.AttachmentImage, MimeType: "image/png", Base64: "AAAA"},
			{Type: types.AttachmentDocument, MimeType: "application/pdf", Base64: "XYZ", FileName: "a.pdf"},
		}},
	}

	data, err := json.Marshal(OpenAICompatMessages(turns))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"role":"system","content":"be brief"},
		{"role":"user","content":[
			{"type":"text","text":"what is this?"},
			{"type":"image_url","image_url":{"url":"data:image/png;base64,AAAA"}},
			{"type":"file","file":{"filename":"a.pdf","file_data":"data:application/pdf;base64,XYZ"}}
		]}
	]`, string(data))
}

func TestContentText(t *testing.T) {
	assert.Equal(t, "plain", ContentText("plain"))
	assert.Equal(t, "ab", ContentText([]OpenAICompatContentPart{{Type: "text", Text: "a"}, {Type: "text", Text: "b"}}))
	assert.Equal(t, "ab", ContentText([]any{map[string]any{"type": "text", "text": "a"}, map[string]any{"text": "b"}}))
	assert.Empty(t, ContentText(nil))
}

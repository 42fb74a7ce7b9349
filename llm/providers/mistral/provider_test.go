package mistral

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/testutil"
	"github.com/BaSui01/chatbridge/testutil/fixtures"
	"github.com/BaSui01/chatbridge/types"
)

func TestNewMistralProvider(t *testing.T) {
	p := NewMistralProvider(providers.BaseProviderConfig{APIKey: "k"}, nil)
	assert.Equal(t, "mistral", p.Name())
	assert.Equal(t, "https://api.mistral.ai/v1/chat/completions", p.Endpoint(""))
	assert.True(t, p.Capabilities().SupportsImages)
	assert.False(t, p.Capabilities().SupportsDocuments)
}

func TestMistral_StreamWithImage(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithSSE(fixtures.OpenAICompatFrames("a cat")...)
	p := NewMistralProvider(providers.BaseProviderConfig{APIKey: "k", BaseURL: vendor.URL()}, nil)
	p.StreamClient = vendor.Client()

	s, err := p.StreamMessage(testutil.TestContext(t), &llm.SendRequest{
		Message:     "what is this?",
		Attachments: []types.Attachment{{Type: types.AttachmentImage, MimeType: "image/jpeg", Base64: "QUJD"}},
	})
	require.NoError(t, err)
	text, err := s.Collect(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, "a cat", text)

	msgs := vendor.LastRequest().JSON(t)["messages"].([]any)
	parts := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/jpeg;base64,QUJD", image["url"])
}

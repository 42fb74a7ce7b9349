package cohere

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatbridge/llm"
	"github.com/BaSui01/chatbridge/llm/providers"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/testutil"
	"github.com/BaSui01/chatbridge/testutil/fixtures"
	"github.com/BaSui01/chatbridge/types"
)

func newTestProvider(vendor *testutil.FakeVendor) *CohereProvider {
	p := NewCohereProvider(providers.BaseProviderConfig{APIKey: "co-key", BaseURL: vendor.URL()}, nil)
	p.Client = vendor.Client()
	p.StreamClient = vendor.Client()
	return p
}

func TestNewCohereProvider_Defaults(t *testing.T) {
	p := NewCohereProvider(providers.BaseProviderConfig{APIKey: "k"}, nil)
	assert.Equal(t, "cohere", p.Name())
	assert.Equal(t, "https://api.cohere.com/v2/chat", p.Endpoint(""))
	assert.False(t, p.Capabilities().SupportsDocuments)
}

func TestSendMessage(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithJSON(http.StatusOK, fixtures.CohereChat("Salut"))
	p := newTestProvider(vendor)

	res, err := p.SendMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi", SystemPrompt: "sys"})
	require.NoError(t, err)
	assert.Equal(t, "Salut", res.Response)
	assert.Equal(t, DefaultModel, res.ModelUsed)
	assert.Equal(t, 10, res.Usage.TotalTokens)

	req := vendor.LastRequest()
	assert.Equal(t, "/chat", req.Path)
	assert.Equal(t, "Bearer co-key", req.Header.Get("Authorization"))
	msgs := req.JSON(t)["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestSendMessage_ToxicFinish(t *testing.T) {
	body := fixtures.CohereChat("")
	body["finish_reason"] = "ERROR_TOXIC"
	vendor := testutil.NewFakeVendor(t).WithJSON(http.StatusOK, body)
	p := newTestProvider(vendor)

	_, err := p.SendMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi"})
	assert.Equal(t, types.ErrAPIContentFiltered, types.GetErrorCode(err))
}

func TestSendMessage_RejectsDocuments(t *testing.T) {
	vendor := testutil.NewFakeVendor(t)
	p := newTestProvider(vendor)

	_, err := p.SendMessage(testutil.TestContext(t), &llm.SendRequest{
		Message:     "read this",
		Attachments: []types.Attachment{{Type: types.AttachmentDocument, MimeType: "application/pdf", Base64: "AAAA"}},
	})
	assert.Equal(t, types.ErrValidationUnsupportedFormat, types.GetErrorCode(err))
	assert.Empty(t, vendor.Requests())
}

func TestStreamMessage(t *testing.T) {
	frames := fixtures.CohereFrames("COMPLETE", "Bon", "jour")
	frames = append(frames[:3], append([]string{fixtures.CohereCitationFrame("https://fr.example", "FR", "Bon")}, frames[3:]...)...)
	vendor := testutil.NewFakeVendor(t).WithSSE(frames...)
	p := newTestProvider(vendor)

	s, err := p.StreamMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi"})
	require.NoError(t, err)

	text, events, err := testutil.CollectStream(t, s)
	require.NoError(t, err)
	assert.Equal(t, "Bonjour", text)
	assert.Equal(t, []streaming.EventType{
		streaming.EventTextDelta, streaming.EventTextDelta, streaming.EventCitations, streaming.EventDone,
	}, testutil.EventTypes(events))
	assert.Equal(t, "https://fr.example", s.Citations()[0].URL)
	assert.Equal(t, &types.Usage{PromptTokens: 7, CompletionTokens: 2, TotalTokens: 9}, s.Usage())
}

func TestStreamMessage_FinishReasons(t *testing.T) {
	tests := []struct {
		reason string
		code   types.ErrorCode
	}{
		{"ERROR_TOXIC", types.ErrAPIContentFiltered},
		{"ERROR", types.ErrAPIStreamingFailed},
		{"ERROR_LIMIT", types.ErrAPIStreamingFailed},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			vendor := testutil.NewFakeVendor(t).WithSSE(fixtures.CohereFrames(tt.reason, "x")...)
			p := newTestProvider(vendor)

			s, err := p.StreamMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi"})
			require.NoError(t, err)
			text, err := s.Collect(testutil.TestContext(t))
			assert.Equal(t, "x", text)
			assert.Equal(t, tt.code, types.GetErrorCode(err))
			assert.Equal(t, streaming.StateFailed, s.State())
		})
	}
}

func TestStreamMessage_LegacyEvents(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithSSE(fixtures.CohereLegacyFrames("old ", "style")...)
	p := newTestProvider(vendor)

	s, err := p.StreamMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi"})
	require.NoError(t, err)
	text, err := s.Collect(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, "old style", text)
}

func TestStreamMessage_LegacyStreamEndOnly(t *testing.T) {
	vendor := testutil.NewFakeVendor(t).WithSSE(fixtures.CohereLegacyFrames("whole")[1])
	p := newTestProvider(vendor)

	s, err := p.StreamMessage(testutil.TestContext(t), &llm.SendRequest{Message: "hi"})
	require.NoError(t, err)
	text, err := s.Collect(testutil.TestContext(t))
	require.NoError(t, err)
	assert.Equal(t, "whole", text)
}

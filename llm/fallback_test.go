package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/chatbridge/llm/retry"
	"github.com/BaSui01/chatbridge/llm/streaming"
	"github.com/BaSui01/chatbridge/types"
)

type fakeAdapter struct {
	caps      types.Capabilities
	sendErrs  []error
	sendCalls int
	streamErr error
	result    *SendResult
}

func (f *fakeAdapter) Name() string                     { return "fake" }
func (f *fakeAdapter) Capabilities() types.Capabilities { return f.caps }

func (f *fakeAdapter) SendMessage(ctx context.Context, req *SendRequest) (*SendResult, error) {
	f.sendCalls++
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		return nil, err
	}
	return f.result, nil
}

func (f *fakeAdapter) StreamMessage(ctx context.Context, req *SendRequest) (*streaming.Stream, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return streaming.Start(ctx, "fake", func(ctx context.Context, sink *streaming.Sink) error {
		sink.Text("wire")
		return nil
	}), nil
}

func quickRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffMultiplier: 2}
}

func TestSendWithRetry_RetriesRetryableFailures(t *testing.T) {
	a := &fakeAdapter{
		sendErrs: []error{
			types.NewAPIError(types.ErrAPIRateLimited, "slow", 429, "fake", nil),
			types.NewAPIError(types.ErrAPIServerError, "boom", 500, "fake", nil),
		},
		result: &SendResult{Response: "ok", ModelUsed: "m"},
	}

	var attempts []int
	res, err := SendWithRetry(context.Background(), a, &SendRequest{Message: "hi"}, quickRetry(),
		func(attempt int, err error, delay time.Duration) { attempts = append(attempts, attempt) })

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Response)
	assert.Equal(t, 3, a.sendCalls)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestSendWithRetry_SurfacesNonRetryable(t *testing.T) {
	orig := types.NewAPIError(types.ErrAPIUnauthorized, "bad key", 401, "fake", nil)
	a := &fakeAdapter{sendErrs: []error{orig}}

	_, err := SendWithRetry(context.Background(), a, &SendRequest{Message: "hi"}, quickRetry(), nil)

	assert.Same(t, orig, err)
	assert.Equal(t, 1, a.sendCalls)
}

func TestStreamWithFallback(t *testing.T) {
	result := &SendResult{
		Response: "simulated answer",
		Metadata: &ResultMetadata{Citations: []types.Citation{{Index: 1, URL: "https://x.example"}}},
	}

	tests := []struct {
		name      string
		adapter   *fakeAdapter
		wantText  string
		wantErr   types.ErrorCode
		wantSends int
	}{
		{
			name:     "native streaming",
			adapter:  &fakeAdapter{caps: types.Capabilities{Streaming: true}, result: result},
			wantText: "wire",
		},
		{
			name:      "no streaming capability",
			adapter:   &fakeAdapter{result: result},
			wantText:  "simulated answer",
			wantSends: 1,
		},
		{
			name: "streaming failed falls back",
			adapter: &fakeAdapter{
				caps:      types.Capabilities{Streaming: true},
				streamErr: types.NewAPIError(types.ErrAPIStreamingFailed, "no stream", 0, "fake", nil),
				result:    result,
			},
			wantText:  "simulated answer",
			wantSends: 1,
		},
		{
			name: "other errors propagate",
			adapter: &fakeAdapter{
				caps:      types.Capabilities{Streaming: true},
				streamErr: types.NewAPIError(types.ErrAPIUnauthorized, "bad key", 401, "fake", nil),
				result:    result,
			},
			wantErr: types.ErrAPIUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := StreamWithFallback(context.Background(), tt.adapter, &SendRequest{Message: "q"}, nil)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, types.GetErrorCode(err))
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			text, err := s.Collect(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, text)
			assert.Equal(t, tt.wantSends, tt.adapter.sendCalls)
		})
	}
}

func TestCredentialOverride_Masks(t *testing.T) {
	c := CredentialOverride{APIKey: "sk-secret", Organization: "org-1"}
	assert.NotContains(t, c.String(), "sk-secret")

	data, err := c.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"api_key":"***","organization":"org-1"}`, string(data))

	ctx := WithCredentialOverride(context.Background(), c)
	got, ok := CredentialOverrideFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "sk-secret", got.APIKey)

	_, ok = CredentialOverrideFromContext(WithCredentialOverride(context.Background(), CredentialOverride{}))
	assert.False(t, ok)
}

package errnorm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/chatbridge/types"
)

func TestNormalize_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		code      types.ErrorCode
		retryable bool
	}{
		{"status in parens overload", "Claude API error (529): overloaded", types.ErrAPIProviderOverloaded, true},
		{"status label", "request failed, status: 503", types.ErrAPIServiceUnavailable, true},
		{"status unauthorized", "OpenAI API error (401): bad key", types.ErrAPIUnauthorized, false},
		{"overload keyword", "model is temporarily busy", types.ErrAPIProviderOverloaded, true},
		{"verification", "Your organization must be verified to stream this model", types.ErrAPIVerificationRequired, false},
		{"rate limit", "Too Many Requests", types.ErrAPIRateLimited, true},
		{"auth code", "Firebase: Error (auth/wrong-password).", types.ErrAuthInvalidCredentials, false},
		{"auth code disabled", "Firebase: Error (auth/user-disabled).", types.ErrAuthUserDisabled, false},
		{"auth code unknown", "Firebase: Error (auth/mystery-thing).", types.ErrAuthUnknown, false},
		{"auth keyword", "please sign in again", types.ErrAuthUnknown, false},
		{"offline", "device is offline", types.ErrNetworkOffline, true},
		{"timeout", "network timeout while reading", types.ErrNetworkTimeout, true},
		{"dns", "dial tcp: lookup api.example.com: no such host", types.ErrNetworkDNSFailure, true},
		{"ssl", "ssl handshake failed", types.ErrNetworkSSLError, false},
		{"refused", "connection refused", types.ErrNetworkConnectionRefused, true},
		{"generic network", "socket hang up", types.ErrNetworkGeneric, true},
		{"unknown", "something odd", types.ErrUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := errors.New(tt.input)
			got := Normalize(raw, nil)
			require.NotNil(t, got)
			base := got.Base()
			assert.Equal(t, tt.code, base.Code)
			assert.Equal(t, tt.retryable, base.Retryable)
			assert.ErrorIs(t, got, raw)
			assert.NotEmpty(t, base.UserMessage)
		})
	}
}

func TestNormalize_Specializations(t *testing.T) {
	var apiErr *types.APIError
	require.ErrorAs(t, Normalize(errors.New("Claude API error (529): overloaded"), map[string]any{"provider": "anthropic"}), &apiErr)
	assert.Equal(t, 529, apiErr.StatusCode)
	assert.Equal(t, "anthropic", apiErr.Provider)

	var authErr *types.AuthError
	require.ErrorAs(t, Normalize(errors.New("(auth/weak-password)"), nil), &authErr)

	var netErr *types.NetworkError
	require.ErrorAs(t, Normalize(errors.New("you are offline"), nil), &netErr)
	assert.True(t, netErr.IsOffline)
}

func TestNormalize_ContextErrors(t *testing.T) {
	assert.Equal(t, types.ErrAppCancelled, Normalize(context.Canceled, nil).Base().Code)
	assert.Equal(t, types.ErrNetworkTimeout, Normalize(fmt.Errorf("call: %w", context.DeadlineExceeded), nil).Base().Code)
}

func TestNormalize_TypedMergesContextOnly(t *testing.T) {
	orig := types.NewAPIError(types.ErrAPIRateLimited, "slow down", 429, "cohere", nil)
	orig.WithContext("attempt", 1)

	got := Normalize(orig, map[string]any{"attempt": 9, "model": "command-r"})

	assert.Same(t, orig, got)
	assert.Equal(t, 1, orig.Context["attempt"])
	assert.Equal(t, "command-r", orig.Context["model"])
	assert.Equal(t, "cohere", orig.Context["provider"])
}

func TestNormalize_IdempotentProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		msg := rapid.OneOf(
			rapid.StringMatching(`[a-z ]{0,30}`),
			rapid.SampledFrom([]string{
				"API error (500): boom", "rate limit hit", "auth/user-not-found", "dns failure", "capacity",
			}),
		).Draw(rt, "msg")

		first := Normalize(errors.New(msg), map[string]any{"k": "v"})
		code, message := first.Base().Code, first.Base().Message
		second := Normalize(first, map[string]any{"other": 1})

		if second.Base().Code != code || second.Base().Message != message {
			rt.Fatalf("re-normalizing changed %s/%q to %s/%q", code, message, second.Base().Code, second.Base().Message)
		}
		if second.Base().Context["k"] != "v" {
			rt.Fatalf("context key lost")
		}
	})
}

func TestNormalize_Nil(t *testing.T) {
	assert.Nil(t, Normalize(nil, nil))
}

func TestFromTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code types.ErrorCode
	}{
		{"dns", &net.DNSError{Err: "no such host", Name: "api.example.com", IsNotFound: true}, types.ErrNetworkDNSFailure},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, types.ErrNetworkConnectionRefused},
		{"unreachable", &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ENETUNREACH)}, types.ErrNetworkOffline},
		{"deadline", context.DeadlineExceeded, types.ErrNetworkTimeout},
		{"canceled", context.Canceled, types.ErrAppCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromTransport(tt.err, "openai")
			assert.Equal(t, tt.code, got.Base().Code)
			assert.Equal(t, "openai", got.Base().Context["provider"])
		})
	}
}

func TestFromResponse(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		code        types.ErrorCode
		retryable   bool
		userMessage string
	}{
		{"openai 401", 401, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`,
			types.ErrAPIUnauthorized, false, "Incorrect API key provided"},
		{"401 unhelpful", 401, `{"error":{"message":"nope"}}`, types.ErrAPIUnauthorized, false, MsgInvalidCredentials},
		{"anthropic overloaded", 529, `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			types.ErrAPIProviderOverloaded, true, "Overloaded"},
		{"html 502", 502, `<!DOCTYPE html><html><body>Bad gateway</body></html>`, types.ErrAPIServerError, true, types.UserMessageFor(types.ErrAPIServerError)},
		{"429 plain", 429, `slow`, types.ErrAPIRateLimited, true, MsgRateLimited},
		{"verification", 400, `{"error":{"message":"Your organization must be verified to use the model o3."}}`,
			types.ErrAPIVerificationRequired, false, "Your organization must be verified to use the model o3."},
		{"teapot", 418, `{"message":"short and stout"}`, types.ErrAPIServerError, false, "short and stout"},
		{"unmapped 5xx", 507, ``, types.ErrAPIServerError, true, types.UserMessageFor(types.ErrAPIServerError)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.WriteHeader(tt.status)
			_, _ = rec.WriteString(tt.body)
			resp := rec.Result()
			defer resp.Body.Close()

			got := FromResponse(resp, "vendor")
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.status, got.StatusCode)
			assert.Equal(t, tt.userMessage, got.UserMessage)
		})
	}
}

func TestFromResponse_RetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("Retry-After", "7")
	rec.WriteHeader(http.StatusTooManyRequests)
	resp := rec.Result()
	defer resp.Body.Close()

	got := FromResponse(resp, "mistral")
	assert.Equal(t, "7", got.Context["retry_after"])
}

func TestFromStreamPayload(t *testing.T) {
	got := FromStreamPayload(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`, "anthropic")
	assert.Equal(t, types.ErrAPIProviderOverloaded, got.Code)
	assert.True(t, got.Retryable)
	assert.Equal(t, "Overloaded", got.UserMessage)

	got = FromStreamPayload(`{"error": {broken`, "openai")
	assert.Equal(t, types.ErrAPIStreamingFailed, got.Code)
	assert.Equal(t, types.UserMessageFor(types.ErrAPIStreamingFailed), got.UserMessage)
}

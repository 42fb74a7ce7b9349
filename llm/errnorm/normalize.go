package errnorm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/BaSui01/chatbridge/types"
)

// maxErrorBody 限制读取错误响应体的字节数。
const maxErrorBody = 64 << 10

// Normalize 将任意错误映射到类型化错误层级。
// 已经类型化的错误原样返回，仅把 ctx 中的新键合并进去（已有键保留）。
func Normalize(raw error, ctx map[string]any) types.Typed {
	if raw == nil {
		return nil
	}

	var typed types.Typed
	if errors.As(raw, &typed) {
		typed.Base().MergeContext(ctx)
		return typed
	}

	provider, _ := ctx["provider"].(string)

	var out types.Typed
	switch {
	case errors.Is(raw, context.Canceled):
		out = types.NewAppError(types.ErrAppCancelled, raw.Error(), raw)
	case errors.Is(raw, context.DeadlineExceeded):
		out = types.NewNetworkError(types.ErrNetworkTimeout, raw.Error(), raw)
	default:
		if code, ok := transportCode(raw); ok {
			out = types.NewNetworkError(code, raw.Error(), raw)
		} else {
			out = fromText(raw, provider)
		}
	}
	out.Base().MergeContext(ctx)
	return out
}

func fromText(raw error, provider string) types.Typed {
	msg := raw.Error()
	c := ClassifyText(msg)

	switch {
	case c.Status != 0:
		e := FromHTTPStatus(c.Status, msg, provider)
		e.Cause = raw
		e.WithUserMessage(EnhanceForStatus(c.Status, ExtractMessage(stripStatusPrefix(msg), types.UserMessageFor(c.Code))))
		return e
	case strings.HasPrefix(string(c.Code), "API_"):
		return types.NewAPIError(c.Code, msg, 0, provider, raw)
	case strings.HasPrefix(string(c.Code), "AUTH_"):
		return types.NewAuthError(c.Code, msg, "", raw)
	case strings.HasPrefix(string(c.Code), "NETWORK_"):
		return types.NewNetworkError(c.Code, msg, raw)
	default:
		return types.NewAppError(c.Code, msg, raw)
	}
}

// stripStatusPrefix 去掉 "xxx error (429): " 这类前缀，保留供应商原文。
func stripStatusPrefix(msg string) string {
	if i := strings.Index(msg, "): "); i >= 0 {
		return msg[i+3:]
	}
	return msg
}

// transportCode 识别连接阶段的结构化错误。
func transportCode(err error) (types.ErrorCode, bool) {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return types.ErrNetworkTimeout, true
		}
		return types.ErrNetworkDNSFailure, true
	}

	var (
		unknownAuthority x509.UnknownAuthorityError
		invalidCert      x509.CertificateInvalidError
		hostnameErr      x509.HostnameError
		recordErr        tls.RecordHeaderError
		certVerifyErr    *tls.CertificateVerificationError
	)
	if errors.As(err, &unknownAuthority) || errors.As(err, &invalidCert) ||
		errors.As(err, &hostnameErr) || errors.As(err, &recordErr) || errors.As(err, &certVerifyErr) {
		return types.ErrNetworkSSLError, true
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return types.ErrNetworkConnectionRefused, true
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return types.ErrNetworkOffline, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.ErrNetworkTimeout, true
	}
	return "", false
}

// FromTransport 归一化 HTTP 客户端在连接或读取阶段返回的错误。
func FromTransport(err error, provider string) types.Typed {
	return Normalize(err, map[string]any{"provider": provider})
}

// FromResponse 将非 2xx 响应转换为 APIError，并读取（有上限）响应体提取消息。
// 调用方仍负责关闭 resp.Body。
func FromResponse(resp *http.Response, provider string) *types.APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	status := resp.StatusCode
	code, retryable := CodeForStatus(status)

	lowerBody := strings.ToLower(string(body))
	switch {
	case status < 500 && verification.MatchString(lowerBody):
		code, retryable = types.ErrAPIVerificationRequired, false
	case strings.Contains(lowerBody, "overloaded_error"):
		code, retryable = types.ErrAPIProviderOverloaded, true
	}

	display := EnhanceForStatus(status, ExtractMessage(string(body), types.UserMessageFor(code)))
	e := types.NewAPIError(code, fmt.Sprintf("%s API error (%d): %s", provider, status, display), status, provider, nil)
	e.Retryable = retryable
	e.WithUserMessage(display)
	e.WithContext("status", status)
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		e.WithContext("retry_after", ra)
	}
	return e
}

// FromStreamPayload 将流内错误事件归一化为 APIError。
// 文本经过与带外错误相同的提取逻辑，避免把 JSON 原文展示给用户。
func FromStreamPayload(payload, provider string) *types.APIError {
	lower := strings.ToLower(payload)
	code := types.ErrAPIStreamingFailed
	switch {
	case containsAny(lower, overloadKeywords):
		code = types.ErrAPIProviderOverloaded
	case containsAny(lower, rateLimitKeywords):
		code = types.ErrAPIRateLimited
	case containsAny(lower, []string{"content_filter", "content filter", "safety", "toxic"}):
		code = types.ErrAPIContentFiltered
	}

	display := ExtractMessage(payload, types.UserMessageFor(code))
	e := types.NewAPIError(code, fmt.Sprintf("%s stream error: %s", provider, display), 0, provider, nil)
	e.WithUserMessage(display)
	return e
}

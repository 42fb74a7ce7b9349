package errnorm

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/chatbridge/types"
)

// StatusOverloaded 是部分供应商（Anthropic）在过载时返回的非标准状态码。
const StatusOverloaded = 529

type statusRule struct {
	code      types.ErrorCode
	retryable bool
}

var statusTable = map[int]statusRule{
	http.StatusBadRequest:          {types.ErrAPIBadRequest, false},
	http.StatusUnauthorized:        {types.ErrAPIUnauthorized, false},
	http.StatusForbidden:           {types.ErrAPIForbidden, false},
	http.StatusNotFound:            {types.ErrAPINotFound, false},
	http.StatusTooManyRequests:     {types.ErrAPIRateLimited, true},
	http.StatusInternalServerError: {types.ErrAPIServerError, true},
	http.StatusBadGateway:          {types.ErrAPIServerError, true},
	http.StatusGatewayTimeout:      {types.ErrAPIServerError, true},
	http.StatusServiceUnavailable:  {types.ErrAPIServiceUnavailable, true},
	StatusOverloaded:               {types.ErrAPIProviderOverloaded, true},
}

// CodeForStatus 返回状态码对应的错误码与可重试标记。
// 未列出的 5xx 视为可重试的服务端错误，其余视为不可重试的服务端错误。
func CodeForStatus(status int) (types.ErrorCode, bool) {
	if rule, ok := statusTable[status]; ok {
		return rule.code, rule.retryable
	}
	return types.ErrAPIServerError, status >= 500 && status <= 599
}

// FromHTTPStatus 将 HTTP 状态码映射为 APIError。
func FromHTTPStatus(status int, message, provider string) *types.APIError {
	code, retryable := CodeForStatus(status)
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	e := types.NewAPIError(code, message, status, provider, nil)
	e.Retryable = retryable
	e.WithContext("status", status)
	return e
}

var (
	credentialWording   = []string{"key", "auth", "credential", "token", "permission", "unauthor", "forbidden", "access"}
	rateLimitWording    = []string{"rate", "limit", "quota", "too many"}
	availabilityWording = []string{"unavailable", "overload", "capacity", "busy", "maintenance", "try again"}
)

// 状态码增强后使用的固定文案
const (
	MsgInvalidCredentials = "Invalid API key or credentials. Please check your API key and try again."
	MsgRateLimited        = "Rate limit exceeded. Please wait a moment before trying again."
	MsgUnavailable        = "The service is temporarily unavailable. Please try again later."
)

// EnhanceForStatus 在消息缺少与状态码相符的措辞时替换为固定文案，
// 保证 401/403、429、5xx/529 始终有贴切的提示。
func EnhanceForStatus(status int, message string) string {
	lower := strings.ToLower(message)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if !containsAny(lower, credentialWording) {
			return MsgInvalidCredentials
		}
	case status == http.StatusTooManyRequests:
		if !containsAny(lower, rateLimitWording) {
			return MsgRateLimited
		}
	case status >= 500:
		if !containsAny(lower, availabilityWording) {
			return MsgUnavailable
		}
	}
	return message
}

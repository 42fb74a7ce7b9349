package errnorm

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/BaSui01/chatbridge/types"
)

var (
	statusInParens = regexp.MustCompile(`\((\d{3})\)`)
	statusLabel    = regexp.MustCompile(`status(?:\s*code)?\s*:?\s*(\d{3})`)
	authCode       = regexp.MustCompile(`auth/([a-z0-9-]+)`)
	verification   = regexp.MustCompile(`organi[sz]ation[^.]*verif|verif[^.]*organi[sz]ation|verification required`)
)

var (
	overloadKeywords  = []string{"overload", "temporarily busy", "capacity", "529"}
	rateLimitKeywords = []string{"rate limit", "rate_limit", "ratelimit", "too many requests", "429"}
	authKeywords      = []string{"auth", "sign in", "signin", "session", "login", "password", "credential"}
	networkKeywords   = []string{
		"network", "fetch", "connection", "offline", "timeout", "dns", "socket", "refused", "ssl", "certificate",
		"timed out", "no such host", "tls", "dial tcp", "deadline exceeded", "unreachable",
	}
	nonRetryableKeywords = []string{
		"unauthorized", "forbidden", "not found", "401", "403", "404", "permission denied",
	}
)

// authCodeTable 将 `auth/xxx` 形式的供应商认证码映射到认证错误码。
var authCodeTable = map[string]types.ErrorCode{
	"wrong-password":            types.ErrAuthInvalidCredentials,
	"invalid-credential":        types.ErrAuthInvalidCredentials,
	"invalid-email":             types.ErrAuthInvalidCredentials,
	"invalid-login-credentials": types.ErrAuthInvalidCredentials,
	"user-not-found":            types.ErrAuthUserNotFound,
	"user-disabled":             types.ErrAuthUserDisabled,
	"email-already-in-use":      types.ErrAuthEmailInUse,
	"weak-password":             types.ErrAuthWeakPassword,
	"network-request-failed":    types.ErrAuthNetworkError,
	"requires-recent-login":     types.ErrAuthSessionExpired,
	"user-token-expired":        types.ErrAuthSessionExpired,
	"too-many-requests":         types.ErrAuthTooManyAttempts,
	"popup-closed-by-user":      types.ErrAppCancelled,
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// StatusFromText 从错误文本中提取 "(NNN)" 或 "status: NNN" 形式的 HTTP 错误状态码。
// 只接受 4xx/5xx，文本里的普通三位数不会被当作状态码。
func StatusFromText(lower string) (int, bool) {
	for _, re := range []*regexp.Regexp{statusInParens, statusLabel} {
		for _, m := range re.FindAllStringSubmatch(lower, -1) {
			status, err := strconv.Atoi(m[1])
			if err == nil && status >= 400 && status <= 599 {
				return status, true
			}
		}
	}
	return 0, false
}

// networkCode 按关键词细分网络错误。
func networkCode(lower string) types.ErrorCode {
	switch {
	case containsAny(lower, []string{"offline", "no internet", "network is unreachable", "network is down"}):
		return types.ErrNetworkOffline
	case containsAny(lower, []string{"timeout", "timed out", "deadline exceeded"}):
		return types.ErrNetworkTimeout
	case containsAny(lower, []string{"dns", "no such host", "getaddrinfo", "enotfound"}):
		return types.ErrNetworkDNSFailure
	case containsAny(lower, []string{"ssl", "certificate", "tls", "x509"}):
		return types.ErrNetworkSSLError
	case containsAny(lower, []string{"refused", "econnrefused"}):
		return types.ErrNetworkConnectionRefused
	default:
		return types.ErrNetworkGeneric
	}
}

// Classification 是对一段错误文本的分类结果。
type Classification struct {
	Code      types.ErrorCode
	Status    int
	Retryable bool
}

// ClassifyText 按固定优先级扫描错误文本：状态码、过载、组织验证、限流、
// auth/xxx 认证码、通用认证关键词、网络关键词，最后归为未知。
func ClassifyText(message string) Classification {
	lower := strings.ToLower(message)

	if status, ok := StatusFromText(lower); ok {
		code, retryable := CodeForStatus(status)
		return Classification{Code: code, Status: status, Retryable: retryable}
	}
	if containsAny(lower, overloadKeywords) {
		return classified(types.ErrAPIProviderOverloaded)
	}
	if verification.MatchString(lower) {
		return classified(types.ErrAPIVerificationRequired)
	}
	if containsAny(lower, rateLimitKeywords) {
		return classified(types.ErrAPIRateLimited)
	}
	if m := authCode.FindStringSubmatch(lower); m != nil {
		if code, ok := authCodeTable[m[1]]; ok {
			return classified(code)
		}
		return classified(types.ErrAuthUnknown)
	}
	if containsAny(lower, authKeywords) {
		return classified(types.ErrAuthUnknown)
	}
	if containsAny(lower, networkKeywords) {
		return classified(networkCode(lower))
	}
	return classified(types.ErrUnknown)
}

func classified(code types.ErrorCode) Classification {
	return Classification{Code: code, Retryable: types.DefaultRetryable(code)}
}

// IsNonRetryableText 报告错误文本是否命中不可重试覆盖列表
// （unauthorized、forbidden、not found、401/403/404、permission denied）。
func IsNonRetryableText(message string) bool {
	return containsAny(strings.ToLower(message), nonRetryableKeywords)
}

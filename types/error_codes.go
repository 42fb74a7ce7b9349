package types

// Network error codes
const (
	ErrNetworkOffline           ErrorCode = "NETWORK_OFFLINE"
	ErrNetworkTimeout           ErrorCode = "NETWORK_TIMEOUT"
	ErrNetworkDNSFailure        ErrorCode = "NETWORK_DNS_FAILURE"
	ErrNetworkSSLError          ErrorCode = "NETWORK_SSL_ERROR"
	ErrNetworkConnectionRefused ErrorCode = "NETWORK_CONNECTION_REFUSED"
	ErrNetworkGeneric           ErrorCode = "NETWORK_ERROR"
)

// API error codes
const (
	ErrAPIUnauthorized         ErrorCode = "API_UNAUTHORIZED"
	ErrAPIForbidden            ErrorCode = "API_FORBIDDEN"
	ErrAPINotFound             ErrorCode = "API_NOT_FOUND"
	ErrAPIRateLimited          ErrorCode = "API_RATE_LIMITED"
	ErrAPIServerError          ErrorCode = "API_SERVER_ERROR"
	ErrAPIServiceUnavailable   ErrorCode = "API_SERVICE_UNAVAILABLE"
	ErrAPIBadRequest           ErrorCode = "API_BAD_REQUEST"
	ErrAPIStreamingFailed      ErrorCode = "API_STREAMING_FAILED"
	ErrAPIProviderOverloaded   ErrorCode = "API_PROVIDER_OVERLOADED"
	ErrAPIVerificationRequired ErrorCode = "API_VERIFICATION_REQUIRED"
	ErrAPIInvalidResponse      ErrorCode = "API_INVALID_RESPONSE"
	ErrAPIContentFiltered      ErrorCode = "API_CONTENT_FILTERED"
)

// Auth error codes
const (
	ErrAuthInvalidCredentials ErrorCode = "AUTH_INVALID_CREDENTIALS"
	ErrAuthSessionExpired     ErrorCode = "AUTH_SESSION_EXPIRED"
	ErrAuthUserDisabled       ErrorCode = "AUTH_USER_DISABLED"
	ErrAuthEmailInUse         ErrorCode = "AUTH_EMAIL_IN_USE"
	ErrAuthWeakPassword       ErrorCode = "AUTH_WEAK_PASSWORD"
	ErrAuthGoogleSignInFailed ErrorCode = "AUTH_GOOGLE_SIGNIN_FAILED"
	ErrAuthAppleSignInFailed  ErrorCode = "AUTH_APPLE_SIGNIN_FAILED"
	ErrAuthUserNotFound       ErrorCode = "AUTH_USER_NOT_FOUND"
	ErrAuthNetworkError       ErrorCode = "AUTH_NETWORK_ERROR"
	ErrAuthTooManyAttempts    ErrorCode = "AUTH_TOO_MANY_ATTEMPTS"
	ErrAuthUnknown            ErrorCode = "AUTH_UNKNOWN"
)

// Validation error codes
const (
	ErrValidationRequired           ErrorCode = "VALIDATION_REQUIRED"
	ErrValidationInvalidFormat      ErrorCode = "VALIDATION_INVALID_FORMAT"
	ErrValidationAPIKeyInvalid      ErrorCode = "VALIDATION_API_KEY_INVALID"
	ErrValidationMessageTooLong     ErrorCode = "VALIDATION_MESSAGE_TOO_LONG"
	ErrValidationAttachmentTooLarge ErrorCode = "VALIDATION_ATTACHMENT_TOO_LARGE"
	ErrValidationUnsupportedFormat  ErrorCode = "VALIDATION_UNSUPPORTED_FORMAT"
)

// App error codes
const (
	ErrAppInitializationFailed ErrorCode = "APP_INITIALIZATION_FAILED"
	ErrAppNotSupported         ErrorCode = "APP_NOT_SUPPORTED"
	ErrAppCancelled            ErrorCode = "APP_CANCELLED"
	ErrAppInternal             ErrorCode = "APP_INTERNAL_ERROR"
)

// ErrUnknown is the catch-all code.
const ErrUnknown ErrorCode = "UNKNOWN_ERROR"

type codeInfo struct {
	userMessage string
	severity    Severity
	retryable   bool
	recoverable bool
}

// codeTable is read-only after package initialisation.
var codeTable = map[ErrorCode]codeInfo{
	ErrNetworkOffline:           {"You appear to be offline. Please check your internet connection.", SeverityWarning, true, true},
	ErrNetworkTimeout:           {"The request timed out. Please try again.", SeverityWarning, true, true},
	ErrNetworkDNSFailure:        {"Could not reach the server. Please check your connection.", SeverityError, true, true},
	ErrNetworkSSLError:          {"A secure connection could not be established.", SeverityError, false, true},
	ErrNetworkConnectionRefused: {"The server refused the connection. Please try again later.", SeverityError, true, true},
	ErrNetworkGeneric:           {"A network error occurred. Please check your connection and try again.", SeverityWarning, true, true},

	ErrAPIUnauthorized:         {"Invalid API key or credentials. Please check your API key and try again.", SeverityError, false, true},
	ErrAPIForbidden:            {"Access denied. Your API key may not have permission for this model.", SeverityError, false, true},
	ErrAPINotFound:             {"The requested model or endpoint was not found.", SeverityError, false, true},
	ErrAPIRateLimited:          {"Rate limit exceeded. Please wait a moment before trying again.", SeverityWarning, true, true},
	ErrAPIServerError:          {"The AI service encountered an error. Please try again.", SeverityError, true, true},
	ErrAPIServiceUnavailable:   {"The service is temporarily unavailable. Please try again later.", SeverityWarning, true, true},
	ErrAPIBadRequest:           {"The request was invalid. Please adjust your message and try again.", SeverityError, false, true},
	ErrAPIStreamingFailed:      {"The response stream was interrupted. Please try again.", SeverityWarning, true, true},
	ErrAPIProviderOverloaded:   {"The AI provider is overloaded right now. Please try again shortly.", SeverityWarning, true, true},
	ErrAPIVerificationRequired: {"Your organization must be verified to use this model.", SeverityError, false, true},
	ErrAPIInvalidResponse:      {"Received an unexpected response from the AI service.", SeverityError, false, true},
	ErrAPIContentFiltered:      {"The response was blocked by the provider's content filter.", SeverityWarning, false, true},

	ErrAuthInvalidCredentials: {"Incorrect email or password.", SeverityWarning, false, true},
	ErrAuthSessionExpired:     {"Your session has expired. Please sign in again.", SeverityWarning, false, true},
	ErrAuthUserDisabled:       {"This account has been disabled.", SeverityCritical, false, false},
	ErrAuthEmailInUse:         {"An account with this email already exists.", SeverityWarning, false, true},
	ErrAuthWeakPassword:       {"Password is too weak. Please choose a stronger password.", SeverityWarning, false, true},
	ErrAuthGoogleSignInFailed: {"Google sign-in failed. Please try again.", SeverityError, false, true},
	ErrAuthAppleSignInFailed:  {"Apple sign-in failed. Please try again.", SeverityError, false, true},
	ErrAuthUserNotFound:       {"No account found with this email.", SeverityWarning, false, true},
	ErrAuthNetworkError:       {"Network error during sign-in. Please check your connection.", SeverityWarning, true, true},
	ErrAuthTooManyAttempts:    {"Too many attempts. Please wait and try again later.", SeverityWarning, false, true},
	ErrAuthUnknown:            {"Authentication failed. Please sign in again.", SeverityError, false, true},

	ErrValidationRequired:           {"This field is required.", SeverityInfo, false, true},
	ErrValidationInvalidFormat:      {"The value has an invalid format.", SeverityInfo, false, true},
	ErrValidationAPIKeyInvalid:      {"The API key is missing or invalid.", SeverityWarning, false, true},
	ErrValidationMessageTooLong:     {"Your message is too long for this model.", SeverityInfo, false, true},
	ErrValidationAttachmentTooLarge: {"The attachment is too large.", SeverityInfo, false, true},
	ErrValidationUnsupportedFormat:  {"This file type is not supported by the selected model.", SeverityInfo, false, true},

	ErrAppInitializationFailed: {"The app failed to start correctly. Please restart it.", SeverityCritical, false, false},
	ErrAppNotSupported:         {"This feature is not supported by the selected provider.", SeverityInfo, false, true},
	ErrAppCancelled:            {"The request was cancelled.", SeverityInfo, false, true},
	ErrAppInternal:             {"Something went wrong. Please try again.", SeverityError, false, true},

	ErrUnknown: {"An unexpected error occurred. Please try again.", SeverityError, false, true},
}

// AllErrorCodes returns every code of the closed enumeration.
func AllErrorCodes() []ErrorCode {
	out := make([]ErrorCode, 0, len(codeTable))
	for code := range codeTable {
		out = append(out, code)
	}
	return out
}

// IsKnownCode reports whether code belongs to the closed enumeration.
func IsKnownCode(code ErrorCode) bool {
	_, ok := codeTable[code]
	return ok
}

// UserMessageFor returns the display text for code.
func UserMessageFor(code ErrorCode) string {
	if info, ok := codeTable[code]; ok {
		return info.userMessage
	}
	return codeTable[ErrUnknown].userMessage
}

// DefaultRetryable returns the retryable flag the taxonomy assigns to code.
func DefaultRetryable(code ErrorCode) bool {
	return codeTable[code].retryable
}

// DefaultSeverity returns the severity the taxonomy assigns to code.
func DefaultSeverity(code ErrorCode) Severity {
	if info, ok := codeTable[code]; ok {
		return info.severity
	}
	return SeverityError
}

// DefaultRecoverable returns whether code is recoverable by the user.
func DefaultRecoverable(code ErrorCode) bool {
	if info, ok := codeTable[code]; ok {
		return info.recoverable
	}
	return true
}

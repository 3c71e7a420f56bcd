// Package apperror is the error-kind taxonomy shared by every
// subsystem: each kind knows its own HTTP status so HTTP handlers
// never switch on error strings.
package apperror

import "net/http"

// Kind is a semantic error category, not a concrete Go type.
type Kind string

const (
	KindConfiguration      Kind = "configuration_error"
	KindProviderConnection Kind = "provider_connection_error"
	KindProviderAuth       Kind = "provider_authentication_error"
	KindProviderTransient  Kind = "provider_transient_error"
	KindProviderMessage    Kind = "provider_message_error"
	KindProviderFatal      Kind = "provider_fatal_error"
	KindValidation         Kind = "validation_error"
	KindPermission         Kind = "permission_error"
	KindRateLimited        Kind = "rate_limited"
	KindAccountLocked      Kind = "account_locked"
	KindNotFound           Kind = "not_found"
	KindConflict           Kind = "conflict"
	KindUpstreamTimeout    Kind = "upstream_timeout"
)

var statusByKind = map[Kind]int{
	KindConfiguration:      http.StatusBadRequest,
	KindProviderConnection: http.StatusServiceUnavailable,
	KindProviderAuth:       http.StatusUnauthorized,
	KindProviderTransient:  http.StatusBadGateway,
	KindProviderMessage:    http.StatusBadGateway,
	KindProviderFatal:      http.StatusBadGateway,
	KindValidation:         http.StatusBadRequest,
	KindPermission:         http.StatusForbidden,
	KindRateLimited:        http.StatusTooManyRequests,
	KindAccountLocked:      http.StatusLocked,
	KindNotFound:           http.StatusNotFound,
	KindConflict:           http.StatusConflict,
	KindUpstreamTimeout:    http.StatusGatewayTimeout,
}

// AppError is the single error type every package returns for
// caller-visible failures; Kind maps to the HTTP status at the gateway.
type AppError struct {
	Kind    Kind
	Message string
	// RetryAfterSeconds is set for KindRateLimited and KindAccountLocked.
	RetryAfterSeconds int
}

func (e *AppError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status the gateway should respond with.
func (e *AppError) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func NotFound(message string) *AppError      { return New(KindNotFound, message) }
func Validation(message string) *AppError    { return New(KindValidation, message) }
func Permission(message string) *AppError    { return New(KindPermission, message) }
func Conflict(message string) *AppError      { return New(KindConflict, message) }
func Configuration(message string) *AppError { return New(KindConfiguration, message) }

func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{Kind: KindRateLimited, Message: "rate limited", RetryAfterSeconds: retryAfterSeconds}
}

func AccountLocked(retryAfterSeconds int) *AppError {
	return &AppError{Kind: KindAccountLocked, Message: "account locked", RetryAfterSeconds: retryAfterSeconds}
}

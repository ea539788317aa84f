package tg

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors - use with errors.Is()
var (
	// API errors
	ErrUnauthorized    = errors.New("gramflow: unauthorized (invalid token)")
	ErrForbidden       = errors.New("gramflow: forbidden")
	ErrNotFound        = errors.New("gramflow: not found")
	ErrTooManyRequests = errors.New("gramflow: too many requests")

	// Conflict means polling and webhook delivery were requested at the same
	// time for one token; Telegram rejects the unused channel with 409.
	ErrConflict = errors.New("gramflow: conflicting getUpdates/webhook use")

	// Client errors
	ErrRateLimited      = errors.New("gramflow: rate limit exceeded")
	ErrCircuitOpen      = errors.New("gramflow: circuit breaker open")
	ErrMaxRetries       = errors.New("gramflow: max retries exceeded")
	ErrResponseTooLarge = errors.New("gramflow: response too large")

	// Validation errors
	ErrInvalidToken  = errors.New("gramflow: invalid bot token format")
	ErrInvalidConfig = errors.New("gramflow: invalid configuration")
)

// APIError represents an error response from the Telegram API.
// Use errors.As() to extract details, errors.Is() to match sentinels.
type APIError struct {
	Code        int
	Description string
	RetryAfter  time.Duration
	Method      string // API method that failed
	cause       error  // Underlying sentinel for errors.Is()
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("gramflow: %s failed: %s (code=%d, retry_after=%s)",
			e.Method, e.Description, e.Code, e.RetryAfter)
	}
	return fmt.Sprintf("gramflow: %s failed: %s (code=%d)", e.Method, e.Description, e.Code)
}

// Unwrap returns the underlying sentinel error for errors.Is() support.
func (e *APIError) Unwrap() error { return e.cause }

// IsRetryable returns true if the error is temporary and may succeed on retry.
func (e *APIError) IsRetryable() bool {
	return e.Code == 429 || (e.Code >= 500 && e.Code <= 504)
}

// NewAPIError creates an APIError with automatic sentinel detection.
func NewAPIError(method string, code int, description string) *APIError {
	return &APIError{
		Code:        code,
		Description: description,
		Method:      method,
		cause:       DetectSentinel(code),
	}
}

// NewAPIErrorWithRetry creates an APIError with retry information.
func NewAPIErrorWithRetry(method string, code int, description string, retryAfter time.Duration) *APIError {
	return &APIError{
		Code:        code,
		Description: description,
		Method:      method,
		RetryAfter:  retryAfter,
		cause:       DetectSentinel(code),
	}
}

// DetectSentinel maps a Telegram error code to a sentinel error.
func DetectSentinel(code int) error {
	switch code {
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 429:
		return ErrTooManyRequests
	}
	return nil
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("gramflow: validation: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gramflow: config: %s - %s", e.Key, e.Message)
}

// NewConfigError creates a new ConfigError.
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}

// ValidateToken checks a bot token's {bot_id}:{secret} shape.
func ValidateToken(token SecretToken) error {
	raw := token.Value()
	if raw == "" {
		return ErrInvalidToken
	}
	sep := -1
	for i := 0; i < len(raw); i++ {
		if raw[i] == ':' {
			sep = i
			break
		}
	}
	if sep <= 0 || sep == len(raw)-1 {
		return ErrInvalidToken
	}
	for i := 0; i < sep; i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return ErrInvalidToken
		}
	}
	return nil
}

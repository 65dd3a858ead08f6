// Package llmerrors provides structured error classification and retry
// configuration for LLM and remote-job interactions.
package llmerrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind represents different categories of errors for retry logic.
type Kind int8

const (
	// Retryable kinds.

	// KindRateLimit represents rate limiting errors (429, quota exceeded).
	KindRateLimit Kind = iota
	// KindTransient represents transient errors (5xx, EOF, connection reset, timeout).
	KindTransient

	// Non-retryable kinds.

	// KindConfiguration represents missing or invalid local configuration (no API key).
	KindConfiguration
	// KindRejected represents requests the provider refused (4xx other than 429).
	KindRejected
	// KindCancelled represents caller-initiated cancellation. Terminal, never retried,
	// and not reported upward as a failure of the work itself.
	KindCancelled
	// KindUnknown is the default for unclassified errors.
	KindUnknown

	// Job-level kinds.

	// KindSubmission represents a job submission that failed after internal retry.
	KindSubmission
	// KindPollingExhausted represents a client-side polling budget running out.
	// The remote job may still be running; this is the client giving up.
	KindPollingExhausted

	// Pipeline-level kinds.

	// KindPrecondition represents a pipeline precondition failure before any call is made.
	KindPrecondition
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	case KindConfiguration:
		return "configuration"
	case KindRejected:
		return "rejected"
	case KindCancelled:
		return "cancelled"
	case KindUnknown:
		return "unknown"
	case KindSubmission:
		return "submission"
	case KindPollingExhausted:
		return "polling_exhausted"
	case KindPrecondition:
		return "precondition"
	default:
		return "invalid"
	}
}

// RetryProfile defines exponential backoff configuration for an error kind.
type RetryProfile struct {
	MaxRetries    int           // Maximum number of retry attempts
	InitialDelay  time.Duration // Initial delay for exponential backoff
	MaxDelay      time.Duration // Maximum delay between retries
	BackoffFactor float64       // Multiplier for exponential backoff
}

// DefaultRetryProfiles provides default retry configurations for each kind.
//
//nolint:gochecknoglobals // Configuration map - acceptable for package defaults
var DefaultRetryProfiles = map[Kind]RetryProfile{
	KindRateLimit: {
		MaxRetries:    2,
		InitialDelay:  1 * time.Second,
		MaxDelay:      15 * time.Second,
		BackoffFactor: 2.0,
	},
	KindTransient: {
		MaxRetries:    2,
		InitialDelay:  1 * time.Second,
		MaxDelay:      15 * time.Second,
		BackoffFactor: 2.0,
	},
}

// Error represents a classified error with retry metadata.
type Error struct {
	Err        error  // Wrapped underlying error
	Message    string // Human-readable error message
	Kind       Kind   // Classified error kind
	StatusCode int    // HTTP status code if applicable
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind.String(), e.Err)
	}
	return fmt.Sprintf("%s: status %d", e.Kind.String(), e.StatusCode)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns whether this error kind should be retried.
func (e *Error) IsRetryable() bool {
	switch e.Kind {
	case KindRateLimit, KindTransient:
		return true
	default:
		return false
	}
}

// RetryProfileFor returns the retry configuration for this error kind.
func (e *Error) RetryProfileFor() RetryProfile {
	if profile, exists := DefaultRetryProfiles[e.Kind]; exists {
		return profile
	}
	return RetryProfile{}
}

// Is checks if an error is of a specific kind.
func Is(err error, kind Kind) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind == kind
	}
	return false
}

// KindOf returns the kind of an error, or KindUnknown if not classified.
func KindOf(err error) Kind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return KindUnknown
}

// New creates a new classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewWithStatus creates a new classified error with an HTTP status.
func NewWithStatus(kind Kind, statusCode int, message string) *Error {
	return &Error{Kind: kind, StatusCode: statusCode, Message: message}
}

// NewWithCause creates a new classified error wrapping another error.
func NewWithCause(kind Kind, cause error, message string) *Error {
	return &Error{Kind: kind, Err: cause, Message: message}
}

// IsCancelled reports whether the error is a caller-initiated cancellation.
func IsCancelled(err error) bool {
	return Is(err, KindCancelled)
}

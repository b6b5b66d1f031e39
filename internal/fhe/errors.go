package fhe

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is; none of these are retried inside
// the package.
var (
	// ErrOutOfRange: plaintext outside [0, 2^32).
	ErrOutOfRange = errors.New("plaintext out of range")
	// ErrMalformedCiphertext: wrong length, unknown header, failed integrity check,
	// or ciphertexts that cannot be combined.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrMalformedProof: wrong proof length or encoding.
	ErrMalformedProof = errors.New("malformed proof")
	// ErrUnauthorized: decryption attempted without the matching capability.
	ErrUnauthorized = errors.New("decryption capability required")
	// ErrOverflow: result outside the representable range under a fail policy.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrProviderUnavailable: remote backend unreachable, timed out or refusing work.
	ErrProviderUnavailable = errors.New("encryption provider unavailable")
)

// ErrorCategory normalizes remote backend failures.
type ErrorCategory string

const (
	// ErrorTimeout indicates the backend took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorProviderOutage indicates the backend is unreachable or failing
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates the backend is shedding load
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorBadData indicates the backend answered with an unreadable payload
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates the decryption token was refused
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorRejected indicates the backend refused the input itself
	ErrorRejected ErrorCategory = "rejected"
)

// ProviderError wraps a remote backend failure with its category.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

// NewProviderError builds a categorized provider error.
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

// Unwrap exposes both the taxonomy sentinel for the category and the underlying cause.
func (e *ProviderError) Unwrap() []error {
	var errs []error
	switch e.Category {
	case ErrorTimeout, ErrorProviderOutage, ErrorRateLimited, ErrorBadData:
		errs = append(errs, ErrProviderUnavailable)
	case ErrorAuthentication:
		errs = append(errs, ErrUnauthorized)
	}
	if e.Underlying != nil {
		errs = append(errs, e.Underlying)
	}
	return errs
}

// IsRetryable reports whether err is a provider failure worth retrying by the caller.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CategoryOf extracts the provider error category, or "" for other errors.
func CategoryOf(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

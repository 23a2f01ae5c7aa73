package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyDecided means the join request left the pending set
	// (an earlier decision succeeded or is still in flight).
	ErrAlreadyDecided = errors.New("join request already decided")

	// ErrNoEligibleRecipients means every selected invite candidate was
	// blocked by a guardrail; no network call was made.
	ErrNoEligibleRecipients = errors.New("no eligible recipients")

	// ErrEmptyMessage rejects a blank message body before any send.
	ErrEmptyMessage = errors.New("message body is empty")
)

// APIError is a non-2xx response from the Tonight API. Message carries
// the server's {"error": ...} text when present, otherwise the
// caller-supplied fallback.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// IsNetworkFailure reports whether err came from the network path (a
// failed request, timeout, or non-2xx response) as opposed to a local
// precondition violation.
func IsNetworkFailure(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return true
	}
	return !errors.Is(err, ErrAlreadyDecided) &&
		!errors.Is(err, ErrNoEligibleRecipients) &&
		!errors.Is(err, ErrEmptyMessage)
}

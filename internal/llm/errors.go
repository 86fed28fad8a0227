package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// APIError is a non-2xx response from a generation backend. Status drives
// the retry classification: rate limits and 5xx are transient, everything
// else (malformed input, auth) is permanent.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.Status, e.Message)
}

// IsTransient reports whether a provider call is worth retrying: timeouts,
// rate limits, and 5xx-class failures. Malformed-input and auth errors are
// not, and neither is caller cancellation.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == 429 || apiErr.Status >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return false
}

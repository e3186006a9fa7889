package lichess

import (
	"errors"
	"fmt"
	"time"
)

// APIError is a non-2xx answer from lichess: the server rejected the request.
type APIError struct {
	StatusCode int
	Reason     string
	Body       []byte
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lichess API returned HTTP %d: %s", e.StatusCode, e.Reason)
}

// IsRetryable reports whether the same request may succeed later.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// TransportError is a failure to reach lichess or to finish reading a
// response: DNS, connection refused, timeouts, resets mid-stream.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to lichess failed: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var tErr *TransportError
	return errors.As(err, &tErr)
}

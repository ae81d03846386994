package providers

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEndpointUnreachable indicates the endpoint could not be reached at all
// (connection refused, DNS failure, timeout). Transient; callers may retry
// with backoff.
var ErrEndpointUnreachable = errors.New("inference endpoint unreachable")

// EndpointError is a non-success response from the inference endpoint.
type EndpointError struct {
	StatusCode int
	Body       string
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("inference endpoint error (status %d): %s", e.StatusCode, e.Body)
}

// Transient reports whether the error is worth retrying: rate limiting,
// server-side failures, or the endpoint being unreachable entirely.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEndpointUnreachable) {
		return true
	}
	var ee *EndpointError
	if errors.As(err, &ee) {
		return ee.StatusCode == http.StatusTooManyRequests || ee.StatusCode >= 500
	}
	return false
}

package fcmapi

import (
	"fmt"
	"github.com/pkg/errors"
	"net/http"
)

// ErrTransport matches every APIError that was produced without an HTTP
// response: unreachable hosts, timeouts and the like.
var ErrTransport = errors.New("transport error")

// APIError is the single error shape returned by the request layer.
// Status is zero when no response was received.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network request failed: %s", e.Message)
	}
	return e.Message
}

// Unwrap lets errors.Is(err, ErrTransport) identify offline failures.
func (e *APIError) Unwrap() error {
	if e.Status == 0 {
		return ErrTransport
	}
	return nil
}

// IsOffline reports whether err means the backend could not be reached at
// any configured URL.
func IsOffline(err error) bool {
	return errors.Is(err, ErrTransport)
}

// StatusCode returns the HTTP status carried by err, or zero.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func transportError(err error) *APIError {
	return &APIError{Message: err.Error()}
}

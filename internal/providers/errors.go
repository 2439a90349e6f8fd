package providers

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrMissingAPIKey   = errors.New("API key not configured")
	ErrNoMessages      = errors.New("no messages to send")
	ErrCancelled       = errors.New("request cancelled")
	ErrNoResponse      = errors.New("no response received from streaming API")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrNotConfigured   = errors.New("provider not configured")
)

// HTTPError is returned for any non-2xx backend response.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("API error: %d %s - %s", e.StatusCode, e.Status, e.Body)
}

// Message returns error.message from a JSON error body, or the raw body.
func (e *HTTPError) Message() string {
	if msg := gjson.Get(e.Body, "error.message"); msg.Exists() {
		return msg.String()
	}

	return e.Body
}

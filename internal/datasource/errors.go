package datasource

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned before any request is sent when no
	// API key has been stored.
	ErrMissingCredential = errors.New("datasource: api key not set")
	// ErrUnauthorized means the upstream rejected the stored API key.
	ErrUnauthorized = errors.New("datasource: api key rejected")
)

// RequestError is a transport failure or a non-2xx response from the
// market data API. StatusCode is 0 when no response was received.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("datasource: %s: upstream returned %s", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("datasource: %s: %v", e.Endpoint, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

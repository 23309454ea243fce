package blockfrost

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for failure cases
var (
	ErrMissingProjectID  = errors.New("blockfrost project id is not configured")
	ErrNotFound          = errors.New("not found")
	ErrAccessDenied      = errors.New("access denied")
	ErrRequestFailed     = errors.New("request failed")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidRecord     = errors.New("invalid record")
)

// APIError is a non-success response from the API, classified by status code
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusNotFound:
		return fmt.Sprintf("%s: %s (status %d)", e.Endpoint, ErrNotFound, e.StatusCode)
	case http.StatusForbidden:
		return fmt.Sprintf("%s: %s (status %d): %s", e.Endpoint, ErrAccessDenied, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("%s: %s with status %d", e.Endpoint, ErrRequestFailed, e.StatusCode)
	}
}

// Unwrap exposes the sentinel matching the status code so errors.Is works
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrAccessDenied
	default:
		return ErrRequestFailed
	}
}

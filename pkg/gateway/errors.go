package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors surfaced by the gateway and the endpoint clients built on it.
var (
	ErrNetwork         = errors.New("network failure")
	ErrUnexpectedShape = errors.New("unexpected response shape")
	ErrInvalidConfig   = errors.New("invalid gateway config")
)

// StatusError reports a JSON response with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

// Error returns the server-provided message.
func (statusError *StatusError) Error() string {
	return statusError.Message
}

// ResponseFormatError reports a response that was not JSON.
type ResponseFormatError struct {
	StatusCode int
	HTML       bool
	Snippet    string
}

// Error distinguishes HTML error pages from other non-JSON payloads.
func (formatError *ResponseFormatError) Error() string {
	if formatError.HTML {
		return fmt.Sprintf("server returned HTML page instead of JSON (%d); the API endpoint may be unavailable", formatError.StatusCode)
	}
	return fmt.Sprintf("server returned non-JSON response (%d)", formatError.StatusCode)
}

// Unwrap classifies format failures as network failures.
func (formatError *ResponseFormatError) Unwrap() error {
	return ErrNetwork
}

// ShapeError reports a JSON body that matched none of the known shapes of an endpoint.
type ShapeError struct {
	Endpoint string
	Body     []byte
}

// Error names the endpoint whose payload could not be parsed.
func (shapeError *ShapeError) Error() string {
	return fmt.Sprintf("%s: %v", shapeError.Endpoint, ErrUnexpectedShape)
}

// Unwrap returns ErrUnexpectedShape.
func (shapeError *ShapeError) Unwrap() error {
	return ErrUnexpectedShape
}

// RejectedError reports a 2xx response whose envelope carries success=false.
type RejectedError struct {
	Endpoint string
	Message  string
}

// Error returns the rejection message.
func (rejectedError *RejectedError) Error() string {
	if rejectedError.Message == "" {
		return fmt.Sprintf("%s: request rejected", rejectedError.Endpoint)
	}
	return rejectedError.Message
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusError *StatusError
	if errors.As(err, &statusError) {
		return statusError.StatusCode
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

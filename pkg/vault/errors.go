package vault

import (
	"errors"
	"fmt"
)

// Failure kinds; every fetch error matches exactly one of these with errors.Is.
var (
	ErrNetwork      = errors.New("network error")
	ErrHTTP         = errors.New("http error")
	ErrParse        = errors.New("parse error")
	ErrMissingField = errors.New("missing field")
)

// NetworkError covers connection refused, DNS failures and broken bodies.
type NetworkError struct {
	URL string
	Err error
}

// Error reports the failing URL and cause
func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNetwork, e.URL, e.Err)
}

// Is matches ErrNetwork
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// Unwrap returns the transport error
func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is returned for any status outside 2xx.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

// Error mirrors the status line and URL
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s for url: %s", ErrHTTP, e.Status, e.URL)
}

// Unwrap returns ErrHTTP
func (e *HTTPError) Unwrap() error { return ErrHTTP }

// ParseError is returned when the body is not the expected JSON shape.
type ParseError struct {
	Err error
}

// Error includes the decoder message
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrParse, e.Err)
}

// Is matches ErrParse
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Unwrap returns the decoder error
func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError names the first required key absent from the package.
type MissingFieldError struct {
	Field string
}

// Error names the missing key
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %q", ErrMissingField, e.Field)
}

// Unwrap returns ErrMissingField
func (e *MissingFieldError) Unwrap() error { return ErrMissingField }

// Kind reports which failure class err belongs to, for metrics labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrHTTP):
		return "http"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	default:
		return "unknown"
	}
}

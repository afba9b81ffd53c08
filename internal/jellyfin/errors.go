// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package jellyfin

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrNotAuthenticated = errors.New("jellyfin: no active session")
	ErrInvalidURL       = errors.New("jellyfin: invalid endpoint url")
	ErrNetwork          = errors.New("jellyfin: transport failure")
	ErrServer           = errors.New("jellyfin: non-2xx response")
	ErrDecoding         = errors.New("jellyfin: malformed response body")
)

// APIError wraps a sentinel with the operation and, for server errors, the
// HTTP status code.
type APIError struct {
	Sentinel   error
	Operation  string
	StatusCode int
	Body       string
	Err        error // lower-level cause (net.Error, json error, ...)
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Sentinel)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the sentinel and the cause so callers can match either
// (e.g. ErrNetwork and context.Canceled).
func (e *APIError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Sentinel}
	}
	return []error{e.Sentinel, e.Err}
}

func newError(op string, sentinel error, status int, body string, cause error) error {
	return &APIError{Sentinel: sentinel, Operation: op, StatusCode: status, Body: body, Err: cause}
}

// StatusCode returns the HTTP status of a server error.
func StatusCode(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// Classify maps an error to a stable, low-cardinality label for metrics and logs.
func Classify(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrServer):
		return "server_error"
	case errors.Is(err, ErrDecoding):
		return "decoding_error"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	default:
		return "error"
	}
}

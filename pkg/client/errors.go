package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of transport failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection, reset and timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassMalformed represents responses that are not a valid page envelope.
	ErrorClassMalformed ErrorClass = "malformed"
)

// ErrMalformedResponse is wrapped by TransportError for bodies that cannot be
// decoded into a page envelope.
var ErrMalformedResponse = errors.New("malformed response")

// TransientTransportError is a connectivity failure worth retrying.
type TransientTransportError struct {
	Endpoint string
	Page     int
	Err      error
}

// Error implements the error interface.
func (e *TransientTransportError) Error() string {
	return fmt.Sprintf("riksdag %s page %d: transient network error: %v", e.Endpoint, e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransientTransportError) Unwrap() error {
	return e.Err
}

// TransportError is a failure that retrying will not fix: an HTTP error
// status or a malformed response body.
type TransportError struct {
	Endpoint   string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("riksdag %s error (endpoint %s, status %d): %s: %v",
			e.ErrorClass, e.Endpoint, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("riksdag %s error (endpoint %s, status %d): %s",
		e.ErrorClass, e.Endpoint, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is, or wraps, a TransientTransportError.
func IsTransient(err error) bool {
	var transient *TransientTransportError
	return errors.As(err, &transient)
}

// classifyStatus maps an HTTP status to an error class. Success statuses
// yield "".
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

func malformed(endpoint string, status int, format string, args ...any) *TransportError {
	return &TransportError{
		Endpoint:   endpoint,
		StatusCode: status,
		ErrorClass: ErrorClassMalformed,
		Message:    fmt.Sprintf(format, args...),
		Err:        ErrMalformedResponse,
	}
}

func statusError(endpoint string, resp *http.Response) *TransportError {
	return &TransportError{
		Endpoint:   endpoint,
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
	}
}

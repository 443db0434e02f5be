package smpclient

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the SMP does not know the participant or the
// document type (HTTP 404, 410 or 204). It is not a failure.
var ErrNotFound = errors.New("not found on SMP")

// TransportError is a network level failure talking to the SMP
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("SMP request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusError is an unexpected HTTP status
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("SMP returned status %d for %s (Location: %s)", e.StatusCode, e.URL, e.Location)
	}
	return fmt.Sprintf("SMP returned status %d for %s", e.StatusCode, e.URL)
}

// ProtocolViolationError is an SMP answer the protocol forbids, such as an
// HTTP redirect on a Peppol SMP.
type ProtocolViolationError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *ProtocolViolationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("SMP protocol violation at %s: %s (status %d)", e.URL, e.Reason, e.StatusCode)
	}
	return fmt.Sprintf("SMP protocol violation at %s: %s", e.URL, e.Reason)
}

// SchemaError is a response that is not a valid document of the expected type
type SchemaError struct {
	URL      string
	Document string
	Reason   string
	Err      error
}

func (e *SchemaError) Error() string {
	msg := fmt.Sprintf("invalid %s from %s: %s", e.Document, e.URL, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaError) Unwrap() error { return e.Err }

// SignatureError is a missing, broken or untrusted XML signature
type SignatureError struct {
	URL    string
	Reason string
	Err    error
}

func (e *SignatureError) Error() string {
	msg := fmt.Sprintf("signature check of %s failed: %s", e.URL, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SignatureError) Unwrap() error { return e.Err }

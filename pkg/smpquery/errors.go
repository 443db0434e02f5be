package smpquery

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirosfoundation/go-smp/pkg/discovery"
	"github.com/sirosfoundation/go-smp/pkg/identifier"
	"github.com/sirosfoundation/go-smp/pkg/smpclient"
)

// Errors a query can fail with. Only the first four end a query; the others
// reach callers through Hooks.OnException.
var (
	// ErrInvalidIdentifier is returned when the participant identifier is
	// not valid in any candidate registry
	ErrInvalidIdentifier = errors.New("invalid participant identifier")

	// ErrUnknownRegistry is returned for a registry ID not in the catalog
	ErrUnknownRegistry = errors.New("unknown registry")

	// ErrNotRegistered is returned when the requested registry has no DNS
	// record for the participant
	ErrNotRegistered = errors.New("participant not registered")

	// ErrNotRegisteredInAnyRegistry is returned when auto-detection found
	// the participant nowhere
	ErrNotRegisteredInAnyRegistry = errors.New("participant not registered in any registry")

	// ErrTransportFailure marks DNS failures of a concrete registry lookup
	ErrTransportFailure = errors.New("transport failure")

	// ErrUnparsableDocument marks documents that were received but could not
	// be parsed
	ErrUnparsableDocument = errors.New("unparsable document")
)

// Kind is the category of an error as presented to users
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidIdentifier
	KindUnknownRegistry
	KindNotRegistered
	KindTransportFailure
	KindProtocolViolation
	KindUnparsableDocument
)

func (k Kind) String() string {
	switch k {
	case KindInvalidIdentifier:
		return "invalid-identifier"
	case KindUnknownRegistry:
		return "unknown-registry"
	case KindNotRegistered:
		return "not-registered"
	case KindTransportFailure:
		return "transport-failure"
	case KindProtocolViolation:
		return "protocol-violation"
	case KindUnparsableDocument:
		return "unparsable-document"
	}
	return "unknown"
}

// Classify maps any error returned or reported by this module to its Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var (
		violation *smpclient.ProtocolViolationError
		sigErr    *smpclient.SignatureError
		schemaErr *smpclient.SchemaError
		dnsErr    *discovery.DNSError
		tErr      *smpclient.TransportError
		statusErr *smpclient.HTTPStatusError
	)

	switch {
	case errors.Is(err, ErrInvalidIdentifier), errors.Is(err, identifier.ErrInvalidIdentifier):
		return KindInvalidIdentifier
	case errors.Is(err, ErrUnknownRegistry):
		return KindUnknownRegistry
	case errors.Is(err, ErrNotRegistered), errors.Is(err, ErrNotRegisteredInAnyRegistry),
		errors.Is(err, smpclient.ErrNotFound):
		return KindNotRegistered
	case errors.As(err, &violation), errors.As(err, &sigErr):
		return KindProtocolViolation
	case errors.Is(err, ErrUnparsableDocument), errors.As(err, &schemaErr):
		return KindUnparsableDocument
	case errors.Is(err, ErrTransportFailure), errors.As(err, &dnsErr), errors.As(err, &tErr),
		errors.As(err, &statusErr), errors.Is(err, context.DeadlineExceeded):
		return KindTransportFailure
	}
	return KindUnknown
}

// Describe renders err for end users. Technical detail is appended only
// when debug is set.
func Describe(err error, debug bool) string {
	if err == nil {
		return ""
	}

	var msg string
	switch Classify(err) {
	case KindInvalidIdentifier:
		// input errors are safe to show
		return "The provided identifier is not valid: " + err.Error()
	case KindUnknownRegistry:
		return "The selected registry is not known: " + err.Error()
	case KindNotRegistered:
		if errors.Is(err, ErrNotRegisteredInAnyRegistry) {
			msg = "The participant is not registered in any of the known registries."
		} else {
			msg = "The participant is not registered."
		}
	case KindProtocolViolation:
		var violation *smpclient.ProtocolViolationError
		if errors.As(err, &violation) && violation.StatusCode >= http.StatusMultipleChoices && violation.StatusCode < http.StatusBadRequest {
			msg = "The SMP answered with an HTTP redirect, which the Peppol SMP specification does not allow."
		} else {
			msg = "The SMP answer violates the SMP protocol."
		}
	case KindUnparsableDocument:
		msg = "The document received from the server could not be parsed."
	case KindTransportFailure:
		msg = "A technical error occurred while querying the network."
	default:
		msg = "An unexpected error occurred."
	}

	if debug {
		msg += " Details: " + err.Error()
	}
	return msg
}

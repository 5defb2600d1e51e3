// Package resilience classifies failed backend calls, suggests follow-up
// actions, and tracks consecutive failures to recommend fallback mode.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// FailureKind tags which shape a Failure carries.
type FailureKind int

const (
	// KindUnknown is a failure whose shape was not recognized.
	KindUnknown FailureKind = iota
	// KindNoResponse means the request was sent but nothing came back.
	KindNoResponse
	// KindTransport means a transport-level error code is known.
	KindTransport
	// KindHTTP means the backend answered with an error status.
	KindHTTP
)

func (k FailureKind) String() string {
	switch k {
	case KindNoResponse:
		return "no_response"
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// TransportCode identifies a transport failure.
type TransportCode string

const (
	TransportConnRefused TransportCode = "ECONNREFUSED"
	TransportDNS         TransportCode = "ENOTFOUND"
	TransportTimeout     TransportCode = "ETIMEDOUT"
)

// Failure is the tagged union produced right after a backend call fails.
// Classification operates only on this type.
type Failure struct {
	Kind      FailureKind
	Transport TransportCode // set when Kind == KindTransport
	Status    int           // set when Kind == KindHTTP
	Cause     error
}

// StatusError reports a completed round-trip whose status signals failure.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend responded %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// FromStatus builds an HTTP failure.
func FromStatus(status int) Failure {
	return Failure{Kind: KindHTTP, Status: status}
}

// FromTransport builds a transport failure.
func FromTransport(code TransportCode) Failure {
	return Failure{Kind: KindTransport, Transport: code}
}

// FromError maps an error returned by net/http (or by callers wrapping a
// *StatusError) into a Failure. A nil error yields KindUnknown.
func FromError(err error) Failure {
	if err == nil {
		return Failure{Kind: KindUnknown}
	}

	var se *StatusError
	if errors.As(err, &se) {
		return Failure{Kind: KindHTTP, Status: se.StatusCode, Cause: err}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return Failure{Kind: KindTransport, Transport: TransportConnRefused, Cause: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return Failure{Kind: KindTransport, Transport: TransportTimeout, Cause: err}
		}
		return Failure{Kind: KindTransport, Transport: TransportDNS, Cause: err}
	}

	// An aborted call is reported with the timeout code.
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return Failure{Kind: KindTransport, Transport: TransportTimeout, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Failure{Kind: KindTransport, Transport: TransportTimeout, Cause: err}
	}

	// The request left the process but no response was received.
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Failure{Kind: KindNoResponse, Cause: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Failure{Kind: KindNoResponse, Cause: err}
	}

	return Failure{Kind: KindUnknown, Cause: err}
}

// Unreachable reports whether the failure says the backend cannot be reached.
func (f Failure) Unreachable() bool {
	return f.Kind == KindTransport || f.Kind == KindNoResponse
}

// ServerError reports whether the backend answered with a 5xx status.
func (f Failure) ServerError() bool {
	return f.Kind == KindHTTP && f.Status >= 500 && f.Status <= 599
}

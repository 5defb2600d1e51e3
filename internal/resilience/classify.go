package resilience

import (
	"fmt"
	"strings"
)

// Category is the coarse error taxonomy shown to callers.
type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryValidation Category = "validation"
	CategoryBusiness   Category = "business"
)

// Code is a stable, machine-readable error identifier.
type Code string

const (
	CodeNetworkError      Code = "NETWORK_ERROR"
	CodeConnectionRefused Code = "CONNECTION_REFUSED"
	CodeDNSError          Code = "DNS_ERROR"
	CodeTimeout           Code = "TIMEOUT_ERROR"
	CodeAuthExpired       Code = "AUTH_EXPIRED"
	CodeUnknown           Code = "UNKNOWN_ERROR"
)

// HTTPCode returns the status-derived code, e.g. HTTP_422.
func HTTPCode(status int) Code {
	return Code(fmt.Sprintf("HTTP_%d", status))
}

// Glyph is an indicator rendered next to a message. The mapping from code
// to glyph is part of the client contract.
type Glyph string

const (
	GlyphConnection Glyph = "🔌"
	GlyphClock      Glyph = "⏰"
	GlyphWrench     Glyph = "🔧"
	GlyphConfused   Glyph = "😕"
	GlyphSparkle    Glyph = "✨"
	GlyphGlobe      Glyph = "🌐"
	GlyphLock       Glyph = "🔒"
	GlyphWarning    Glyph = "⚠️"
)

// Glyphs lists every indicator glyph.
var Glyphs = []Glyph{
	GlyphConnection, GlyphClock, GlyphWrench, GlyphConfused,
	GlyphSparkle, GlyphGlobe, GlyphLock, GlyphWarning,
}

// ClassifiedError is the stable classification of a failed backend call.
type ClassifiedError struct {
	Category  Category `json:"category"`
	Code      Code     `json:"code"`
	Message   string   `json:"message"`
	Glyph     Glyph    `json:"glyph"`
	Retryable bool     `json:"retryable"`
	Fallback  *Action  `json:"fallbackAction,omitempty"`

	// Status is the backend status for HTTP failures, zero otherwise.
	Status int `json:"status,omitempty"`
	// Transport is set when the backend was unreachable.
	Transport bool `json:"-"`
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Category, e.Message)
}

func message(g Glyph, text string) string {
	return string(g) + " " + text
}

// Classify turns a Failure into a ClassifiedError. It never panics; shapes
// it does not recognize become a generic business error.
func Classify(f Failure) ClassifiedError {
	switch f.Kind {
	case KindNoResponse:
		return ClassifiedError{
			Category:  CategoryNetwork,
			Code:      CodeNetworkError,
			Glyph:     GlyphGlobe,
			Message:   message(GlyphGlobe, "We couldn't reach the shop assistant. Please check your connection."),
			Retryable: true,
			Fallback:  contactSupportAction(),
			Transport: true,
		}
	case KindTransport:
		return classifyTransport(f.Transport)
	case KindHTTP:
		return classifyStatus(f.Status)
	}
	return unknown()
}

func classifyTransport(code TransportCode) ClassifiedError {
	ce := ClassifiedError{
		Category:  CategoryNetwork,
		Retryable: true,
		Fallback:  contactSupportAction(),
		Transport: true,
	}
	switch code {
	case TransportConnRefused:
		ce.Code = CodeConnectionRefused
		ce.Glyph = GlyphConnection
		ce.Message = message(GlyphConnection, "The service refused the connection. It may be restarting.")
	case TransportDNS:
		ce.Code = CodeDNSError
		ce.Glyph = GlyphGlobe
		ce.Message = message(GlyphGlobe, "The service address could not be resolved.")
	case TransportTimeout:
		ce.Code = CodeTimeout
		ce.Glyph = GlyphClock
		ce.Message = message(GlyphClock, "The request took too long. Please try again.")
	default:
		ce.Code = CodeNetworkError
		ce.Glyph = GlyphGlobe
		ce.Message = message(GlyphGlobe, "A network problem interrupted the request.")
	}
	return ce
}

func classifyStatus(status int) ClassifiedError {
	switch {
	case status == 401 || status == 403:
		return ClassifiedError{
			Category: CategoryBusiness,
			Code:     CodeAuthExpired,
			Glyph:    GlyphLock,
			Message:  message(GlyphLock, "Your session has expired. Please sign in again."),
			Fallback: reauthenticateAction(),
			Status:   status,
		}
	case status >= 400 && status <= 499:
		return ClassifiedError{
			Category: CategoryValidation,
			Code:     HTTPCode(status),
			Glyph:    GlyphWarning,
			Message:  message(GlyphWarning, "Something in the request wasn't accepted. Please check it and try again."),
			Fallback: helpAction(),
			Status:   status,
		}
	case status >= 500 && status <= 599:
		return ClassifiedError{
			Category:  CategoryNetwork,
			Code:      HTTPCode(status),
			Glyph:     GlyphWrench,
			Message:   message(GlyphWrench, "The service is having trouble right now."),
			Retryable: true,
			Fallback:  contactSupportAction(),
			Status:    status,
		}
	}
	ce := unknown()
	ce.Status = status
	return ce
}

func unknown() ClassifiedError {
	return ClassifiedError{
		Category: CategoryBusiness,
		Code:     CodeUnknown,
		Glyph:    GlyphConfused,
		Message:  message(GlyphConfused, "Something unexpected happened."),
		Fallback: helpAction(),
	}
}

// GlyphCount returns how many indicator glyphs appear in s.
func GlyphCount(s string) int {
	n := 0
	for _, g := range Glyphs {
		n += strings.Count(s, string(g))
	}
	return n
}

// ShouldFallback reports whether the caller should switch to the local
// fallback responder immediately, without waiting for the failure threshold.
func ShouldFallback(f Failure) bool {
	return f.Unreachable() || f.ServerError()
}

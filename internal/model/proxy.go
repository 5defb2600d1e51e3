// Package model defines shared types for the gateway.
package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// ProxyRequest represents an inbound call to be forwarded to the backend.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Segments []string // path after the proxy prefix, never empty
	Header   http.Header
	Body     io.Reader // inbound body; only read for POST, PUT and PATCH
}

// ProxyResponse represents a raw backend response.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Envelope is the normalized response returned to the client: the backend
// status and a JSON body.
type Envelope struct {
	StatusCode int
	Body       json.RawMessage
}

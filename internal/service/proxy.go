// Package service implements the core proxy forwarding logic.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"storefront-gateway/internal/client"
	"storefront-gateway/internal/config"
	"storefront-gateway/internal/model"
)

// ErrEmptyPath is returned when no path segments follow the proxy prefix.
var ErrEmptyPath = errors.New("proxy path is empty")

// maxLoggedBody caps how much of a body is copied into a log line.
const maxLoggedBody = 4096

var emptyObject = json.RawMessage(`{}`)

// ProxyService forwards storefront calls to the backend and normalizes the
// response into a JSON envelope.
type ProxyService struct {
	client *client.BackendClient
	cfg    *config.Config
	logger *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.BackendClient, cfg *config.Config, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client: c,
		cfg:    cfg,
		logger: logger.With("component", "proxy_service"),
	}
}

// Forward sends a ProxyRequest to the backend and returns the normalized
// envelope. Any completed round-trip yields an envelope, whatever the
// backend's status or body; an error means the backend was not reached.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.Envelope, error) {
	if len(pr.Segments) == 0 {
		return nil, ErrEmptyPath
	}

	// Resolved once per call.
	origin := s.cfg.Backend.Origin
	target := BuildTargetURL(origin, pr.Segments)
	body := s.readBody(pr.Method, pr.Body)
	header := ForwardHeaders(pr.Header)

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"url", target,
		"body", truncate(body),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	resp, err := s.client.Send(pr.Ctx, pr.Method, target, header, reader)
	if err != nil {
		return nil, fmt.Errorf("forward to backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}

	s.logger.Debug("backend response",
		"method", pr.Method,
		"url", target,
		"status", resp.StatusCode,
		"body", truncate(raw),
	)

	return &model.Envelope{
		StatusCode: resp.StatusCode,
		Body:       ShapeBody(raw),
	}, nil
}

// readBody returns the inbound body for methods that carry one. A read
// failure drops the body instead of failing the request.
func (s *ProxyService) readBody(method string, r io.Reader) []byte {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil
	}
	if r == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		s.logger.Warn("inbound body unreadable; forwarding without body",
			"method", method,
			"err", err,
		)
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// BuildTargetURL joins the origin and the path segments. Segments are
// passed through untouched.
func BuildTargetURL(origin string, segments []string) string {
	return strings.TrimRight(origin, "/") + "/" + strings.Join(segments, "/")
}

// ForwardHeaders returns the only headers sent to the backend: a fixed JSON
// content type and, when present, the inbound Authorization value.
func ForwardHeaders(src http.Header) http.Header {
	dst := make(http.Header, 2)
	dst.Set("Content-Type", "application/json")
	if vals := src.Values("Authorization"); len(vals) > 0 {
		dst["Authorization"] = vals
	}
	return dst
}

// ShapeBody normalizes a backend body: empty becomes {}, valid JSON passes
// through unchanged, and anything else is wrapped as {"data": "<text>"}.
func ShapeBody(raw []byte) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return emptyObject
	}
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	wrapped, err := json.Marshal(map[string]string{"data": string(raw)})
	if err != nil {
		return emptyObject
	}
	return wrapped
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "…"
	}
	return string(b)
}

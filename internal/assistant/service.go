// Package assistant relays storefront chat messages to the backend chat
// service and degrades to a local responder when the backend is failing.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"storefront-gateway/internal/client"
	"storefront-gateway/internal/config"
	"storefront-gateway/internal/metrics"
	"storefront-gateway/internal/model"
	"storefront-gateway/internal/resilience"
)

// ErrEmptyMessage is returned when the chat message is blank.
var ErrEmptyMessage = errors.New("message is empty")

// errEmptyReply means the backend answered 2xx without any reply text.
var errEmptyReply = errors.New("backend returned an empty reply")

// maxErrorBody caps how much of a failed response is kept.
const maxErrorBody = 1024

// chatPayload is the body sent to the backend chat endpoint.
type chatPayload struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// chatReply accepts both field names the backend has used for reply text.
type chatReply struct {
	Reply    string `json:"reply"`
	Response string `json:"response"`
}

// Service answers chat messages.
type Service struct {
	client   *client.BackendClient
	cfg      *config.Config
	store    resilience.FailureStore
	fallback *Fallback
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a Service. The metrics parameter is optional.
func NewService(c *client.BackendClient, cfg *config.Config, store resilience.FailureStore, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		client:   c,
		cfg:      cfg,
		store:    store,
		fallback: NewFallback(),
		metrics:  m,
		logger:   logger.With("component", "assistant"),
	}
}

// Reply sends the message to the backend chat service. Backend failures do
// not surface as errors: they are classified and folded into the result,
// either as a fallback reply or as a glyph message with suggested actions.
func (s *Service) Reply(ctx context.Context, session string, req model.ChatRequest) (*model.ChatResult, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}

	reply, err := s.ask(ctx, session, msg)
	if err != nil {
		return s.degrade(ctx, session, msg, req.Action, err), nil
	}

	if err := s.store.Reset(ctx, session); err != nil {
		s.logger.Warn("reset failure counter", "session_id", session, "err", err)
	}

	return &model.ChatResult{
		Reply:    reply,
		Products: ExtractProducts(reply),
	}, nil
}

func (s *Service) degrade(ctx context.Context, session, msg string, original *resilience.OriginalAction, err error) *model.ChatResult {
	f := resilience.FromError(err)
	ce := resilience.Classify(f)

	crossed, serr := s.store.RecordFailure(ctx, session)
	if serr != nil {
		s.logger.Warn("record failure", "session_id", session, "err", serr)
	}

	var reason string
	switch {
	case f.Unreachable():
		reason = "unreachable"
	case f.ServerError():
		reason = "server_error"
	case crossed:
		reason = "threshold"
	}

	s.logger.Warn("assistant backend call failed",
		"session_id", session,
		"err", err,
		"kind", f.Kind.String(),
		"code", ce.Code,
		"threshold_crossed", crossed,
		"fallback", reason != "",
	)

	if s.metrics != nil {
		// Unreachable failures were already counted by the backend client.
		if !f.Unreachable() {
			s.metrics.ClassifiedErrors.WithLabelValues(string(ce.Category), string(ce.Code)).Inc()
		}
		if reason != "" {
			s.metrics.FallbackActivations.WithLabelValues(reason).Inc()
		}
	}

	if original == nil {
		original = &resilience.OriginalAction{
			Name:   "send_message",
			Params: map[string]any{"message": msg},
		}
	}

	result := &model.ChatResult{
		Error:   &ce,
		Actions: resilience.SuggestActions(ce, original),
	}
	if reason != "" {
		result.Reply = s.fallback.Respond(msg)
		result.Fallback = true
		result.Products = ExtractProducts(result.Reply)
		return result
	}
	result.Reply = ce.Message
	return result
}

// ask performs one backend chat call. Non-2xx statuses come back as
// *resilience.StatusError.
func (s *Service) ask(ctx context.Context, session, msg string) (string, error) {
	payload, err := json.Marshal(chatPayload{Message: msg, SessionID: session})
	if err != nil {
		return "", fmt.Errorf("encode chat payload: %w", err)
	}

	url := strings.TrimRight(s.cfg.Backend.Origin, "/") + s.cfg.Assistant.ChatPath
	header := http.Header{
		"Content-Type": {"application/json"},
		"Accept":       {"application/json"},
	}

	resp, err := s.client.Send(ctx, http.MethodPost, url, header, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("chat: %w", &resilience.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("chat: read reply: %w", err)
	}

	reply := parseReply(raw)
	if reply == "" {
		return "", errEmptyReply
	}
	return reply, nil
}

// parseReply extracts reply text from a JSON body, or uses the body itself
// when it is not JSON.
func parseReply(raw []byte) string {
	var r chatReply
	if err := json.Unmarshal(raw, &r); err == nil {
		if r.Reply != "" {
			return strings.TrimSpace(r.Reply)
		}
		return strings.TrimSpace(r.Response)
	}
	return strings.TrimSpace(string(raw))
}

// FailureCount returns the session's consecutive failure count.
func (s *Service) FailureCount(ctx context.Context, session string) (int, error) {
	return s.store.Count(ctx, session)
}

// ResetFailures clears the session's consecutive failure count.
func (s *Service) ResetFailures(ctx context.Context, session string) error {
	return s.store.Reset(ctx, session)
}

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"storefront-gateway/internal/assistant"
	"storefront-gateway/internal/config"
	"storefront-gateway/internal/middleware"
	"storefront-gateway/internal/model"
	"storefront-gateway/internal/resilience"
)

// AssistantHandler serves the storefront chat endpoints.
type AssistantHandler struct {
	service *assistant.Service
	session echo.MiddlewareFunc
	logger  *slog.Logger
}

// NewAssistantHandler creates an AssistantHandler.
func NewAssistantHandler(svc *assistant.Service, cfg *config.Config, logger *slog.Logger) *AssistantHandler {
	ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
	return &AssistantHandler{
		service: svc,
		session: middleware.Session(cfg.Session.CookieName, ttl),
		logger:  logger.With("component", "assistant_handler"),
	}
}

type requestError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Chat relays one message. Backend failures are reported inside a 200
// result so the widget can render the glyph message and actions.
func (h *AssistantHandler) Chat(c echo.Context) error {
	var req model.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, requestError{
			Error:   "invalid_request",
			Message: "request body must be a JSON object",
		})
	}

	result, err := h.service.Reply(c.Request().Context(), middleware.SessionID(c), req)
	if errors.Is(err, assistant.ErrEmptyMessage) {
		return c.JSON(http.StatusBadRequest, requestError{
			Error:   "invalid_request",
			Message: err.Error(),
		})
	}
	if err != nil {
		h.logger.Error("chat failed", "err", err)
		return c.JSON(http.StatusInternalServerError, requestError{
			Error:   "internal_error",
			Message: "chat failed",
		})
	}

	return c.JSON(http.StatusOK, result)
}

// Reset clears the session's consecutive failure count.
func (h *AssistantHandler) Reset(c echo.Context) error {
	session := middleware.SessionID(c)
	if err := h.service.ResetFailures(c.Request().Context(), session); err != nil {
		h.logger.Error("reset failures", "session_id", session, "err", err)
		return c.JSON(http.StatusServiceUnavailable, requestError{
			Error:   "store_unavailable",
			Message: "failure counter could not be reset",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

type sessionStatus struct {
	SessionID           string `json:"session_id"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	Threshold           int    `json:"threshold"`
}

// Status reports the session's failure count.
func (h *AssistantHandler) Status(c echo.Context) error {
	session := middleware.SessionID(c)
	n, err := h.service.FailureCount(c.Request().Context(), session)
	if err != nil {
		h.logger.Error("failure count", "session_id", session, "err", err)
		return c.JSON(http.StatusServiceUnavailable, requestError{
			Error:   "store_unavailable",
			Message: "failure counter could not be read",
		})
	}
	return c.JSON(http.StatusOK, sessionStatus{
		SessionID:           session,
		ConsecutiveFailures: n,
		Threshold:           resilience.FailureThreshold,
	})
}

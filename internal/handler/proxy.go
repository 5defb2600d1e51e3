package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/labstack/echo/v4"

	"storefront-gateway/internal/config"
	"storefront-gateway/internal/model"
	"storefront-gateway/internal/resilience"
	"storefront-gateway/internal/service"
)

// ProxyHandler forwards /proxy/* calls to the backend.
type ProxyHandler struct {
	service *service.ProxyService
	cfg     *config.Config
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		cfg:     cfg,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle forwards the request and writes the normalized JSON envelope with
// the backend's status code.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	pr := &model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Segments: splitSegments(c.Param("*")),
		Header:   req.Header,
		Body:     req.Body,
	}

	env, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}

	if !bodyAllowed(env.StatusCode) {
		return c.NoContent(env.StatusCode)
	}
	return c.JSONBlob(env.StatusCode, env.Body)
}

// bodyAllowed reports whether a response with this status may carry a body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// splitSegments splits the wildcard capture into path segments. An empty
// capture yields no segments.
func splitSegments(p string) []string {
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// proxyError is the body written when the backend could not be reached.
type proxyError struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Code    resilience.Code `json:"code,omitempty"`
	Stack   string          `json:"stack,omitempty"`
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrEmptyPath) {
		return c.JSON(http.StatusNotFound, proxyError{
			Error:   "not_found",
			Message: err.Error(),
		})
	}

	ce := resilience.Classify(resilience.FromError(err))

	h.logger.Error("proxy error",
		"err", err,
		"code", ce.Code,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)

	body := proxyError{
		Error:   "proxy_error",
		Message: err.Error(),
		Code:    ce.Code,
	}
	if h.cfg.Debug.ExposeStack {
		body.Stack = string(debug.Stack())
	}
	return c.JSON(http.StatusInternalServerError, body)
}

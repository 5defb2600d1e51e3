package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// proxyMethods are the verbs accepted under /proxy.
var proxyMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, proxy *ProxyHandler, assistant *AssistantHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/gateway/status", health.Status)

	e.Match(proxyMethods, "/proxy/*", proxy.Handle)

	g := e.Group("/assistant", assistant.session)
	g.POST("/chat", assistant.Chat)
	g.POST("/reset", assistant.Reset)
	g.GET("/status", assistant.Status)
}

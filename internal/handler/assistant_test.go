package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"storefront-gateway/internal/model"
	"storefront-gateway/internal/resilience"
)

const testSession = "6f1c2a0e-3d44-4a8e-9a55-0d6b7f1e2c3a"

func serveAssistant(t *testing.T, h *AssistantHandler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	g := e.Group("/assistant", h.session)
	g.POST("/chat", h.Chat)
	g.POST("/reset", h.Reset)
	g.GET("/status", h.Status)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: "sf_session", Value: testSession})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAssistantHandler_Chat(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["session_id"] != testSession {
			t.Errorf("session_id = %q, want %q", in["session_id"], testSession)
		}
		_, _ = w.Write([]byte(`{"reply":"Try these:\n1. **Cedar Atlas** by Atelier Sel ($110) - dry cedar"}`))
	}))
	defer backend.Close()

	h, _ := newTestAssistantHandler(t, testConfig(backend.URL))
	rec := serveAssistant(t, h, http.MethodPost, "/assistant/chat", `{"message":"something woody"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got model.ChatResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Fallback || got.Error != nil {
		t.Errorf("result = %+v, want a plain reply", got)
	}
	if len(got.Products) != 1 || got.Products[0].Name != "Cedar Atlas" {
		t.Errorf("products = %+v, want Cedar Atlas", got.Products)
	}
}

func TestAssistantHandler_ChatRejectsBadInput(t *testing.T) {
	h, _ := newTestAssistantHandler(t, testConfig("http://127.0.0.1:1"))

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"message":`},
		{"blank message", `{"message":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveAssistant(t, h, http.MethodPost, "/assistant/chat", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestAssistantHandler_ChatBackendDown(t *testing.T) {
	h, store := newTestAssistantHandler(t, testConfig("http://127.0.0.1:1"))

	rec := serveAssistant(t, h, http.MethodPost, "/assistant/chat", `{"message":"a floral gift"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got model.ChatResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Fallback {
		t.Error("fallback = false, want true for an unreachable backend")
	}
	if !strings.HasPrefix(got.Reply, string(resilience.GlyphSparkle)) {
		t.Errorf("reply = %q, want sparkle prefix", got.Reply)
	}
	if got.Error == nil || got.Error.Code != resilience.CodeConnectionRefused {
		t.Errorf("error = %+v, want CONNECTION_REFUSED", got.Error)
	}

	n, _ := store.Count(context.Background(), testSession)
	if n != 1 {
		t.Errorf("failure count = %d, want 1", n)
	}
}

func TestAssistantHandler_StatusAndReset(t *testing.T) {
	h, store := newTestAssistantHandler(t, testConfig("http://127.0.0.1:1"))
	ctx := context.Background()
	for range 2 {
		if _, err := store.RecordFailure(ctx, testSession); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}

	rec := serveAssistant(t, h, http.MethodGet, "/assistant/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var st sessionStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.SessionID != testSession || st.ConsecutiveFailures != 2 || st.Threshold != resilience.FailureThreshold {
		t.Errorf("status = %+v, want %s/2/%d", st, testSession, resilience.FailureThreshold)
	}

	rec = serveAssistant(t, h, http.MethodPost, "/assistant/reset", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("reset status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if n, _ := store.Count(ctx, testSession); n != 0 {
		t.Errorf("failure count after reset = %d, want 0", n)
	}
}

func TestAssistantHandler_IssuesSessionCookie(t *testing.T) {
	h, _ := newTestAssistantHandler(t, testConfig("http://127.0.0.1:1"))

	e := echo.New()
	e.GET("/assistant/status", h.Status, h.session)
	req := httptest.NewRequest(http.MethodGet, "/assistant/status", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sf_session" {
		t.Fatalf("cookies = %v, want one sf_session cookie", cookies)
	}
	if cookies[0].MaxAge != 3600 {
		t.Errorf("MaxAge = %d, want 3600", cookies[0].MaxAge)
	}
}

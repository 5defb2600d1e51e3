package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestClassify_Transport(t *testing.T) {
	tests := []struct {
		name     string
		code     TransportCode
		wantCode Code
		glyph    Glyph
	}{
		{"connection refused", TransportConnRefused, CodeConnectionRefused, GlyphConnection},
		{"dns failure", TransportDNS, CodeDNSError, GlyphGlobe},
		{"timeout", TransportTimeout, CodeTimeout, GlyphClock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FromTransport(tt.code)
			ce := Classify(f)

			if ce.Category != CategoryNetwork {
				t.Errorf("category = %q, want %q", ce.Category, CategoryNetwork)
			}
			if ce.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", ce.Code, tt.wantCode)
			}
			if !ce.Retryable {
				t.Error("retryable = false, want true")
			}
			if !strings.Contains(ce.Message, string(tt.glyph)) {
				t.Errorf("message %q does not contain glyph %q", ce.Message, tt.glyph)
			}
			if n := GlyphCount(ce.Message); n != 1 {
				t.Errorf("message has %d glyphs, want 1", n)
			}
			if !ShouldFallback(f) {
				t.Error("ShouldFallback = false, want true")
			}
		})
	}
}

func TestClassify_NoResponse(t *testing.T) {
	f := Failure{Kind: KindNoResponse}
	ce := Classify(f)

	if ce.Code != CodeNetworkError {
		t.Errorf("code = %q, want %q", ce.Code, CodeNetworkError)
	}
	if ce.Category != CategoryNetwork || !ce.Retryable {
		t.Errorf("got category=%q retryable=%v, want network/true", ce.Category, ce.Retryable)
	}
	if !ShouldFallback(f) {
		t.Error("ShouldFallback = false, want true")
	}
}

func TestClassify_ClientErrorsAreValidation(t *testing.T) {
	for status := 400; status <= 499; status++ {
		if status == 401 || status == 403 {
			continue
		}
		f := FromStatus(status)
		ce := Classify(f)
		if ce.Category != CategoryValidation {
			t.Errorf("status %d: category = %q, want %q", status, ce.Category, CategoryValidation)
		}
		if ce.Retryable {
			t.Errorf("status %d: retryable = true, want false", status)
		}
		if ce.Code != HTTPCode(status) {
			t.Errorf("status %d: code = %q, want %q", status, ce.Code, HTTPCode(status))
		}
		if ShouldFallback(f) {
			t.Errorf("status %d: ShouldFallback = true, want false", status)
		}
	}
}

func TestClassify_ServerErrorsAreRetryable(t *testing.T) {
	for status := 500; status <= 599; status++ {
		f := FromStatus(status)
		ce := Classify(f)
		if !ce.Retryable {
			t.Errorf("status %d: retryable = false, want true", status)
		}
		if ce.Category != CategoryNetwork {
			t.Errorf("status %d: category = %q, want %q", status, ce.Category, CategoryNetwork)
		}
		if !ShouldFallback(f) {
			t.Errorf("status %d: ShouldFallback = false, want true", status)
		}
	}
}

func TestClassify_AuthExpired(t *testing.T) {
	for _, status := range []int{401, 403} {
		ce := Classify(FromStatus(status))
		if ce.Category != CategoryBusiness {
			t.Errorf("status %d: category = %q, want %q", status, ce.Category, CategoryBusiness)
		}
		if ce.Code != CodeAuthExpired {
			t.Errorf("status %d: code = %q, want %q", status, ce.Code, CodeAuthExpired)
		}
		if ce.Retryable {
			t.Errorf("status %d: retryable = true, want false", status)
		}
		if ce.Fallback == nil || ce.Fallback.ID != ActionReauthenticate {
			t.Errorf("status %d: fallback = %+v, want reauthenticate", status, ce.Fallback)
		}
		if !strings.Contains(ce.Message, string(GlyphLock)) {
			t.Errorf("status %d: message %q lacks lock glyph", status, ce.Message)
		}
	}
}

func TestClassify_Unknown(t *testing.T) {
	tests := []struct {
		name string
		f    Failure
	}{
		{"zero value", Failure{}},
		{"opaque error", FromError(errors.New("boom"))},
		{"informational status", FromStatus(302)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.f)
			if ce.Category != CategoryBusiness || ce.Code != CodeUnknown {
				t.Errorf("got %q/%q, want business/UNKNOWN_ERROR", ce.Category, ce.Code)
			}
			if ce.Retryable {
				t.Error("retryable = true, want false")
			}
			if ShouldFallback(tt.f) {
				t.Error("ShouldFallback = true, want false")
			}
		})
	}
}

func TestClassify_EveryMessageHasOneGlyph(t *testing.T) {
	failures := []Failure{
		{},
		{Kind: KindNoResponse},
		FromTransport(TransportConnRefused),
		FromTransport(TransportDNS),
		FromTransport(TransportTimeout),
		FromTransport("EUNKNOWN"),
		FromStatus(400),
		FromStatus(401),
		FromStatus(503),
	}
	for _, f := range failures {
		ce := Classify(f)
		if n := GlyphCount(ce.Message); n != 1 {
			t.Errorf("%s: message %q has %d glyphs, want 1", ce.Code, ce.Message, n)
		}
		if !strings.HasPrefix(ce.Message, string(ce.Glyph)) {
			t.Errorf("%s: message %q does not start with glyph %q", ce.Code, ce.Message, ce.Glyph)
		}
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromError(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://backend/chat", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}}
	reset := &url.Error{Op: "Get", URL: "http://backend/x", Err: errors.New("EOF")}

	tests := []struct {
		name      string
		err       error
		wantKind  FailureKind
		transport TransportCode
		status    int
	}{
		{"nil", nil, KindUnknown, "", 0},
		{"status error", fmt.Errorf("chat: %w", &StatusError{StatusCode: 502}), KindHTTP, "", 502},
		{"connection refused", refused, KindTransport, TransportConnRefused, 0},
		{"dns", &url.Error{Op: "Get", URL: "http://nohost", Err: &net.DNSError{Err: "no such host", Name: "nohost"}}, KindTransport, TransportDNS, 0},
		{"dns timeout", &net.DNSError{Err: "timeout", Name: "slow", IsTimeout: true}, KindTransport, TransportTimeout, 0},
		{"deadline", fmt.Errorf("forward: %w", context.DeadlineExceeded), KindTransport, TransportTimeout, 0},
		{"canceled", fmt.Errorf("chat: %w", &url.Error{Op: "Post", URL: "http://backend/chat", Err: context.Canceled}), KindTransport, TransportTimeout, 0},
		{"net timeout", &url.Error{Op: "Get", URL: "http://slow", Err: timeoutErr{}}, KindTransport, TransportTimeout, 0},
		{"no response", reset, KindNoResponse, "", 0},
		{"opaque", errors.New("weird"), KindUnknown, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FromError(tt.err)
			if f.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", f.Kind, tt.wantKind)
			}
			if f.Transport != tt.transport {
				t.Errorf("transport = %q, want %q", f.Transport, tt.transport)
			}
			if f.Status != tt.status {
				t.Errorf("status = %d, want %d", f.Status, tt.status)
			}
		})
	}
}

func TestSuggestActions_ConnectionRefused(t *testing.T) {
	original := &OriginalAction{Name: "send_message", Params: map[string]any{"message": "hi"}}
	ce := Classify(FromError(syscall.ECONNREFUSED))

	if ce.Code != CodeConnectionRefused {
		t.Fatalf("code = %q, want %q", ce.Code, CodeConnectionRefused)
	}
	if !strings.Contains(ce.Message, string(GlyphConnection)) {
		t.Errorf("message %q lacks connection glyph", ce.Message)
	}

	actions := SuggestActions(ce, original)
	if len(actions) != 2 {
		t.Fatalf("len(actions) = %d, want 2", len(actions))
	}
	if actions[0].ID != ActionRetry {
		t.Errorf("actions[0] = %q, want retry", actions[0].ID)
	}
	if actions[0].Payload != original {
		t.Error("retry payload is not the original action")
	}
	if actions[1].ID != ActionContactSupport {
		t.Errorf("actions[1] = %q, want contact_support", actions[1].ID)
	}
}

func TestSuggestActions_Validation(t *testing.T) {
	ce := Classify(FromStatus(400))
	if ce.Category != CategoryValidation || ce.Retryable {
		t.Fatalf("got %q retryable=%v, want validation/false", ce.Category, ce.Retryable)
	}

	actions := SuggestActions(ce, &OriginalAction{Name: "checkout"})
	var help bool
	for _, a := range actions {
		if a.ID == ActionRetry {
			t.Error("validation errors must not offer retry")
		}
		if a.ID == ActionHelp {
			help = true
		}
	}
	if !help {
		t.Errorf("actions = %+v, want a help action", actions)
	}
}

func TestSuggestActions_Table(t *testing.T) {
	tests := []struct {
		name string
		f    Failure
		want []ActionID
	}{
		{"server error", FromStatus(503), []ActionID{ActionRetry, ActionContactSupport}},
		{"timeout", FromTransport(TransportTimeout), []ActionID{ActionRetry, ActionContactSupport}},
		{"no response", Failure{Kind: KindNoResponse}, []ActionID{ActionRetry, ActionContactSupport}},
		{"auth expired", FromStatus(401), []ActionID{ActionReauthenticate}},
		{"forbidden", FromStatus(403), []ActionID{ActionReauthenticate}},
		{"unprocessable", FromStatus(422), []ActionID{ActionHelp}},
		{"unknown", Failure{}, []ActionID{ActionHelp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := SuggestActions(Classify(tt.f), nil)
			if len(actions) != len(tt.want) {
				t.Fatalf("actions = %+v, want ids %v", actions, tt.want)
			}
			for i, id := range tt.want {
				if actions[i].ID != id {
					t.Errorf("actions[%d] = %q, want %q", i, actions[i].ID, id)
				}
				if actions[i].Label == "" {
					t.Errorf("actions[%d] has empty label", i)
				}
			}
		})
	}
}

func TestClassifiedError_Error(t *testing.T) {
	ce := Classify(FromStatus(500))
	var err error = &ce
	if !strings.Contains(err.Error(), "HTTP_500") {
		t.Errorf("Error() = %q, want it to contain the code", err.Error())
	}
}

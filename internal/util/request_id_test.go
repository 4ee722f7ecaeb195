package util

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func runRequestID(t *testing.T, incoming string) (ctxID, headerID string) {
	t.Helper()
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromRequest(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	if incoming != "" {
		req.Header.Set("X-Request-Id", incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return ctxID, rec.Header().Get("X-Request-Id")
}

func TestWithRequestIDKeepsIncomingHeader(t *testing.T) {
	const incoming = "req-incoming-123"
	ctxID, headerID := runRequestID(t, incoming)
	if ctxID != incoming {
		t.Fatalf("context request id = %q, want %q", ctxID, incoming)
	}
	if headerID != incoming {
		t.Fatalf("response request id = %q, want %q", headerID, incoming)
	}
}

func TestWithRequestIDGeneratesWhenMissing(t *testing.T) {
	ctxID, headerID := runRequestID(t, "")
	if ctxID == "" {
		t.Fatal("expected generated request id in context")
	}
	if headerID != ctxID {
		t.Fatalf("response header %q does not match context id %q", headerID, ctxID)
	}
}

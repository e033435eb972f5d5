package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/kariuki00743/safipay/pkg/config"
	"github.com/kariuki00743/safipay/pkg/logger"
)

func TestRequestIDKeepsWellFormedInboundID(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "edge-7f3a9c21")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "edge-7f3a9c21" {
		t.Fatalf("expected inbound id on context, got %q", seen)
	}
	if got := rec.Header().Get(requestIDHeader); got != seen {
		t.Fatalf("expected response header %q, got %q", seen, got)
	}
}

func TestRequestIDReplacesSuspiciousInboundID(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "<script>alert(1)</script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected a minted uuid, got %q", seen)
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/release", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestAllowedOriginsMergesFrontendURL(t *testing.T) {
	got := allowedOrigins(config.AppConfig{
		FrontendURL: "https://app.safipay.co.ke/",
		CORSOrigins: []string{"https://app.safipay.co.ke", " http://localhost:5173 ", ""},
	})
	want := []string{"https://app.safipay.co.ke", "http://localhost:5173"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRouteCovered(t *testing.T) {
	tests := []struct {
		method  string
		pattern string
		want    bool
	}{
		{http.MethodPost, "/api/stkpush", true},
		{http.MethodPost, "/api/release", true},
		{http.MethodPost, "/api/transactions", true},
		{http.MethodGet, "/api/transactions", false},
		{http.MethodPost, "/api/callback", false},
		{http.MethodPost, "/api/confirm-payment", false},
	}
	for _, tt := range tests {
		if got := routeCovered(tt.method, tt.pattern); got != tt.want {
			t.Fatalf("%s %s: expected %v got %v", tt.method, tt.pattern, tt.want, got)
		}
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true,"data":{"CheckoutRequestID":"ws_CO_1"}}`))
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/stkpush", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "key-1")
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"phone":"0712345678"}`)
	second := send(`{"phone":"0712345678"}`)
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("expected replayed body, got %q vs %q", first.Body.String(), second.Body.String())
	}

	conflict := send(`{"phone":"0722000000"}`)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", conflict.Code)
	}
	var env struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(conflict.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("unexpected code %s", env.Code)
	}
}

func TestIdempotencyPassesThroughWithoutKeyAndSkipsServerErrors(t *testing.T) {
	store := newFakeStore()
	calls := 0
	status := http.StatusInternalServerError
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/release", strings.NewReader(`{}`))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored without a key")
	}

	for i := 0; i < 2; i++ {
		req = httptest.NewRequest(http.MethodPost, "/api/release", strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "retry-me")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 3 {
		t.Fatalf("expected 3 handler calls, got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected 5xx responses not to be stored")
	}
}

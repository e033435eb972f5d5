package webhooks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mpesawebhook "github.com/kariuki00743/safipay/internal/webhooks/mpesa"
	"github.com/kariuki00743/safipay/pkg/logger"
)

type handlerFunc func(ctx context.Context, raw []byte) mpesawebhook.Outcome

func (f handlerFunc) Handle(ctx context.Context, raw []byte) mpesawebhook.Outcome {
	return f(ctx, raw)
}

func assertAck(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var ack struct {
		ResultCode int    `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.ResultCode != 0 || ack.ResultDesc != "Success" {
		t.Fatalf("unexpected ack %+v", ack)
	}
}

func TestMPesaCallbackForwardsBody(t *testing.T) {
	var got string
	handler := handlerFunc(func(ctx context.Context, raw []byte) mpesawebhook.Outcome {
		got = string(raw)
		return mpesawebhook.OutcomeApplied
	})

	body := `{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1","ResultCode":0}}}`
	rec := httptest.NewRecorder()
	MPesaCallback(handler, logger.Nop())(rec, httptest.NewRequest(http.MethodPost, "/api/callback", strings.NewReader(body)))

	assertAck(t, rec)
	if got != body {
		t.Fatalf("expected body to be forwarded, got %q", got)
	}
}

func TestMPesaCallbackAcksOnEveryPath(t *testing.T) {
	outcomes := []mpesawebhook.Outcome{
		mpesawebhook.OutcomeMalformed,
		mpesawebhook.OutcomeUnmatched,
		mpesawebhook.OutcomeError,
	}
	for _, outcome := range outcomes {
		t.Run(string(outcome), func(t *testing.T) {
			handler := handlerFunc(func(context.Context, []byte) mpesawebhook.Outcome { return outcome })
			rec := httptest.NewRecorder()
			MPesaCallback(handler, logger.Nop())(rec, httptest.NewRequest(http.MethodPost, "/api/callback", strings.NewReader("not json")))
			assertAck(t, rec)
		})
	}
}

func TestMPesaCallbackRecoversFromPanics(t *testing.T) {
	handler := handlerFunc(func(context.Context, []byte) mpesawebhook.Outcome { panic("boom") })
	rec := httptest.NewRecorder()
	MPesaCallback(handler, logger.Nop())(rec, httptest.NewRequest(http.MethodPost, "/api/callback", strings.NewReader("{}")))
	assertAck(t, rec)
}

func TestMPesaCallbackWithoutReconciler(t *testing.T) {
	rec := httptest.NewRecorder()
	MPesaCallback(nil, logger.Nop())(rec, httptest.NewRequest(http.MethodPost, "/api/callback", strings.NewReader("{}")))
	assertAck(t, rec)
}

package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
	"github.com/kariuki00743/safipay/pkg/logger"
	"github.com/kariuki00743/safipay/pkg/types"
)

func TestWriteSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccess(w, map[string]string{"hello": "world"})

	if got := w.Code; got != http.StatusOK {
		t.Fatalf("expected status 200 but got %d", got)
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode success envelope: %v", err)
	}
	if !body.Success {
		t.Fatalf("expected success flag")
	}
	if body.Data.(map[string]any)["hello"] != "world" {
		t.Fatalf("unexpected payload %v", body.Data)
	}
}

func TestWriteErrorSurfacesStateErrors(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot move transaction from held to complete").
		WithDetails(map[string]any{"currentStatus": "held", "targetStatus": "complete"})
	WriteError(context.Background(), logger.Nop(), w, err)

	if got := w.Code; got != http.StatusBadRequest {
		t.Fatalf("expected status 400 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Success {
		t.Fatalf("expected success false")
	}
	if body.Code != string(pkgerrors.CodeInvalidTransition) {
		t.Fatalf("unexpected code %s", body.Code)
	}
	if body.Error != "cannot move transaction from held to complete" {
		t.Fatalf("unexpected message %q", body.Error)
	}
	if body.Details == nil {
		t.Fatalf("expected details in public payload")
	}
}

func TestWriteErrorHidesUpstreamMessage(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeUpstreamPayment, "daraja said: Invalid Access Token").
		WithDetails(map[string]any{"status": 401})
	WriteError(context.Background(), logger.Nop(), w, err)

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Error != "payment request failed" {
		t.Fatalf("expected public message, got %q", body.Error)
	}
	if body.Details == nil {
		t.Fatalf("expected provider diagnostics in details")
	}
}

func TestWriteErrorDefaultsToInternalForUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	if got := w.Code; got != http.StatusInternalServerError {
		t.Fatalf("expected status 500 but got %d", got)
	}

	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if body.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %s", body.Code)
	}
	if body.Details != nil {
		t.Fatalf("details should be omitted for internal errors")
	}
}

func TestWriteCallbackAck(t *testing.T) {
	w := httptest.NewRecorder()
	WriteCallbackAck(w)

	if got := w.Body.String(); got != "{\"ResultCode\":0,\"ResultDesc\":\"Success\"}\n" {
		t.Fatalf("unexpected ack body %q", got)
	}
}

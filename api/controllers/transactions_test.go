package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariuki00743/safipay/api/middleware"
	"github.com/kariuki00743/safipay/internal/transactions"
	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
	"github.com/kariuki00743/safipay/pkg/logger"
	"github.com/kariuki00743/safipay/pkg/mpesa"
)

type stubService struct {
	transactions.Service

	created  *transactions.CreateInput
	pushed   *transactions.InitiatePaymentInput
	released *transactions.ActionInput
	disputed *transactions.DisputeInput
	limit    int
	err      error
}

func (s *stubService) Create(ctx context.Context, input transactions.CreateInput) (*transactions.TransactionDTO, error) {
	s.created = &input
	if s.err != nil {
		return nil, s.err
	}
	return &transactions.TransactionDTO{ID: uuid.New(), AmountCents: input.AmountCents}, nil
}

func (s *stubService) InitiatePayment(ctx context.Context, input transactions.InitiatePaymentInput) (*mpesa.PushResponse, error) {
	s.pushed = &input
	if s.err != nil {
		return nil, s.err
	}
	return &mpesa.PushResponse{CheckoutRequestID: "ws_CO_1", ResponseCode: "0"}, nil
}

func (s *stubService) Release(ctx context.Context, input transactions.ActionInput) error {
	s.released = &input
	return s.err
}

func (s *stubService) Dispute(ctx context.Context, input transactions.DisputeInput) error {
	s.disputed = &input
	return s.err
}

func (s *stubService) List(ctx context.Context, actor transactions.Actor, limit int) ([]transactions.TransactionDTO, error) {
	s.limit = limit
	return []transactions.TransactionDTO{}, nil
}

func (s *stubService) Get(ctx context.Context, input transactions.ActionInput) (*transactions.TransactionDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &transactions.TransactionDTO{ID: input.TransactionID}, nil
}

func authedRequest(method, target, body string, userID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateTransactionConvertsAmountToCents(t *testing.T) {
	svc := &stubService{}
	userID := uuid.New()
	body := `{"buyerEmail":"Buyer@Example.com","sellerEmail":"seller@example.com","amount":1500.5,"description":"  phone  "}`

	rec := httptest.NewRecorder()
	CreateTransaction(svc, logger.Nop())(rec, authedRequest(http.MethodPost, "/api/transactions", body, userID))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotNil(t, svc.created)
	assert.Equal(t, int64(150050), svc.created.AmountCents)
	assert.Equal(t, "buyer@example.com", svc.created.BuyerEmail)
	assert.Equal(t, "phone", svc.created.Description)
	assert.Equal(t, userID, svc.created.Actor.UserID)
	assert.Equal(t, true, decodeEnvelope(t, rec)["success"])
}

func TestCreateTransactionRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"missing amount":     `{"buyerEmail":"b@example.com","sellerEmail":"s@example.com"}`,
		"invalid email":      `{"buyerEmail":"nope","sellerEmail":"s@example.com","amount":10}`,
		"fractional cents":   `{"buyerEmail":"b@example.com","sellerEmail":"s@example.com","amount":10.001}`,
		"unknown field":      `{"buyerEmail":"b@example.com","sellerEmail":"s@example.com","amount":10,"status":"released"}`,
		"non positive value": `{"buyerEmail":"b@example.com","sellerEmail":"s@example.com","amount":0}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubService{}
			rec := httptest.NewRecorder()
			CreateTransaction(svc, logger.Nop())(rec, authedRequest(http.MethodPost, "/api/transactions", body, uuid.New()))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Nil(t, svc.created)
			assert.Equal(t, string(pkgerrors.CodeValidation), decodeEnvelope(t, rec)["code"])
		})
	}
}

func TestSTKPushReturnsProviderResponse(t *testing.T) {
	svc := &stubService{}
	txID := uuid.New()
	body := `{"transactionId":"` + txID.String() + `","phone":"0712345678","amount":100}`

	rec := httptest.NewRecorder()
	STKPush(svc, logger.Nop())(rec, authedRequest(http.MethodPost, "/api/stkpush", body, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.pushed)
	assert.Equal(t, txID, svc.pushed.TransactionID)
	require.NotNil(t, svc.pushed.AmountCents)
	assert.Equal(t, int64(10000), *svc.pushed.AmountCents)

	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "ws_CO_1", data["CheckoutRequestID"])
}

func TestSTKPushWithoutAmountLeavesItUnset(t *testing.T) {
	svc := &stubService{}
	body := `{"transactionId":"` + uuid.NewString() + `","phone":"0712345678"}`

	rec := httptest.NewRecorder()
	STKPush(svc, logger.Nop())(rec, authedRequest(http.MethodPost, "/api/stkpush", body, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.pushed.AmountCents)
}

func TestReleaseSurfacesStateConflicts(t *testing.T) {
	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeInvalidTransition, "cannot release a transaction in status held")}
	body := `{"transactionId":"` + uuid.NewString() + `"}`

	rec := httptest.NewRecorder()
	Release(svc, logger.Nop())(rec, authedRequest(http.MethodPost, "/api/release", body, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	out := decodeEnvelope(t, rec)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "cannot release a transaction in status held", out["error"])
	assert.Equal(t, string(pkgerrors.CodeInvalidTransition), out["code"])
}

func TestReleaseRequiresTransactionID(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	Release(svc, logger.Nop())(rec, authedRequest(http.MethodPost, "/api/release", `{"transactionId":"abc"}`, uuid.New()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.released)
}

func TestDisputePassesEvidenceThrough(t *testing.T) {
	svc := &stubService{}
	body := `{"transactionId":"` + uuid.NewString() + `","reason":"item never arrived","evidence":["https://img/1.png"]}`

	rec := httptest.NewRecorder()
	Dispute(svc, logger.Nop())(rec, authedRequest(http.MethodPost, "/api/dispute", body, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, svc.disputed)
	assert.Equal(t, "item never arrived", svc.disputed.Reason)
	assert.Equal(t, []string{"https://img/1.png"}, svc.disputed.Evidence)
}

func TestGetTransactionParsesPathParam(t *testing.T) {
	svc := &stubService{}
	txID := uuid.New()

	router := chi.NewRouter()
	router.Get("/api/transactions/{transactionId}", GetTransaction(svc, logger.Nop()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/transactions/"+txID.String(), "", uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/transactions/not-a-uuid", "", uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactionsParsesLimit(t *testing.T) {
	svc := &stubService{}
	rec := httptest.NewRecorder()
	ListTransactions(svc, logger.Nop())(rec, authedRequest(http.MethodGet, "/api/transactions?limit=10", "", uuid.New()))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, svc.limit)

	rec = httptest.NewRecorder()
	ListTransactions(svc, logger.Nop())(rec, authedRequest(http.MethodGet, "/api/transactions?limit=1000", "", uuid.New()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

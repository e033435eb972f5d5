package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kariuki00743/safipay/api/middleware"
	"github.com/kariuki00743/safipay/api/responses"
	"github.com/kariuki00743/safipay/api/validators"
	"github.com/kariuki00743/safipay/internal/transactions"
	pkgerrors "github.com/kariuki00743/safipay/pkg/errors"
	"github.com/kariuki00743/safipay/pkg/logger"
)

const maxDescriptionLen = 500

type createTransactionRequest struct {
	BuyerEmail  string           `json:"buyerEmail" validate:"required,email"`
	SellerEmail string           `json:"sellerEmail" validate:"required,email"`
	Amount      *decimal.Decimal `json:"amount" validate:"required"`
	Description string           `json:"description" validate:"max=500"`
}

type stkPushRequest struct {
	TransactionID string           `json:"transactionId" validate:"required,uuid"`
	Phone         string           `json:"phone" validate:"required"`
	Amount        *decimal.Decimal `json:"amount"`
	Description   string           `json:"description" validate:"max=500"`
}

type transactionActionRequest struct {
	TransactionID string `json:"transactionId" validate:"required,uuid"`
}

type disputeRequest struct {
	TransactionID   string   `json:"transactionId" validate:"required,uuid"`
	Reason          string   `json:"reason" validate:"required,max=2000"`
	ItemDescription string   `json:"itemDescription" validate:"max=1000"`
	Evidence        []string `json:"evidence" validate:"max=10,dive,max=512"`
}

// CreateTransaction opens a held escrow transaction owned by the caller.
func CreateTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createTransactionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cents, err := validators.AmountCents("amount", *body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), transactions.CreateInput{
			Actor:       actorFrom(r),
			BuyerEmail:  strings.ToLower(body.BuyerEmail),
			SellerEmail: strings.ToLower(body.SellerEmail),
			AmountCents: cents,
			Description: validators.SanitizeString(body.Description, maxDescriptionLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func ListTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, transactions.MaxListLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.List(r.Context(), actorFrom(r), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// GetTransaction returns one transaction with its timeline.
func GetTransaction(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid transaction id"))
			return
		}
		dto, err := svc.Get(r.Context(), transactions.ActionInput{Actor: actorFrom(r), TransactionID: id})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// STKPush sends the payment prompt to the buyer's handset.
func STKPush(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body stkPushRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := transactions.InitiatePaymentInput{
			Actor:         actorFrom(r),
			TransactionID: uuid.MustParse(body.TransactionID),
			Phone:         body.Phone,
			Description:   validators.SanitizeString(body.Description, maxDescriptionLen),
		}
		if body.Amount != nil {
			cents, err := validators.AmountCents("amount", *body.Amount)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.AmountCents = &cents
		}

		resp, err := svc.InitiatePayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// ConfirmPayment asks the provider for the push status and applies it.
func ConfirmPayment(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := decodeAction(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ConfirmPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CancelPayment(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return actionHandler(svc.CancelPayment, logg)
}

func Release(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return actionHandler(svc.Release, logg)
}

func Refund(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return actionHandler(svc.Refund, logg)
}

func Dispute(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body disputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		err := svc.Dispute(r.Context(), transactions.DisputeInput{
			Actor:           actorFrom(r),
			TransactionID:   uuid.MustParse(body.TransactionID),
			Reason:          body.Reason,
			ItemDescription: body.ItemDescription,
			Evidence:        body.Evidence,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

type actionFunc func(ctx context.Context, input transactions.ActionInput) error

func actionHandler(action actionFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := decodeAction(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := action(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func decodeAction(r *http.Request) (transactions.ActionInput, error) {
	var body transactionActionRequest
	if err := validators.DecodeJSONBody(r, &body); err != nil {
		return transactions.ActionInput{}, err
	}
	return transactions.ActionInput{
		Actor:         actorFrom(r),
		TransactionID: uuid.MustParse(body.TransactionID),
	}, nil
}

func actorFrom(r *http.Request) transactions.Actor {
	return transactions.Actor{
		UserID: middleware.UserUUIDFromContext(r.Context()),
		Email:  middleware.EmailFromContext(r.Context()),
	}
}

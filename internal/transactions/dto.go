package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kariuki00743/safipay/pkg/db/models"
	"github.com/kariuki00743/safipay/pkg/enums"
)

// Actor is the authenticated caller; only the creator may act on a transaction.
type Actor struct {
	UserID uuid.UUID
	Email  string
}

// CreateInput describes a new escrow transaction.
type CreateInput struct {
	Actor       Actor
	BuyerEmail  string
	SellerEmail string
	AmountCents int64
	Description string
}

// InitiatePaymentInput starts an STK push for a held transaction.
type InitiatePaymentInput struct {
	Actor         Actor
	TransactionID uuid.UUID
	Phone         string
	// AmountCents, when set, must equal the stored amount.
	AmountCents *int64
	Description string
}

// ActionInput targets one transaction on behalf of the caller.
type ActionInput struct {
	Actor         Actor
	TransactionID uuid.UUID
}

// DisputeInput raises a dispute with optional evidence references.
type DisputeInput struct {
	Actor           Actor
	TransactionID   uuid.UUID
	Reason          string
	ItemDescription string
	Evidence        []string
}

// PaymentResult is a provider verdict for the push identified by CheckoutRequestID.
type PaymentResult struct {
	CheckoutRequestID string
	Succeeded         bool
	ResultCode        int
	ResultDesc        string
	Receipt           string
	Phone             string
	// AmountCents is the provider-confirmed amount when reported.
	AmountCents *int64
}

// ConfirmResult reports the outcome of a provider status query.
type ConfirmResult struct {
	Status     enums.TransactionStatus `json:"status"`
	Pending    bool                    `json:"pending"`
	ResultDesc string                  `json:"result_desc,omitempty"`
}

// TransactionDTO is the API view of a transaction.
type TransactionDTO struct {
	ID            uuid.UUID               `json:"id"`
	UserID        uuid.UUID               `json:"user_id"`
	BuyerEmail    string                  `json:"buyer_email"`
	SellerEmail   string                  `json:"seller_email"`
	BuyerPhone    *string                 `json:"buyer_phone,omitempty"`
	Amount        decimal.Decimal         `json:"amount"`
	AmountCents   int64                   `json:"amount_cents"`
	Description   string                  `json:"description"`
	Status        enums.TransactionStatus `json:"status"`
	MpesaCode     *string                 `json:"mpesa_code,omitempty"`
	MpesaReceipt  *string                 `json:"mpesa_receipt,omitempty"`
	PaymentError  *string                 `json:"payment_error,omitempty"`
	DisputeReason *string                 `json:"dispute_reason,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	PaidAt        *time.Time              `json:"paid_at,omitempty"`
	DisputedAt    *time.Time              `json:"disputed_at,omitempty"`
	RefundedAt    *time.Time              `json:"refunded_at,omitempty"`
	CompletedAt   *time.Time              `json:"completed_at,omitempty"`
	Timeline      []TimelineEvent         `json:"timeline,omitempty"`
}

// ToDTO maps the row to its API view.
func ToDTO(tx models.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:            tx.ID,
		UserID:        tx.UserID,
		BuyerEmail:    tx.BuyerEmail,
		SellerEmail:   tx.SellerEmail,
		BuyerPhone:    tx.BuyerPhone,
		Amount:        decimal.New(tx.AmountCents, -2),
		AmountCents:   tx.AmountCents,
		Description:   tx.Description,
		Status:        tx.Status,
		MpesaCode:     tx.MpesaCode,
		MpesaReceipt:  tx.MpesaReceipt,
		PaymentError:  tx.PaymentError,
		DisputeReason: tx.DisputeReason,
		CreatedAt:     tx.CreatedAt,
		UpdatedAt:     tx.UpdatedAt,
		PaidAt:        tx.PaidAt,
		DisputedAt:    tx.DisputedAt,
		RefundedAt:    tx.RefundedAt,
		CompletedAt:   tx.CompletedAt,
	}
}

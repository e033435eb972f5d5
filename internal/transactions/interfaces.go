package transactions

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kariuki00743/safipay/pkg/db/models"
	"github.com/kariuki00743/safipay/pkg/enums"
	"github.com/kariuki00743/safipay/pkg/mpesa"
)

// Repository defines persistence operations for the transactions table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByMpesaCode(ctx context.Context, code string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error)
	// ApplyTransition performs one conditional update and reports the rows it touched.
	ApplyTransition(ctx context.Context, update TransitionUpdate) (int64, error)
}

// DisputeRecorder writes the audit row for a raised dispute inside tx.
type DisputeRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, dispute *models.Dispute) error
}

// Gateway is the slice of the M-Pesa client the service drives.
type Gateway interface {
	PushPayment(ctx context.Context, req mpesa.PushRequest) (*mpesa.PushResponse, error)
	QueryPushPayment(ctx context.Context, checkoutRequestID string) (*mpesa.QueryResult, error)
}

// Notifier sends the human-readable message for a committed transition.
type Notifier interface {
	Notify(ctx context.Context, event enums.NotificationEvent, tx models.Transaction) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitionRecorder interface {
	IncTransition(trigger, result string)
}

// TransitionUpdate is a single conditional write: the row must match ID, one
// of From, and MpesaCode when set.
type TransitionUpdate struct {
	ID        uuid.UUID
	From      []enums.TransactionStatus
	To        enums.TransactionStatus
	MpesaCode *string
	Set       map[string]any
	// StampColumn is set to Now only if it is still NULL.
	StampColumn string
	Now         time.Time
}

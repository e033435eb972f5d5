package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/kariuki00743/safipay/pkg/enums"
)

// Transaction is the escrow record a buyer pays into and the creator later
// releases, disputes, or refunds.
type Transaction struct {
	ID            uuid.UUID               `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID               `gorm:"type:uuid;not null"`
	BuyerEmail    string                  `gorm:"type:text;not null"`
	SellerEmail   string                  `gorm:"type:text;not null"`
	BuyerPhone    *string                 `gorm:"type:text"`
	AmountCents   int64                   `gorm:"not null"`
	Description   string                  `gorm:"type:text;not null"`
	Status        enums.TransactionStatus `gorm:"type:transaction_status;not null"`
	MpesaCode     *string                 `gorm:"column:mpesa_code;type:text"`
	MpesaReceipt  *string                 `gorm:"column:mpesa_receipt;type:text"`
	PaymentError  *string                 `gorm:"type:text"`
	DisputeReason *string                 `gorm:"type:text"`
	CreatedAt     time.Time               `gorm:"type:timestamptz;not null"`
	UpdatedAt     time.Time               `gorm:"type:timestamptz;not null"`
	PaidAt        *time.Time              `gorm:"type:timestamptz"`
	DisputedAt    *time.Time              `gorm:"type:timestamptz"`
	RefundedAt    *time.Time              `gorm:"type:timestamptz"`
	CompletedAt   *time.Time              `gorm:"type:timestamptz"`
}

func (Transaction) TableName() string { return "transactions" }

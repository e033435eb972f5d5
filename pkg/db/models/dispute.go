package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/kariuki00743/safipay/pkg/enums"
)

// Dispute is the audit trail written alongside a disputed transition.
type Dispute struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	TransactionID   uuid.UUID                   `gorm:"type:uuid;not null"`
	RaisedBy        uuid.UUID                   `gorm:"type:uuid;not null"`
	Reason          string                      `gorm:"type:text;not null"`
	ItemDescription *string                     `gorm:"type:text"`
	Evidence        datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	Status          enums.DisputeStatus         `gorm:"type:dispute_status;not null"`
	CreatedAt       time.Time                   `gorm:"type:timestamptz;not null"`
}

func (Dispute) TableName() string { return "disputes" }

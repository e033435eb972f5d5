package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kariuki00743/safipay/pkg/db/models"
)

// Repository persists the dispute audit trail. Rows are append-only.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a disputes repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Record inserts the dispute using tx when supplied so it commits with the
// transition that raised it.
func (r *Repository) Record(ctx context.Context, tx *gorm.DB, dispute *models.Dispute) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	if dispute.Evidence == nil {
		dispute.Evidence = []string{}
	}
	return conn.WithContext(ctx).Create(dispute).Error
}

// ListByTransaction returns every dispute raised on the transaction, oldest first.
func (r *Repository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]models.Dispute, error) {
	var rows []models.Dispute
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

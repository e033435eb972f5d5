package transactions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kariuki00743/safipay/pkg/db/models"
)

const (
	columnPaidAt      = "paid_at"
	columnDisputedAt  = "disputed_at"
	columnRefundedAt  = "refunded_at"
	columnCompletedAt = "completed_at"
)

var stampColumns = map[string]struct{}{
	columnPaidAt:      {},
	columnDisputedAt:  {},
	columnRefundedAt:  {},
	columnCompletedAt: {},
}

var errUnknownStampColumn = errors.New("unknown timestamp column")

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transactions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, tx *models.Transaction) (*models.Transaction, error) {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repository) FindByMpesaCode(ctx context.Context, code string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("mpesa_code = ?", code).First(&tx).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ApplyTransition(ctx context.Context, update TransitionUpdate) (int64, error) {
	from := make([]string, 0, len(update.From))
	for _, status := range update.From {
		from = append(from, string(status))
	}

	values := map[string]any{
		"status":     string(update.To),
		"updated_at": update.Now,
	}
	for column, value := range update.Set {
		values[column] = value
	}
	if update.StampColumn != "" {
		if _, ok := stampColumns[update.StampColumn]; !ok {
			return 0, errUnknownStampColumn
		}
		values[update.StampColumn] = gorm.Expr("COALESCE("+update.StampColumn+", ?)", update.Now)
	}

	query := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ?", update.ID).
		Where("status IN ?", from)
	if update.MpesaCode != nil {
		query = query.Where("mpesa_code = ?", *update.MpesaCode)
	}

	result := query.Updates(values)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

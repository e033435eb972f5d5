package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations with SQLite column types. Enum
// columns become text and jsonb becomes JSON text.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		buyer_email TEXT NOT NULL,
		seller_email TEXT NOT NULL,
		buyer_phone TEXT,
		amount_cents INTEGER NOT NULL CHECK (amount_cents > 0),
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'held',
		mpesa_code TEXT,
		mpesa_receipt TEXT,
		payment_error TEXT,
		dispute_reason TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		paid_at DATETIME,
		disputed_at DATETIME,
		refunded_at DATETIME,
		completed_at DATETIME,
		CHECK (mpesa_code IS NULL OR status <> 'held')
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_mpesa_code
		ON transactions (mpesa_code) WHERE mpesa_code IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS disputes (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL REFERENCES transactions(id),
		raised_by TEXT NOT NULL,
		reason TEXT NOT NULL,
		item_description TEXT,
		evidence TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL
	)`,
}

// ApplySQLiteSchema creates the tables on a SQLite connection. Used by
// repository tests and by local runs on the sqlite driver.
func ApplySQLiteSchema(ctx context.Context, conn *gorm.DB) error {
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

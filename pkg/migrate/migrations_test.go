package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kariuki00743/safipay/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	files, err := migrate.ValidateEmbedded()
	if err != nil {
		t.Fatalf("validate embedded: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 embedded migrations, got %d", len(files))
	}
	if files[0].Name != "create_transactions" || files[1].Name != "create_disputes" {
		t.Fatalf("unexpected order %+v", files)
	}
}

func TestCreateSQLMigrationProducesValidFile(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Ref!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_payout_ref.sql") {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration failed validation: %v", err)
	}

	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected a name without usable characters to be rejected")
	}
}

func TestValidateDirRejectsMissingDownSection(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\nSELECT 1;\n")
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_broken.sql"), body, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected missing down section to fail validation")
	}
}

func TestTransactionsMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_transactions.sql")

	checks := []string{
		"CREATE TYPE transaction_status AS ENUM",
		"CREATE TABLE IF NOT EXISTS transactions",
		"CHECK (amount_cents > 0)",
		"CHECK (mpesa_code IS NULL OR status <> 'held')",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_mpesa_code",
		"DROP TABLE IF EXISTS transactions",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestDisputesMigrationContainsSchema(t *testing.T) {
	content := readMigration(t, "*_create_disputes.sql")

	checks := []string{
		"CREATE TYPE dispute_status AS ENUM",
		"REFERENCES transactions(id)",
		"evidence jsonb NOT NULL DEFAULT '[]'::jsonb",
		"status dispute_status NOT NULL DEFAULT 'pending'",
		"DROP TABLE IF EXISTS disputes",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestApplySQLiteSchemaIsRepeatable(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := migrate.ApplySQLiteSchema(ctx, conn); err != nil {
			t.Fatalf("apply schema pass %d: %v", i, err)
		}
	}

	err = conn.Exec(`INSERT INTO transactions (id, user_id, buyer_email, seller_email, amount_cents, status, mpesa_code, created_at, updated_at)
		VALUES ('a', 'u', 'b@x.io', 's@x.io', 100, 'held', 'ws_CO_1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error
	if err == nil {
		t.Fatal("expected held row with correlation code to violate the check constraint")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file found for %s", pattern)
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

/**
 * @description
 * Startup schema migration for the ledger store. Creates the three tables if
 * they do not exist; the CHECK constraint on accounts.balance makes a
 * negative committed balance structurally impossible even if a bug slipped
 * past the workflow engine. payments.beneficiary_id carries no FK so the
 * ledger survives beneficiary deletion.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		account_id   UUID PRIMARY KEY,
		account_type VARCHAR(20) NOT NULL,
		balance      NUMERIC(15,2) NOT NULL CHECK (balance >= 0),
		currency     VARCHAR(3) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS beneficiaries (
		beneficiary_id UUID PRIMARY KEY,
		name           VARCHAR(100) NOT NULL,
		account_number VARCHAR(50) NOT NULL,
		bank_code      VARCHAR(20) NOT NULL,
		currency       VARCHAR(3) NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id        UUID PRIMARY KEY,
		amount            NUMERIC(15,2) NOT NULL CHECK (amount > 0),
		currency          VARCHAR(3) NOT NULL,
		beneficiary_id    UUID NOT NULL,
		source_account_id UUID NOT NULL REFERENCES accounts(account_id),
		status            VARCHAR(20) NOT NULL,
		type              VARCHAR(20) NOT NULL,
		scheduled_date    TIMESTAMPTZ,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_created_at ON payments (created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status_scheduled ON payments (status, scheduled_date)`,
}

// Migrate applies the schema statements in order. Safe to run on every boot.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range migrations {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

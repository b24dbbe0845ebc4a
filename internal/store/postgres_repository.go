/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all the SQL needed for the accounts, beneficiaries
 * and payments tables, including the transactional check-and-debit that
 * backs payment commits.
 *
 * The commit path locks the source account row with SELECT ... FOR UPDATE so
 * that two concurrent commits against the same account serialize their funds
 * check; the debit itself is additionally conditional on the balance so a
 * zero-rows-affected outcome inside the transaction is detectable and aborts
 * the whole unit.
 *
 * @dependencies
 * - context, errors, fmt, strings, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: Fixed-point amounts.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/transfa/openbanking-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `account_id, account_type, balance, currency, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(&account.AccountID, &account.AccountType, &account.Balance, &account.Currency, &account.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreateAccount inserts a new account row.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (account_id, account_type, balance, currency, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, account.AccountID, account.AccountType, account.Balance, account.Currency, account.CreatedAt)
	return err
}

// FindAccountByID retrieves a single account.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, accountID))
}

// accountSortColumns whitelists sortable columns so the sort key never
// reaches the SQL text unvalidated.
var accountSortColumns = map[string]string{
	"balance":      "balance",
	"created_at":   "created_at",
	"account_type": "account_type",
}

// ListAccounts applies the conjunctive filter predicates and the sort pair.
func (r *PostgresRepository) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.AccountType != nil {
		query += fmt.Sprintf(" AND account_type = $%d", argPos)
		args = append(args, *filter.AccountType)
		argPos++
	}
	if filter.Currency != nil {
		query += fmt.Sprintf(" AND currency = $%d", argPos)
		args = append(args, *filter.Currency)
		argPos++
	}
	if filter.MinBalance != nil {
		query += fmt.Sprintf(" AND balance >= $%d", argPos)
		args = append(args, *filter.MinBalance)
		argPos++
	}
	if filter.MaxBalance != nil {
		query += fmt.Sprintf(" AND balance <= $%d", argPos)
		args = append(args, *filter.MaxBalance)
		argPos++
	}

	query += " ORDER BY " + orderClause(accountSortColumns, filter.SortBy, "balance", filter.SortOrder)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.AccountID, &account.AccountType, &account.Balance, &account.Currency, &account.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// DebitAccountBalance performs a conditional debit outside any explicit
// transaction. The WHERE clause carries the funds check so the statement is
// atomic on its own; 0 rows means missing account or insufficient balance.
func (r *PostgresRepository) DebitAccountBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (int64, error) {
	query := `UPDATE accounts SET balance = balance - $1 WHERE account_id = $2 AND balance >= $1`
	result, err := r.db.Exec(ctx, query, amount, accountID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

// CreateBeneficiary inserts a new beneficiary row.
func (r *PostgresRepository) CreateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) error {
	query := `
		INSERT INTO beneficiaries (beneficiary_id, name, account_number, bank_code, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		beneficiary.BeneficiaryID, beneficiary.Name, beneficiary.AccountNumber,
		beneficiary.BankCode, beneficiary.Currency, beneficiary.CreatedAt)
	return err
}

// FindBeneficiaryByID retrieves a single beneficiary.
func (r *PostgresRepository) FindBeneficiaryByID(ctx context.Context, beneficiaryID uuid.UUID) (*domain.Beneficiary, error) {
	var beneficiary domain.Beneficiary
	query := `SELECT beneficiary_id, name, account_number, bank_code, currency, created_at FROM beneficiaries WHERE beneficiary_id = $1`
	err := r.db.QueryRow(ctx, query, beneficiaryID).Scan(
		&beneficiary.BeneficiaryID, &beneficiary.Name, &beneficiary.AccountNumber,
		&beneficiary.BankCode, &beneficiary.Currency, &beneficiary.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrBeneficiaryNotFound
		}
		return nil, err
	}
	return &beneficiary, nil
}

// DeleteBeneficiary removes a beneficiary; deleting a missing row is an error.
func (r *PostgresRepository) DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM beneficiaries WHERE beneficiary_id = $1`, beneficiaryID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrBeneficiaryNotFound
	}
	return nil
}

// SearchBeneficiaries matches name case-insensitively on substring and
// bank_code exactly.
func (r *PostgresRepository) SearchBeneficiaries(ctx context.Context, filter domain.BeneficiaryFilter) ([]domain.Beneficiary, error) {
	query := `SELECT beneficiary_id, name, account_number, bank_code, currency, created_at FROM beneficiaries WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.Name != nil {
		query += fmt.Sprintf(" AND name ILIKE $%d", argPos)
		args = append(args, "%"+*filter.Name+"%")
		argPos++
	}
	if filter.BankCode != nil {
		query += fmt.Sprintf(" AND bank_code = $%d", argPos)
		args = append(args, *filter.BankCode)
		argPos++
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var beneficiaries []domain.Beneficiary
	for rows.Next() {
		var beneficiary domain.Beneficiary
		if err := rows.Scan(
			&beneficiary.BeneficiaryID, &beneficiary.Name, &beneficiary.AccountNumber,
			&beneficiary.BankCode, &beneficiary.Currency, &beneficiary.CreatedAt); err != nil {
			return nil, err
		}
		beneficiaries = append(beneficiaries, beneficiary)
	}
	return beneficiaries, rows.Err()
}

const paymentColumns = `payment_id, amount, currency, beneficiary_id, source_account_id, status, type, scheduled_date, created_at, completed_at`

// CommitPayment performs the atomic check-and-debit plus payment insert.
func (r *PostgresRepository) CommitPayment(ctx context.Context, payment *domain.Payment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// 1. Lock the source account row and read the balance under the lock.
	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE account_id = $1 FOR UPDATE`, payment.SourceAccountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to lock source account: %w", err)
	}

	// 2. Funds check against the locked balance.
	if balance.LessThan(payment.Amount) {
		return &InsufficientFundsError{Balance: balance, Required: payment.Amount}
	}

	// 3. Conditional debit; must affect exactly one row.
	debit, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE account_id = $2 AND balance >= $1`,
		payment.Amount, payment.SourceAccountID)
	if err != nil {
		return fmt.Errorf("failed to debit source account: %w", err)
	}
	if debit.RowsAffected() != 1 {
		return fmt.Errorf("debit affected %d rows: %w", debit.RowsAffected(), ErrTransactionIntegrity)
	}

	// 4. Record the payment; must affect exactly one row.
	insert, err := tx.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		payment.PaymentID, payment.Amount, payment.Currency, payment.BeneficiaryID,
		payment.SourceAccountID, payment.Status, payment.Type, payment.ScheduledDate,
		payment.CreatedAt, payment.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	if insert.RowsAffected() != 1 {
		return fmt.Errorf("payment insert affected %d rows: %w", insert.RowsAffected(), ErrTransactionIntegrity)
	}

	return tx.Commit(ctx)
}

// CreateScheduledPayment persists a SCHEDULED payment without touching any balance.
func (r *PostgresRepository) CreateScheduledPayment(ctx context.Context, payment *domain.Payment) error {
	result, err := r.db.Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		payment.PaymentID, payment.Amount, payment.Currency, payment.BeneficiaryID,
		payment.SourceAccountID, payment.Status, payment.Type, payment.ScheduledDate,
		payment.CreatedAt, payment.CompletedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() != 1 {
		return fmt.Errorf("scheduled payment insert affected %d rows: %w", result.RowsAffected(), ErrTransactionIntegrity)
	}
	return nil
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var payment domain.Payment
	err := row.Scan(
		&payment.PaymentID, &payment.Amount, &payment.Currency, &payment.BeneficiaryID,
		&payment.SourceAccountID, &payment.Status, &payment.Type, &payment.ScheduledDate,
		&payment.CreatedAt, &payment.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// FindPaymentByID retrieves a single payment.
func (r *PostgresRepository) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE payment_id = $1`
	return scanPayment(r.db.QueryRow(ctx, query, paymentID))
}

// CancelScheduledPayment flips SCHEDULED to CANCELLED in one guarded update
// and distinguishes "missing" from "wrong state" for the caller.
func (r *PostgresRepository) CancelScheduledPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	query := `
		UPDATE payments SET status = $1
		WHERE payment_id = $2 AND status = $3
		RETURNING ` + paymentColumns
	payment, err := scanPayment(r.db.QueryRow(ctx, query,
		domain.PaymentStatusCancelled, paymentID, domain.PaymentStatusScheduled))
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, ErrPaymentNotFound) {
		return nil, err
	}

	// The guarded update matched nothing: either the payment does not exist
	// or it is not SCHEDULED.
	if _, lookupErr := r.FindPaymentByID(ctx, paymentID); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, ErrInvalidStateTransition
}

var paymentSortColumns = map[string]string{
	"created_at":     "created_at",
	"amount":         "amount",
	"scheduled_date": "scheduled_date",
}

// SearchPayments applies the conjunctive filter predicates, the sort pair and
// the optional result cap.
func (r *PostgresRepository) SearchPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	var args []interface{}
	argPos := 1

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}
	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}
	if filter.MinAmount != nil {
		query += fmt.Sprintf(" AND amount >= $%d", argPos)
		args = append(args, *filter.MinAmount)
		argPos++
	}
	if filter.MaxAmount != nil {
		query += fmt.Sprintf(" AND amount <= $%d", argPos)
		args = append(args, *filter.MaxAmount)
		argPos++
	}
	if filter.Currency != nil {
		query += fmt.Sprintf(" AND currency = $%d", argPos)
		args = append(args, *filter.Currency)
		argPos++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filter.Status)
		argPos++
	}
	if filter.Type != nil {
		query += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, *filter.Type)
		argPos++
	}
	if filter.BeneficiaryID != nil {
		query += fmt.Sprintf(" AND beneficiary_id = $%d", argPos)
		args = append(args, *filter.BeneficiaryID)
		argPos++
	}

	query += " ORDER BY " + orderClause(paymentSortColumns, filter.SortBy, "created_at", filter.SortOrder)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filter.Limit)
		argPos++
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var payment domain.Payment
		if err := rows.Scan(
			&payment.PaymentID, &payment.Amount, &payment.Currency, &payment.BeneficiaryID,
			&payment.SourceAccountID, &payment.Status, &payment.Type, &payment.ScheduledDate,
			&payment.CreatedAt, &payment.CompletedAt); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// FindDueScheduledPayments returns SCHEDULED payments whose scheduled_date
// has passed, oldest first.
func (r *PostgresRepository) FindDueScheduledPayments(ctx context.Context, asOf time.Time) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE status = $1 AND scheduled_date IS NOT NULL AND scheduled_date <= $2
		ORDER BY scheduled_date ASC
	`
	rows, err := r.db.Query(ctx, query, domain.PaymentStatusScheduled, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var payment domain.Payment
		if err := rows.Scan(
			&payment.PaymentID, &payment.Amount, &payment.Currency, &payment.BeneficiaryID,
			&payment.SourceAccountID, &payment.Status, &payment.Type, &payment.ScheduledDate,
			&payment.CreatedAt, &payment.CompletedAt); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// CommitScheduledPayment atomically debits the source account and promotes
// the payment SCHEDULED -> COMPLETED.
func (r *PostgresRepository) CommitScheduledPayment(ctx context.Context, paymentID uuid.UUID, completedAt time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the payment row first so concurrent promoters cannot double-debit.
	var amount decimal.Decimal
	var sourceAccountID uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT amount, source_account_id FROM payments
		WHERE payment_id = $1 AND status = $2
		FOR UPDATE
	`, paymentID, domain.PaymentStatusScheduled).Scan(&amount, &sourceAccountID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrPaymentNotFound
		}
		return fmt.Errorf("failed to lock scheduled payment: %w", err)
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE account_id = $1 FOR UPDATE`, sourceAccountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ErrAccountNotFound
		}
		return fmt.Errorf("failed to lock source account: %w", err)
	}
	if balance.LessThan(amount) {
		return &InsufficientFundsError{Balance: balance, Required: amount}
	}

	debit, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE account_id = $2 AND balance >= $1`,
		amount, sourceAccountID)
	if err != nil {
		return fmt.Errorf("failed to debit source account: %w", err)
	}
	if debit.RowsAffected() != 1 {
		return fmt.Errorf("debit affected %d rows: %w", debit.RowsAffected(), ErrTransactionIntegrity)
	}

	promote, err := tx.Exec(ctx, `
		UPDATE payments SET status = $1, completed_at = $2
		WHERE payment_id = $3 AND status = $4
	`, domain.PaymentStatusCompleted, completedAt, paymentID, domain.PaymentStatusScheduled)
	if err != nil {
		return fmt.Errorf("failed to promote scheduled payment: %w", err)
	}
	if promote.RowsAffected() != 1 {
		return fmt.Errorf("promotion affected %d rows: %w", promote.RowsAffected(), ErrTransactionIntegrity)
	}

	return tx.Commit(ctx)
}

// MarkPaymentFailed stamps a SCHEDULED payment FAILED with completed_at set.
// Zero rows means the payment is missing or was settled concurrently (for
// example cancelled) and surfaces as ErrPaymentNotFound; FAILED never
// overwrites a terminal status.
func (r *PostgresRepository) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, completedAt time.Time) error {
	result, err := r.db.Exec(ctx, `
		UPDATE payments SET status = $1, completed_at = $2
		WHERE payment_id = $3 AND status = $4
	`, domain.PaymentStatusFailed, completedAt, paymentID, domain.PaymentStatusScheduled)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

// orderClause builds a safe ORDER BY fragment from whitelisted columns.
func orderClause(columns map[string]string, sortBy, fallback, sortOrder string) string {
	column, ok := columns[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		column = fallback
	}
	direction := "DESC"
	if strings.EqualFold(strings.TrimSpace(sortOrder), "asc") {
		direction = "ASC"
	}
	// created_at tie-break keeps the sort stable across equal keys.
	if column == "created_at" {
		return fmt.Sprintf("%s %s", column, direction)
	}
	return fmt.Sprintf("%s %s, created_at %s", column, direction, direction)
}

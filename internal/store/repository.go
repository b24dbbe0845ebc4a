/**
 * @description
 * This file defines the `Repository` interface, the contract for all data
 * access operations required by the openbanking-service. The interface
 * decouples the workflow engine and query service from the concrete store;
 * there are two implementations: PostgresRepository (durable, pgx) and
 * MemoryRepository (in-process fake used by tests and as a dev fallback).
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For identifier handling.
 * - github.com/shopspring/decimal: Fixed-point amounts.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/openbanking-service/internal/domain"
)

// Repository defines the set of methods for interacting with the ledger store.
//
// Writes report enough detail for the caller to detect a no-op: a debit
// against a missing account or a cancel against a non-SCHEDULED payment is an
// error, never a silent success.
type Repository interface {
	// Account methods
	CreateAccount(ctx context.Context, account *domain.Account) error
	FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error)
	// DebitAccountBalance decrements the balance only when the account exists
	// and holds at least amount; it returns the number of rows affected so
	// the caller can treat 0 as a failed conditional debit.
	DebitAccountBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (int64, error)

	// Beneficiary methods
	CreateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) error
	FindBeneficiaryByID(ctx context.Context, beneficiaryID uuid.UUID) (*domain.Beneficiary, error)
	DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID) error
	SearchBeneficiaries(ctx context.Context, filter domain.BeneficiaryFilter) ([]domain.Beneficiary, error)

	// Payment methods
	// CommitPayment atomically debits the source account and inserts the
	// payment row; both succeed or neither does. The payment must arrive
	// with status COMPLETED and completed_at set.
	CommitPayment(ctx context.Context, payment *domain.Payment) error
	// CreateScheduledPayment persists a SCHEDULED payment with no debit.
	CreateScheduledPayment(ctx context.Context, payment *domain.Payment) error
	FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	// CancelScheduledPayment transitions SCHEDULED -> CANCELLED only.
	CancelScheduledPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	SearchPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)

	// Due-payment promotion
	FindDueScheduledPayments(ctx context.Context, asOf time.Time) ([]domain.Payment, error)
	// CommitScheduledPayment atomically debits the source account and
	// transitions the payment SCHEDULED -> COMPLETED.
	CommitScheduledPayment(ctx context.Context, paymentID uuid.UUID, completedAt time.Time) error
	// MarkPaymentFailed transitions SCHEDULED -> FAILED only; a payment that
	// reached any other status in the meantime surfaces as
	// ErrPaymentNotFound so terminal states are never overwritten.
	MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, completedAt time.Time) error
}

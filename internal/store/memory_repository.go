/**
 * @description
 * In-memory implementation of the Repository interface. It mirrors the
 * Postgres implementation's semantics (including the conditional debit and
 * the atomicity of payment commits) behind a single mutex, making it a
 * faithful stand-in for tests and for running the service without a
 * database.
 */

package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/openbanking-service/internal/domain"
)

// MemoryRepository keeps the full ledger in process memory. All methods are
// safe for concurrent use; the mutex is the transactional boundary, so a
// commit's check-and-debit plus insert happen as one unit.
type MemoryRepository struct {
	mu            sync.Mutex
	accounts      map[uuid.UUID]*domain.Account
	beneficiaries map[uuid.UUID]*domain.Beneficiary
	payments      map[uuid.UUID]*domain.Payment
}

// NewMemoryRepository creates an empty in-memory ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		accounts:      make(map[uuid.UUID]*domain.Account),
		beneficiaries: make(map[uuid.UUID]*domain.Beneficiary),
		payments:      make(map[uuid.UUID]*domain.Payment),
	}
}

func (r *MemoryRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *account
	r.accounts[account.AccountID] = &copied
	return nil
}

func (r *MemoryRepository) FindAccountByID(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *MemoryRepository) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var accounts []domain.Account
	for _, account := range r.accounts {
		if filter.AccountType != nil && account.AccountType != *filter.AccountType {
			continue
		}
		if filter.Currency != nil && account.Currency != *filter.Currency {
			continue
		}
		if filter.MinBalance != nil && account.Balance.LessThan(*filter.MinBalance) {
			continue
		}
		if filter.MaxBalance != nil && account.Balance.GreaterThan(*filter.MaxBalance) {
			continue
		}
		accounts = append(accounts, *account)
	}

	desc := !strings.EqualFold(strings.TrimSpace(filter.SortOrder), "asc")
	sortBy := strings.ToLower(strings.TrimSpace(filter.SortBy))
	sort.SliceStable(accounts, func(i, j int) bool {
		var less bool
		switch sortBy {
		case "created_at":
			less = accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
		case "account_type":
			less = accounts[i].AccountType < accounts[j].AccountType
		default: // balance
			less = accounts[i].Balance.LessThan(accounts[j].Balance)
		}
		if desc {
			return !less && !accountSortEqual(sortBy, accounts[i], accounts[j])
		}
		return less
	})

	return accounts, nil
}

func accountSortEqual(sortBy string, a, b domain.Account) bool {
	switch sortBy {
	case "created_at":
		return a.CreatedAt.Equal(b.CreatedAt)
	case "account_type":
		return a.AccountType == b.AccountType
	default:
		return a.Balance.Equal(b.Balance)
	}
}

func (r *MemoryRepository) DebitAccountBalance(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.debitLocked(accountID, amount)
}

// debitLocked is the conditional debit; callers must hold the mutex.
func (r *MemoryRepository) debitLocked(accountID uuid.UUID, amount decimal.Decimal) (int64, error) {
	account, ok := r.accounts[accountID]
	if !ok {
		return 0, nil
	}
	if account.Balance.LessThan(amount) {
		return 0, nil
	}
	account.Balance = account.Balance.Sub(amount)
	return 1, nil
}

func (r *MemoryRepository) CreateBeneficiary(ctx context.Context, beneficiary *domain.Beneficiary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *beneficiary
	r.beneficiaries[beneficiary.BeneficiaryID] = &copied
	return nil
}

func (r *MemoryRepository) FindBeneficiaryByID(ctx context.Context, beneficiaryID uuid.UUID) (*domain.Beneficiary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	beneficiary, ok := r.beneficiaries[beneficiaryID]
	if !ok {
		return nil, ErrBeneficiaryNotFound
	}
	copied := *beneficiary
	return &copied, nil
}

func (r *MemoryRepository) DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.beneficiaries[beneficiaryID]; !ok {
		return ErrBeneficiaryNotFound
	}
	delete(r.beneficiaries, beneficiaryID)
	return nil
}

func (r *MemoryRepository) SearchBeneficiaries(ctx context.Context, filter domain.BeneficiaryFilter) ([]domain.Beneficiary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var beneficiaries []domain.Beneficiary
	for _, beneficiary := range r.beneficiaries {
		if filter.Name != nil && !strings.Contains(strings.ToLower(beneficiary.Name), strings.ToLower(*filter.Name)) {
			continue
		}
		if filter.BankCode != nil && beneficiary.BankCode != *filter.BankCode {
			continue
		}
		beneficiaries = append(beneficiaries, *beneficiary)
	}
	sort.SliceStable(beneficiaries, func(i, j int) bool {
		return beneficiaries[i].CreatedAt.After(beneficiaries[j].CreatedAt)
	})
	return beneficiaries, nil
}

func (r *MemoryRepository) CommitPayment(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[payment.SourceAccountID]
	if !ok {
		return ErrAccountNotFound
	}
	if account.Balance.LessThan(payment.Amount) {
		return &InsufficientFundsError{Balance: account.Balance, Required: payment.Amount}
	}

	affected, err := r.debitLocked(payment.SourceAccountID, payment.Amount)
	if err != nil {
		return err
	}
	if affected != 1 {
		return ErrTransactionIntegrity
	}

	copied := *payment
	r.payments[payment.PaymentID] = &copied
	return nil
}

func (r *MemoryRepository) CreateScheduledPayment(ctx context.Context, payment *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *payment
	r.payments[payment.PaymentID] = &copied
	return nil
}

func (r *MemoryRepository) FindPaymentByID(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	copied := *payment
	return &copied, nil
}

func (r *MemoryRepository) CancelScheduledPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	if payment.Status != domain.PaymentStatusScheduled {
		return nil, ErrInvalidStateTransition
	}
	payment.Status = domain.PaymentStatusCancelled
	copied := *payment
	return &copied, nil
}

func (r *MemoryRepository) SearchPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var payments []domain.Payment
	for _, payment := range r.payments {
		if filter.StartDate != nil && payment.CreatedAt.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && payment.CreatedAt.After(*filter.EndDate) {
			continue
		}
		if filter.MinAmount != nil && payment.Amount.LessThan(*filter.MinAmount) {
			continue
		}
		if filter.MaxAmount != nil && payment.Amount.GreaterThan(*filter.MaxAmount) {
			continue
		}
		if filter.Currency != nil && payment.Currency != *filter.Currency {
			continue
		}
		if filter.Status != nil && payment.Status != *filter.Status {
			continue
		}
		if filter.Type != nil && payment.Type != *filter.Type {
			continue
		}
		if filter.BeneficiaryID != nil && payment.BeneficiaryID != *filter.BeneficiaryID {
			continue
		}
		payments = append(payments, *payment)
	}

	desc := !strings.EqualFold(strings.TrimSpace(filter.SortOrder), "asc")
	sortBy := strings.ToLower(strings.TrimSpace(filter.SortBy))
	sort.SliceStable(payments, func(i, j int) bool {
		var less, equal bool
		switch sortBy {
		case "amount":
			less = payments[i].Amount.LessThan(payments[j].Amount)
			equal = payments[i].Amount.Equal(payments[j].Amount)
		case "scheduled_date":
			ti, tj := payments[i].ScheduledDate, payments[j].ScheduledDate
			switch {
			case ti == nil && tj == nil:
				equal = true
			case ti == nil:
				less = true
			case tj == nil:
				less = false
			default:
				less = ti.Before(*tj)
				equal = ti.Equal(*tj)
			}
		default: // created_at
			less = payments[i].CreatedAt.Before(payments[j].CreatedAt)
			equal = payments[i].CreatedAt.Equal(payments[j].CreatedAt)
		}
		if desc {
			return !less && !equal
		}
		return less
	})

	if filter.Limit > 0 && len(payments) > filter.Limit {
		payments = payments[:filter.Limit]
	}
	return payments, nil
}

func (r *MemoryRepository) FindDueScheduledPayments(ctx context.Context, asOf time.Time) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []domain.Payment
	for _, payment := range r.payments {
		if payment.Status != domain.PaymentStatusScheduled || payment.ScheduledDate == nil {
			continue
		}
		if payment.ScheduledDate.After(asOf) {
			continue
		}
		due = append(due, *payment)
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].ScheduledDate.Before(*due[j].ScheduledDate)
	})
	return due, nil
}

func (r *MemoryRepository) CommitScheduledPayment(ctx context.Context, paymentID uuid.UUID, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[paymentID]
	if !ok || payment.Status != domain.PaymentStatusScheduled {
		return ErrPaymentNotFound
	}
	account, ok := r.accounts[payment.SourceAccountID]
	if !ok {
		return ErrAccountNotFound
	}
	if account.Balance.LessThan(payment.Amount) {
		return &InsufficientFundsError{Balance: account.Balance, Required: payment.Amount}
	}

	affected, err := r.debitLocked(payment.SourceAccountID, payment.Amount)
	if err != nil {
		return err
	}
	if affected != 1 {
		return ErrTransactionIntegrity
	}

	payment.Status = domain.PaymentStatusCompleted
	stamped := completedAt
	payment.CompletedAt = &stamped
	return nil
}

func (r *MemoryRepository) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[paymentID]
	if !ok || payment.Status != domain.PaymentStatusScheduled {
		return ErrPaymentNotFound
	}
	payment.Status = domain.PaymentStatusFailed
	stamped := completedAt
	payment.CompletedAt = &stamped
	return nil
}

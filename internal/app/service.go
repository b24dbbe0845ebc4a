/**
 * @description
 * This file contains the core business logic for the openbanking-service.
 * The `Service` struct orchestrates account and beneficiary management and
 * the read-only query/listing surface; the payment workflow engine lives in
 * payments.go alongside it.
 *
 * @dependencies
 * - context, log, regexp, strings, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For publishing payment lifecycle events.
 */

package app

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/openbanking-service/internal/domain"
	"github.com/transfa/openbanking-service/internal/store"
	"github.com/transfa/openbanking-service/pkg/rabbitmq"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Service provides the core business logic for the open-banking data service.
type Service struct {
	repo              store.Repository
	events            rabbitmq.Publisher
	blockedCurrencies map[string]struct{}

	rateLimiter        PaymentRateLimiter
	initiateRatePerMin int
}

// NewService creates a new service instance. blockedCurrencies is the policy
// blocklist applied to payment initiation; events may be nil when no broker
// is configured.
func NewService(repo store.Repository, events rabbitmq.Publisher, blockedCurrencies []string) *Service {
	blocked := make(map[string]struct{}, len(blockedCurrencies))
	for _, currency := range blockedCurrencies {
		normalized := strings.ToUpper(strings.TrimSpace(currency))
		if normalized != "" {
			blocked[normalized] = struct{}{}
		}
	}
	return &Service{
		repo:              repo,
		events:            events,
		blockedCurrencies: blocked,
	}
}

// SetPaymentRateLimiter installs a distributed limiter on payment initiation.
func (s *Service) SetPaymentRateLimiter(limiter PaymentRateLimiter, perMinute int) {
	s.rateLimiter = limiter
	s.initiateRatePerMin = perMinute
}

// CreateAccount validates and persists a new account.
func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	if !domain.ValidAccountType(req.AccountType) {
		return nil, &ValidationError{Field: "account_type", Reason: "unknown account type"}
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}
	if req.Balance.IsNegative() {
		return nil, &ValidationError{Field: "balance", Reason: "initial balance must not be negative"}
	}

	account := &domain.Account{
		AccountID:   uuid.New(),
		AccountType: req.AccountType,
		Balance:     req.Balance,
		Currency:    currency,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	log.Printf("level=info component=service op=add_account account_id=%s type=%s currency=%s", account.AccountID, account.AccountType, account.Currency)
	return account, nil
}

// CreateAccounts persists a batch of accounts; the batch fails on the first
// invalid entry with nothing further created.
func (s *Service) CreateAccounts(ctx context.Context, reqs []domain.CreateAccountRequest) ([]domain.Account, error) {
	created := make([]domain.Account, 0, len(reqs))
	for _, req := range reqs {
		account, err := s.CreateAccount(ctx, req)
		if err != nil {
			return created, err
		}
		created = append(created, *account)
	}
	return created, nil
}

// ListAccounts applies the listing filter and sort pair.
func (s *Service) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]domain.Account, error) {
	return s.repo.ListAccounts(ctx, filter)
}

// GetAccountBalance returns the balance projection for a single account.
func (s *Service) GetAccountBalance(ctx context.Context, accountID uuid.UUID) (*domain.AccountBalance, error) {
	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &domain.AccountBalance{
		AccountID: account.AccountID,
		Balance:   account.Balance,
		Currency:  account.Currency,
	}, nil
}

// GetAccount returns the full account record.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.FindAccountByID(ctx, accountID)
}

// GetAccountSummary aggregates the whole account book: totals per currency
// and counts per type.
func (s *Service) GetAccountSummary(ctx context.Context) (*domain.AccountSummary, error) {
	accounts, err := s.repo.ListAccounts(ctx, domain.AccountFilter{})
	if err != nil {
		return nil, err
	}

	summary := &domain.AccountSummary{
		TotalAccounts:     len(accounts),
		BalanceByCurrency: make(map[string]decimal.Decimal),
		AccountsByType:    make(map[domain.AccountType]int),
		LastUpdated:       time.Now().UTC(),
	}
	for _, account := range accounts {
		summary.BalanceByCurrency[account.Currency] = summary.BalanceByCurrency[account.Currency].Add(account.Balance)
		summary.AccountsByType[account.AccountType]++
	}
	return summary, nil
}

// AddBeneficiary validates and persists a new beneficiary.
func (s *Service) AddBeneficiary(ctx context.Context, req domain.CreateBeneficiaryRequest) (*domain.Beneficiary, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "name is required"}
	}
	if strings.TrimSpace(req.AccountNumber) == "" {
		return nil, &ValidationError{Field: "account_number", Reason: "account number is required"}
	}
	if strings.TrimSpace(req.BankCode) == "" {
		return nil, &ValidationError{Field: "bank_code", Reason: "bank code is required"}
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	beneficiary := &domain.Beneficiary{
		BeneficiaryID: uuid.New(),
		Name:          strings.TrimSpace(req.Name),
		AccountNumber: strings.TrimSpace(req.AccountNumber),
		BankCode:      strings.TrimSpace(req.BankCode),
		Currency:      currency,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateBeneficiary(ctx, beneficiary); err != nil {
		return nil, err
	}
	log.Printf("level=info component=service op=add_beneficiary beneficiary_id=%s bank_code=%s", beneficiary.BeneficiaryID, beneficiary.BankCode)
	return beneficiary, nil
}

// DeleteBeneficiary removes a beneficiary; a missing row surfaces as
// store.ErrBeneficiaryNotFound.
func (s *Service) DeleteBeneficiary(ctx context.Context, beneficiaryID uuid.UUID) error {
	return s.repo.DeleteBeneficiary(ctx, beneficiaryID)
}

// SearchBeneficiaries applies the beneficiary search filter.
func (s *Service) SearchBeneficiaries(ctx context.Context, filter domain.BeneficiaryFilter) ([]domain.Beneficiary, error) {
	return s.repo.SearchBeneficiaries(ctx, filter)
}

func normalizeCurrency(raw string) (string, error) {
	currency := strings.ToUpper(strings.TrimSpace(raw))
	if !currencyPattern.MatchString(currency) {
		return "", &ValidationError{Field: "currency", Reason: "must be a 3-letter currency code"}
	}
	return currency, nil
}

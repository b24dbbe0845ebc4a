package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/openbanking-service/internal/domain"
	"github.com/transfa/openbanking-service/internal/store"
)

func TestCreateAccount_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.CreateAccountRequest
	}{
		{
			name: "unknown account type",
			req: domain.CreateAccountRequest{
				AccountType: "OFFSHORE",
				Balance:     decimal.RequireFromString("10.00"),
				Currency:    "USD",
			},
		},
		{
			name: "negative initial balance",
			req: domain.CreateAccountRequest{
				AccountType: domain.AccountTypeChecking,
				Balance:     decimal.RequireFromString("-1.00"),
				Currency:    "USD",
			},
		},
		{
			name: "malformed currency",
			req: domain.CreateAccountRequest{
				AccountType: domain.AccountTypeChecking,
				Balance:     decimal.RequireFromString("10.00"),
				Currency:    "DOLLARS",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateAccount(ctx, tt.req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateAccount_NormalizesCurrency(t *testing.T) {
	svc, _ := newTestService(t)

	account, err := svc.CreateAccount(context.Background(), domain.CreateAccountRequest{
		AccountType: domain.AccountTypeSavings,
		Balance:     decimal.RequireFromString("0"),
		Currency:    " usd ",
	})
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if account.Currency != "USD" {
		t.Fatalf("expected normalized currency USD, got %q", account.Currency)
	}
}

func TestCreateAccounts_StopsAtFirstInvalidEntry(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateAccounts(ctx, []domain.CreateAccountRequest{
		{AccountType: domain.AccountTypeChecking, Balance: decimal.RequireFromString("10.00"), Currency: "USD"},
		{AccountType: "BOGUS", Balance: decimal.RequireFromString("10.00"), Currency: "USD"},
		{AccountType: domain.AccountTypeSavings, Balance: decimal.RequireFromString("10.00"), Currency: "USD"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 account created before failure, got %d", len(created))
	}

	accounts, listErr := svc.ListAccounts(ctx, domain.AccountFilter{})
	if listErr != nil {
		t.Fatalf("ListAccounts returned error: %v", listErr)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected 1 persisted account, got %d", len(accounts))
	}
}

func TestGetAccountBalance_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.GetAccountBalance(context.Background(), uuid.New()); !errors.Is(err, store.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestGetAccountSummary_Aggregates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed := []struct {
		accountType domain.AccountType
		balance     string
		currency    string
	}{
		{domain.AccountTypeChecking, "100.00", "USD"},
		{domain.AccountTypeChecking, "50.00", "USD"},
		{domain.AccountTypeSavings, "200.00", "EUR"},
	}
	for _, s := range seed {
		if _, err := svc.CreateAccount(ctx, domain.CreateAccountRequest{
			AccountType: s.accountType,
			Balance:     decimal.RequireFromString(s.balance),
			Currency:    s.currency,
		}); err != nil {
			t.Fatalf("CreateAccount returned error: %v", err)
		}
	}

	summary, err := svc.GetAccountSummary(ctx)
	if err != nil {
		t.Fatalf("GetAccountSummary returned error: %v", err)
	}
	if summary.TotalAccounts != 3 {
		t.Fatalf("expected 3 accounts, got %d", summary.TotalAccounts)
	}
	if !summary.BalanceByCurrency["USD"].Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("expected USD total 150.00, got %s", summary.BalanceByCurrency["USD"])
	}
	if !summary.BalanceByCurrency["EUR"].Equal(decimal.RequireFromString("200.00")) {
		t.Fatalf("expected EUR total 200.00, got %s", summary.BalanceByCurrency["EUR"])
	}
	if summary.AccountsByType[domain.AccountTypeChecking] != 2 {
		t.Fatalf("expected 2 checking accounts, got %d", summary.AccountsByType[domain.AccountTypeChecking])
	}
}

func TestAddBeneficiary_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  domain.CreateBeneficiaryRequest
	}{
		{
			name: "missing name",
			req:  domain.CreateBeneficiaryRequest{AccountNumber: "0123", BankCode: "058", Currency: "USD"},
		},
		{
			name: "missing account number",
			req:  domain.CreateBeneficiaryRequest{Name: "Acme", BankCode: "058", Currency: "USD"},
		},
		{
			name: "missing bank code",
			req:  domain.CreateBeneficiaryRequest{Name: "Acme", AccountNumber: "0123", Currency: "USD"},
		},
		{
			name: "bad currency",
			req:  domain.CreateBeneficiaryRequest{Name: "Acme", AccountNumber: "0123", BankCode: "058", Currency: "US"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddBeneficiary(ctx, tt.req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDeleteBeneficiary_MissingRow(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.DeleteBeneficiary(context.Background(), uuid.New()); !errors.Is(err, store.ErrBeneficiaryNotFound) {
		t.Fatalf("expected beneficiary not found, got %v", err)
	}
}

func TestSearchBeneficiaries_NameAndBankCode(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	seed := []domain.CreateBeneficiaryRequest{
		{Name: "Acme Supplies", AccountNumber: "0001", BankCode: "058", Currency: "USD"},
		{Name: "acme logistics", AccountNumber: "0002", BankCode: "011", Currency: "USD"},
		{Name: "Globex", AccountNumber: "0003", BankCode: "058", Currency: "EUR"},
	}
	for _, req := range seed {
		if _, err := svc.AddBeneficiary(ctx, req); err != nil {
			t.Fatalf("AddBeneficiary returned error: %v", err)
		}
	}

	name := "ACME"
	matches, err := svc.SearchBeneficiaries(ctx, domain.BeneficiaryFilter{Name: &name})
	if err != nil {
		t.Fatalf("SearchBeneficiaries returned error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 case-insensitive name matches, got %d", len(matches))
	}

	bankCode := "058"
	matches, err = svc.SearchBeneficiaries(ctx, domain.BeneficiaryFilter{Name: &name, BankCode: &bankCode})
	if err != nil {
		t.Fatalf("SearchBeneficiaries returned error: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "Acme Supplies" {
		t.Fatalf("expected single conjunctive match, got %v", matches)
	}
}

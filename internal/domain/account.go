/**
 * @description
 * This file defines the account domain models for the openbanking-service.
 * Accounts are the debit side of every payment: the workflow engine is the
 * only component allowed to mutate a balance, and a committed balance is
 * never negative.
 *
 * @notes
 * - Balances and amounts use `decimal.Decimal` (NUMERIC(15,2) in the store)
 *   to avoid floating-point drift on financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates the supported account categories.
type AccountType string

const (
	AccountTypeChecking     AccountType = "CHECKING"
	AccountTypeSavings      AccountType = "SAVINGS"
	AccountTypeInvestment   AccountType = "INVESTMENT"
	AccountTypeFixedDeposit AccountType = "FIXED_DEPOSIT"
	AccountTypeLoan         AccountType = "LOAN"
)

// ValidAccountType reports whether t is one of the supported account types.
func ValidAccountType(t AccountType) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeInvestment,
		AccountTypeFixedDeposit, AccountTypeLoan:
		return true
	}
	return false
}

// Account maps directly to the `accounts` table.
type Account struct {
	AccountID   uuid.UUID       `json:"account_id"`
	AccountType AccountType     `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"created_at"`
}

// CreateAccountRequest is the DTO for the add_account tool.
type CreateAccountRequest struct {
	AccountType AccountType     `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
}

// AccountBalance is the payload returned by the get_account_balance tool and
// the balance resource.
type AccountBalance struct {
	AccountID uuid.UUID       `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
}

// AccountFilter carries the optional, conjunctive predicates and the sort
// pair for account listing. Nil/empty fields match all rows.
type AccountFilter struct {
	AccountType *AccountType
	Currency    *string
	MinBalance  *decimal.Decimal
	MaxBalance  *decimal.Decimal
	SortBy      string // "balance", "created_at", "account_type"
	SortOrder   string // "asc" or "desc"
}

// AccountSummary aggregates the full account book for reporting.
type AccountSummary struct {
	TotalAccounts     int                        `json:"total_accounts"`
	BalanceByCurrency map[string]decimal.Decimal `json:"balance_by_currency"`
	AccountsByType    map[AccountType]int        `json:"accounts_by_type"`
	LastUpdated       time.Time                  `json:"last_updated"`
}

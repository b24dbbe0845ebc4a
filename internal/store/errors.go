/**
 * @description
 * Sentinel errors and structured error types shared by every Repository
 * implementation. Callers branch on these with errors.Is; the structured
 * types additionally carry the offending values the caller needs to decide
 * on a retry.
 */

package store

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound        = errors.New("account not found")
	ErrBeneficiaryNotFound    = errors.New("beneficiary not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidStateTransition = errors.New("payment is not in a cancellable state")
	ErrTransactionIntegrity   = errors.New("transaction integrity violation")
)

// InsufficientFundsError reports the current balance and the required amount
// so the caller can surface both. It matches ErrInsufficientFunds under
// errors.Is.
type InsufficientFundsError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, required %s", e.Balance, e.Required)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

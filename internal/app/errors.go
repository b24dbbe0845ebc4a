/**
 * @description
 * Business-logic error types for the workflow engine. Store-level failures
 * (missing rows, insufficient funds, integrity violations) live in
 * internal/store; this file covers the rejections the engine raises before
 * any write happens.
 */

package app

import (
	"errors"
	"fmt"
)

var (
	ErrValidation     = errors.New("validation failed")
	ErrPaymentBlocked = errors.New("payment blocked")
	ErrRateLimited    = errors.New("rate limit exceeded")
)

// ValidationError reports which input field was malformed and why. It
// matches ErrValidation under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PaymentBlockedError is the policy rejection for restricted currencies,
// raised before any DB write. It matches ErrPaymentBlocked under errors.Is.
type PaymentBlockedError struct {
	Currency string
}

func (e *PaymentBlockedError) Error() string {
	return fmt.Sprintf("payment blocked for the currency: %s", e.Currency)
}

func (e *PaymentBlockedError) Is(target error) bool {
	return target == ErrPaymentBlocked
}

// RateLimitedError tells the caller how long to wait before retrying. It
// matches ErrRateLimited under errors.Is.
type RateLimitedError struct {
	RetryAfterSeconds int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfterSeconds)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

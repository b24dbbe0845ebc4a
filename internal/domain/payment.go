/**
 * @description
 * Payment domain models. The payment row is the ledger record produced by the
 * workflow engine; its status field is the externally observable projection
 * of the engine's state machine.
 *
 * Status transitions:
 * - immediate payments are committed directly as COMPLETED (or never
 *   persisted at all when rejected),
 * - SCHEDULED payments are persisted without a debit and are later promoted
 *   to COMPLETED/FAILED by the due-payment job, or moved to CANCELLED by
 *   cancel_payment.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus enumerates the externally observable payment states.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusScheduled PaymentStatus = "SCHEDULED"
)

// ValidPaymentStatus reports whether s is one of the supported payment statuses.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed,
		PaymentStatusCancelled, PaymentStatusScheduled:
		return true
	}
	return false
}

// PaymentType enumerates the supported payment categories.
type PaymentType string

const (
	PaymentTypeImmediate   PaymentType = "IMMEDIATE"
	PaymentTypeScheduled   PaymentType = "SCHEDULED"
	PaymentTypeTransfer    PaymentType = "TRANSFER"
	PaymentTypeBillPayment PaymentType = "BILL_PAYMENT"
	PaymentTypeWire        PaymentType = "WIRE_TRANSFER"
	PaymentTypeACH         PaymentType = "ACH"
	PaymentTypeCard        PaymentType = "CARD_PAYMENT"
)

// ValidPaymentType reports whether t is one of the supported payment types.
func ValidPaymentType(t PaymentType) bool {
	switch t {
	case PaymentTypeImmediate, PaymentTypeScheduled, PaymentTypeTransfer,
		PaymentTypeBillPayment, PaymentTypeWire, PaymentTypeACH, PaymentTypeCard:
		return true
	}
	return false
}

// Payment maps directly to the `payments` table.
type Payment struct {
	PaymentID       uuid.UUID       `json:"payment_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BeneficiaryID   uuid.UUID       `json:"beneficiary_id"`
	SourceAccountID uuid.UUID       `json:"source_account_id"`
	Status          PaymentStatus   `json:"status"`
	Type            PaymentType     `json:"type"`
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// InitiatePaymentRequest is the DTO for the initiate_payment tool.
type InitiatePaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BeneficiaryID   uuid.UUID       `json:"beneficiary_id"`
	SourceAccountID uuid.UUID       `json:"source_account_id"`
}

// SchedulePaymentRequest is the DTO for the schedule_payment tool.
type SchedulePaymentRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	BeneficiaryID   uuid.UUID       `json:"beneficiary_id"`
	SourceAccountID uuid.UUID       `json:"source_account_id"`
	ScheduledDate   time.Time       `json:"scheduled_date"`
}

// PaymentFilter carries the optional, conjunctive predicates plus the sort
// pair and result cap for payment history search. Nil fields match all rows.
type PaymentFilter struct {
	StartDate     *time.Time
	EndDate       *time.Time
	MinAmount     *decimal.Decimal
	MaxAmount     *decimal.Decimal
	Currency      *string
	Status        *PaymentStatus
	Type          *PaymentType
	BeneficiaryID *uuid.UUID
	SortBy        string // "created_at", "amount", "scheduled_date"
	SortOrder     string // "asc" or "desc"
	Limit         int    // 0 means no cap
}

// PaymentStatistics aggregates the payment ledger over an optional date range.
type PaymentStatistics struct {
	TotalPayments     int                        `json:"total_payments"`
	TotalAmount       decimal.Decimal            `json:"total_amount"`
	StatusBreakdown   map[PaymentStatus]int      `json:"status_breakdown"`
	CurrencyBreakdown map[string]decimal.Decimal `json:"currency_breakdown"`
	TypeBreakdown     map[PaymentType]int        `json:"type_breakdown"`
	Period            PaymentStatisticsPeriod    `json:"period"`
	LastUpdated       time.Time                  `json:"last_updated"`
}

// PaymentStatisticsPeriod echoes the requested date range back to the caller.
type PaymentStatisticsPeriod struct {
	Start *time.Time `json:"start"`
	End   *time.Time `json:"end"`
}

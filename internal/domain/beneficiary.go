/**
 * @description
 * Beneficiary domain models. A beneficiary is the credit side of a payment:
 * payments carry a foreign key to a beneficiary row, and a payment must never
 * be committed against a beneficiary that does not exist.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Beneficiary maps directly to the `beneficiaries` table. Rows are immutable
// once created except for deletion.
type Beneficiary struct {
	BeneficiaryID uuid.UUID `json:"beneficiary_id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number"`
	BankCode      string    `json:"bank_code"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateBeneficiaryRequest is the DTO for the add_beneficiary tool.
type CreateBeneficiaryRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

// BeneficiaryFilter carries the optional predicates for beneficiary search.
// Name matches case-insensitively on substring, BankCode matches exactly.
type BeneficiaryFilter struct {
	Name     *string
	BankCode *string
}

/**
 * @description
 * Read-only resource endpoints. These expose the account book, beneficiary
 * directory, and payment ledger as plain GETs for clients that only need to
 * read state without going through the tool surface.
 */

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/transfa/openbanking-service/internal/domain"
)

// ListAccountsResource returns every account, newest first.
func (h *ToolHandlers) ListAccountsResource(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), domain.AccountFilter{})
	if err != nil {
		writeServiceError(w, "resource_accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accounts": accounts, "count": len(accounts)})
}

// GetAccountResource returns a single account by ID.
func (h *ToolHandlers) GetAccountResource(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, "resource_account", err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// GetAccountBalanceResource returns the balance projection for one account.
func (h *ToolHandlers) GetAccountBalanceResource(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid account ID")
		return
	}
	balance, err := h.service.GetAccountBalance(r.Context(), accountID)
	if err != nil {
		writeServiceError(w, "resource_account_balance", err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// ListBeneficiariesResource returns the full beneficiary directory.
func (h *ToolHandlers) ListBeneficiariesResource(w http.ResponseWriter, r *http.Request) {
	beneficiaries, err := h.service.SearchBeneficiaries(r.Context(), domain.BeneficiaryFilter{})
	if err != nil {
		writeServiceError(w, "resource_beneficiaries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"beneficiaries": beneficiaries, "count": len(beneficiaries)})
}

// ListPaymentsResource returns the payment ledger, newest first.
func (h *ToolHandlers) ListPaymentsResource(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.SearchPaymentHistory(r.Context(), domain.PaymentFilter{})
	if err != nil {
		writeServiceError(w, "resource_payments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payments": payments, "count": len(payments)})
}

// GetPaymentResource returns a single payment by ID.
func (h *ToolHandlers) GetPaymentResource(w http.ResponseWriter, r *http.Request) {
	paymentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment ID")
		return
	}
	payment, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		writeServiceError(w, "resource_payment", err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

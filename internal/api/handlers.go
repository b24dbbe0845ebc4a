/**
 * @description
 * This file contains the HTTP handlers for the banking tool endpoints.
 * Handlers are responsible for decoding tool arguments, calling the
 * appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/openbanking-service/internal/app"
	"github.com/transfa/openbanking-service/internal/domain"
	"github.com/transfa/openbanking-service/internal/store"
)

// ToolHandlers holds the application service that handlers will use.
type ToolHandlers struct {
	service *app.Service
}

// NewToolHandlers creates a new instance of ToolHandlers.
func NewToolHandlers(service *app.Service) *ToolHandlers {
	return &ToolHandlers{service: service}
}

type listAccountsArgs struct {
	AccountType *string          `json:"account_type"`
	Currency    *string          `json:"currency"`
	MinBalance  *decimal.Decimal `json:"min_balance"`
	MaxBalance  *decimal.Decimal `json:"max_balance"`
	SortBy      string           `json:"sort_by"`
	SortOrder   string           `json:"sort_order"`
}

type accountIDArgs struct {
	AccountID uuid.UUID `json:"account_id"`
}

type addMultipleAccountsArgs struct {
	Accounts []domain.CreateAccountRequest `json:"accounts"`
}

type beneficiaryIDArgs struct {
	BeneficiaryID uuid.UUID `json:"beneficiary_id"`
}

type searchBeneficiariesArgs struct {
	Name     *string `json:"name"`
	BankCode *string `json:"bank_code"`
}

type paymentIDArgs struct {
	PaymentID uuid.UUID `json:"payment_id"`
}

type searchPaymentHistoryArgs struct {
	StartDate     *time.Time       `json:"start_date"`
	EndDate       *time.Time       `json:"end_date"`
	MinAmount     *decimal.Decimal `json:"min_amount"`
	MaxAmount     *decimal.Decimal `json:"max_amount"`
	Currency      *string          `json:"currency"`
	Status        *string          `json:"status"`
	PaymentType   *string          `json:"payment_type"`
	BeneficiaryID *uuid.UUID       `json:"beneficiary_id"`
	SortBy        string           `json:"sort_by"`
	SortOrder     string           `json:"sort_order"`
	Limit         int              `json:"limit"`
}

type paymentStatisticsArgs struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// ListAccounts handles the list_accounts tool.
func (h *ToolHandlers) ListAccounts(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in listAccountsArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	filter := domain.AccountFilter{
		Currency:   in.Currency,
		MinBalance: in.MinBalance,
		MaxBalance: in.MaxBalance,
		SortBy:     in.SortBy,
		SortOrder:  in.SortOrder,
	}
	if in.AccountType != nil {
		accountType := domain.AccountType(strings.ToUpper(strings.TrimSpace(*in.AccountType)))
		if !domain.ValidAccountType(accountType) {
			return nil, &app.ValidationError{Field: "account_type", Reason: "unknown account type: " + *in.AccountType}
		}
		filter.AccountType = &accountType
	}

	accounts, err := h.service.ListAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"accounts": accounts, "count": len(accounts)}, nil
}

// AddAccount handles the add_account tool.
func (h *ToolHandlers) AddAccount(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in domain.CreateAccountRequest
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return h.service.CreateAccount(ctx, in)
}

// AddMultipleAccounts handles the add_multiple_accounts tool.
func (h *ToolHandlers) AddMultipleAccounts(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in addMultipleAccountsArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	accounts, err := h.service.CreateAccounts(ctx, in.Accounts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"accounts": accounts, "count": len(accounts)}, nil
}

// GetAccountBalance handles the get_account_balance tool.
func (h *ToolHandlers) GetAccountBalance(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in accountIDArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.AccountID == uuid.Nil {
		return nil, &app.ValidationError{Field: "account_id", Reason: "account_id is required"}
	}
	return h.service.GetAccountBalance(ctx, in.AccountID)
}

// GetAccountSummary handles the get_account_summary tool.
func (h *ToolHandlers) GetAccountSummary(ctx context.Context, args json.RawMessage) (interface{}, error) {
	return h.service.GetAccountSummary(ctx)
}

// AddBeneficiary handles the add_beneficiary tool.
func (h *ToolHandlers) AddBeneficiary(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in domain.CreateBeneficiaryRequest
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return h.service.AddBeneficiary(ctx, in)
}

// DeleteBeneficiary handles the delete_beneficiary tool.
func (h *ToolHandlers) DeleteBeneficiary(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in beneficiaryIDArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.BeneficiaryID == uuid.Nil {
		return nil, &app.ValidationError{Field: "beneficiary_id", Reason: "beneficiary_id is required"}
	}
	if err := h.service.DeleteBeneficiary(ctx, in.BeneficiaryID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"deleted": true, "beneficiary_id": in.BeneficiaryID}, nil
}

// SearchBeneficiaries handles the search_beneficiaries tool.
func (h *ToolHandlers) SearchBeneficiaries(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in searchBeneficiariesArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	beneficiaries, err := h.service.SearchBeneficiaries(ctx, domain.BeneficiaryFilter{Name: in.Name, BankCode: in.BankCode})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"beneficiaries": beneficiaries, "count": len(beneficiaries)}, nil
}

// InitiatePayment handles the initiate_payment tool.
func (h *ToolHandlers) InitiatePayment(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in domain.InitiatePaymentRequest
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return h.service.InitiatePayment(ctx, in)
}

// SchedulePayment handles the schedule_payment tool.
func (h *ToolHandlers) SchedulePayment(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in domain.SchedulePaymentRequest
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return h.service.SchedulePayment(ctx, in)
}

// CancelPayment handles the cancel_payment tool.
func (h *ToolHandlers) CancelPayment(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in paymentIDArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.PaymentID == uuid.Nil {
		return nil, &app.ValidationError{Field: "payment_id", Reason: "payment_id is required"}
	}
	return h.service.CancelPayment(ctx, in.PaymentID)
}

// SearchPaymentHistory handles the search_payment_history tool.
func (h *ToolHandlers) SearchPaymentHistory(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in searchPaymentHistoryArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}

	filter := domain.PaymentFilter{
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		MinAmount:     in.MinAmount,
		MaxAmount:     in.MaxAmount,
		Currency:      in.Currency,
		BeneficiaryID: in.BeneficiaryID,
		SortBy:        in.SortBy,
		SortOrder:     in.SortOrder,
		Limit:         in.Limit,
	}
	if in.Status != nil {
		status := domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(*in.Status)))
		if !domain.ValidPaymentStatus(status) {
			return nil, &app.ValidationError{Field: "status", Reason: "unknown payment status: " + *in.Status}
		}
		filter.Status = &status
	}
	if in.PaymentType != nil {
		paymentType := domain.PaymentType(strings.ToUpper(strings.TrimSpace(*in.PaymentType)))
		if !domain.ValidPaymentType(paymentType) {
			return nil, &app.ValidationError{Field: "payment_type", Reason: "unknown payment type: " + *in.PaymentType}
		}
		filter.Type = &paymentType
	}

	payments, err := h.service.SearchPaymentHistory(ctx, filter)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"payments": payments, "count": len(payments)}, nil
}

// GetPaymentStatistics handles the get_payment_statistics tool.
func (h *ToolHandlers) GetPaymentStatistics(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var in paymentStatisticsArgs
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	return h.service.GetPaymentStatistics(ctx, in.StartDate, in.EndDate)
}

// decodeArgs unmarshals the tool argument payload. An empty body is treated
// as an empty argument object so that no-argument tools work without one.
func decodeArgs(args json.RawMessage, dest interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, dest); err != nil {
		return &app.ValidationError{Field: "arguments", Reason: "malformed argument payload: " + err.Error()}
	}
	return nil
}

// writeJSON is a helper for writing JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain and store errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, toolName string, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrBeneficiaryNotFound),
		errors.Is(err, store.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, app.ErrPaymentBlocked):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		var rateErr *app.RateLimitedError
		if errors.As(err, &rateErr) && rateErr.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
		}
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		log.Printf("level=error component=api tool=%s msg=\"tool execution failed\" err=%v", toolName, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

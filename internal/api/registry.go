/**
 * @description
 * Static tool registry. Every banking tool is registered by name at startup;
 * requests to POST /tools/{name} are dispatched through the registry so the
 * exposed tool surface is fixed for the lifetime of the process.
 */

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// maxToolPayloadBytes caps a single tool argument payload.
const maxToolPayloadBytes = 1 << 20

// ToolFunc executes one tool against the decoded argument payload.
type ToolFunc func(ctx context.Context, args json.RawMessage) (interface{}, error)

// ToolRegistry maps tool names to their handlers. The registry is built once
// and never mutated afterwards.
type ToolRegistry struct {
	tools map[string]ToolFunc
}

// NewToolRegistry builds the registry with the full tool set.
func NewToolRegistry(h *ToolHandlers) *ToolRegistry {
	return &ToolRegistry{
		tools: map[string]ToolFunc{
			"list_accounts":          h.ListAccounts,
			"add_account":            h.AddAccount,
			"add_multiple_accounts":  h.AddMultipleAccounts,
			"get_account_balance":    h.GetAccountBalance,
			"get_account_summary":    h.GetAccountSummary,
			"add_beneficiary":        h.AddBeneficiary,
			"delete_beneficiary":     h.DeleteBeneficiary,
			"search_beneficiaries":   h.SearchBeneficiaries,
			"initiate_payment":       h.InitiatePayment,
			"schedule_payment":       h.SchedulePayment,
			"cancel_payment":         h.CancelPayment,
			"search_payment_history": h.SearchPaymentHistory,
			"get_payment_statistics": h.GetPaymentStatistics,
		},
	}
}

// Names returns the registered tool names.
func (reg *ToolRegistry) Names() []string {
	names := make([]string, 0, len(reg.tools))
	for name := range reg.tools {
		names = append(names, name)
	}
	return names
}

// DispatchHandler resolves the tool from the URL, reads the argument payload,
// and executes the tool.
func (reg *ToolRegistry) DispatchHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tool, ok := reg.tools[name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown tool: "+name)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxToolPayloadBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Tool payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	result, err := tool(r.Context(), body)
	if err != nil {
		writeServiceError(w, name, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListToolsHandler returns the registered tool names so clients can discover
// the exposed surface.
func (reg *ToolRegistry) ListToolsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": reg.Names()})
}

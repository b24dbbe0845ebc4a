package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/transfa/openbanking-service/internal/app"
	"github.com/transfa/openbanking-service/internal/store"
)

const testAPIKey = "test-internal-key"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := store.NewMemoryRepository()
	service := app.NewService(repo, nil, []string{"RUB", "SYP", "IRR", "VES", "SDG", "CUP"})
	handlers := NewToolHandlers(service)
	registry := NewToolRegistry(handlers)

	server := httptest.NewServer(Routes(handlers, registry, testAPIKey))
	t.Cleanup(server.Close)
	return server
}

func callTool(t *testing.T, server *httptest.Server, tool string, args interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	payload, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+"/tools/"+tool, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Api-Key", testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return resp, body
}

func createAccount(t *testing.T, server *httptest.Server, balance string) string {
	t.Helper()
	resp, body := callTool(t, server, "add_account", map[string]interface{}{
		"account_type": "CHECKING",
		"balance":      balance,
		"currency":     "USD",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add_account returned %d: %v", resp.StatusCode, body)
	}
	accountID, _ := body["account_id"].(string)
	if accountID == "" {
		t.Fatalf("add_account response missing account_id: %v", body)
	}
	return accountID
}

func createBeneficiary(t *testing.T, server *httptest.Server, currency string) string {
	t.Helper()
	resp, body := callTool(t, server, "add_beneficiary", map[string]interface{}{
		"name":           "Acme Supplies",
		"account_number": "0123456789",
		"bank_code":      "058",
		"currency":       currency,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add_beneficiary returned %d: %v", resp.StatusCode, body)
	}
	beneficiaryID, _ := body["beneficiary_id"].(string)
	if beneficiaryID == "" {
		t.Fatalf("add_beneficiary response missing beneficiary_id: %v", body)
	}
	return beneficiaryID
}

func TestToolDispatch_UnknownTool(t *testing.T) {
	server := newTestServer(t)

	resp, body := callTool(t, server, "mint_money", map[string]interface{}{})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tool, got %d: %v", resp.StatusCode, body)
	}
}

func TestToolDispatch_RequiresAPIKey(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/tools/list_accounts", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key, got %d", resp.StatusCode)
	}
}

func TestToolDispatch_OversizedPayloadIs413(t *testing.T) {
	server := newTestServer(t)

	payload := bytes.Repeat([]byte("a"), (1<<20)+1)
	req, err := http.NewRequest(http.MethodPost, server.URL+"/tools/list_accounts", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Api-Key", testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized payload, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint_IsUnauthenticated(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", resp.StatusCode)
	}
}

func TestInitiatePaymentTool_EndToEnd(t *testing.T) {
	server := newTestServer(t)

	accountID := createAccount(t, server, "100.00")
	beneficiaryID := createBeneficiary(t, server, "USD")

	resp, body := callTool(t, server, "initiate_payment", map[string]interface{}{
		"amount":            "60.00",
		"currency":          "USD",
		"beneficiary_id":    beneficiaryID,
		"source_account_id": accountID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initiate_payment returned %d: %v", resp.StatusCode, body)
	}
	if body["status"] != "COMPLETED" {
		t.Fatalf("expected COMPLETED payment, got %v", body["status"])
	}

	resp, body = callTool(t, server, "get_account_balance", map[string]interface{}{
		"account_id": accountID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get_account_balance returned %d: %v", resp.StatusCode, body)
	}
	if fmt.Sprint(body["balance"]) != "40" {
		t.Fatalf("expected balance 40, got %v", body["balance"])
	}
}

func TestInitiatePaymentTool_InsufficientFundsIs402(t *testing.T) {
	server := newTestServer(t)

	accountID := createAccount(t, server, "10.00")
	beneficiaryID := createBeneficiary(t, server, "USD")

	resp, body := callTool(t, server, "initiate_payment", map[string]interface{}{
		"amount":            "25.00",
		"currency":          "USD",
		"beneficiary_id":    beneficiaryID,
		"source_account_id": accountID,
	})
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("expected 402 for insufficient funds, got %d: %v", resp.StatusCode, body)
	}
}

func TestInitiatePaymentTool_BlockedCurrencyIs403(t *testing.T) {
	server := newTestServer(t)

	accountID := createAccount(t, server, "100.00")
	beneficiaryID := createBeneficiary(t, server, "RUB")

	resp, body := callTool(t, server, "initiate_payment", map[string]interface{}{
		"amount":            "10.00",
		"currency":          "RUB",
		"beneficiary_id":    beneficiaryID,
		"source_account_id": accountID,
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for blocked currency, got %d: %v", resp.StatusCode, body)
	}
}

func TestInitiatePaymentTool_ValidationIs400(t *testing.T) {
	server := newTestServer(t)

	accountID := createAccount(t, server, "100.00")
	beneficiaryID := createBeneficiary(t, server, "USD")

	resp, body := callTool(t, server, "initiate_payment", map[string]interface{}{
		"amount":            "-5.00",
		"currency":          "USD",
		"beneficiary_id":    beneficiaryID,
		"source_account_id": accountID,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative amount, got %d: %v", resp.StatusCode, body)
	}
}

func TestCancelPaymentTool_CompletedPaymentIs409(t *testing.T) {
	server := newTestServer(t)

	accountID := createAccount(t, server, "100.00")
	beneficiaryID := createBeneficiary(t, server, "USD")

	resp, body := callTool(t, server, "initiate_payment", map[string]interface{}{
		"amount":            "10.00",
		"currency":          "USD",
		"beneficiary_id":    beneficiaryID,
		"source_account_id": accountID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initiate_payment returned %d: %v", resp.StatusCode, body)
	}
	paymentID := body["payment_id"].(string)

	resp, body = callTool(t, server, "cancel_payment", map[string]interface{}{
		"payment_id": paymentID,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 cancelling a completed payment, got %d: %v", resp.StatusCode, body)
	}
}

func TestSchedulePaymentTool_Lifecycle(t *testing.T) {
	server := newTestServer(t)

	accountID := createAccount(t, server, "100.00")
	beneficiaryID := createBeneficiary(t, server, "USD")

	resp, body := callTool(t, server, "schedule_payment", map[string]interface{}{
		"amount":            "20.00",
		"currency":          "USD",
		"beneficiary_id":    beneficiaryID,
		"source_account_id": accountID,
		"scheduled_date":    time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schedule_payment returned %d: %v", resp.StatusCode, body)
	}
	if body["status"] != "SCHEDULED" {
		t.Fatalf("expected SCHEDULED payment, got %v", body["status"])
	}
	paymentID := body["payment_id"].(string)

	// Scheduling never debits.
	resp, body = callTool(t, server, "get_account_balance", map[string]interface{}{"account_id": accountID})
	if resp.StatusCode != http.StatusOK || fmt.Sprint(body["balance"]) != "100" {
		t.Fatalf("expected untouched balance 100, got %v (status %d)", body["balance"], resp.StatusCode)
	}

	resp, body = callTool(t, server, "cancel_payment", map[string]interface{}{"payment_id": paymentID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel_payment returned %d: %v", resp.StatusCode, body)
	}
	if body["status"] != "CANCELLED" {
		t.Fatalf("expected CANCELLED payment, got %v", body["status"])
	}
}

func TestSearchPaymentHistoryTool_RejectsUnknownStatus(t *testing.T) {
	server := newTestServer(t)

	resp, body := callTool(t, server, "search_payment_history", map[string]interface{}{
		"status": "LOST",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d: %v", resp.StatusCode, body)
	}
}

func TestDeleteBeneficiaryTool_MissingIs404(t *testing.T) {
	server := newTestServer(t)

	resp, body := callTool(t, server, "delete_beneficiary", map[string]interface{}{
		"beneficiary_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing beneficiary, got %d: %v", resp.StatusCode, body)
	}
}

func TestListToolsEndpoint(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/tools", nil)
	req.Header.Set("X-Internal-Api-Key", testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Tools []string `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Tools) != 13 {
		t.Fatalf("expected 13 registered tools, got %d: %v", len(body.Tools), body.Tools)
	}
}

func TestResourceEndpoints(t *testing.T) {
	server := newTestServer(t)

	accountID := createAccount(t, server, "75.00")

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/resources/accounts/"+accountID+"/balance", nil)
	req.Header.Set("X-Internal-Api-Key", testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from balance resource, got %d", resp.StatusCode)
	}

	var balance map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		t.Fatalf("failed to decode balance: %v", err)
	}
	if fmt.Sprint(balance["balance"]) != "75" {
		t.Fatalf("expected balance 75, got %v", balance["balance"])
	}

	req, _ = http.NewRequest(http.MethodGet, server.URL+"/resources/accounts/not-a-uuid", nil)
	req.Header.Set("X-Internal-Api-Key", testAPIKey)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed account id, got %d", resp.StatusCode)
	}
}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/notify"
	"github.com/mmynk/revledger/internal/service"
	"github.com/mmynk/revledger/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ledger := service.NewLedgerService(store)
	validator := service.NewSettlementValidator(store)
	settlement := service.NewSettlementService(store, ledger, &notify.LogNotifier{})

	handlers := NewHandlers(store, ledger, validator, settlement, decimal.Zero)
	server := httptest.NewServer(NewRouter(handlers, []string{"*"}))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "test-user")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestPaymentToSettlementFlow(t *testing.T) {
	server := newTestServer(t)

	// Create a default rule.
	resp := postJSON(t, server.URL+"/api/rules", map[string]any{
		"ruleName":      "Standard Split",
		"adminPercent":  10,
		"teamPercent":   30,
		"vendorPercent": 60,
		"isDefault":     true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create rule status = %d, want 201", resp.StatusCode)
	}
	var rule models.RevenueRule
	decodeJSON(t, resp, &rule)
	if rule.ID == "" || !rule.IsDefault {
		t.Fatalf("rule = %+v", rule)
	}

	// Split a payment with the default rule.
	resp = postJSON(t, server.URL+"/api/payments", map[string]any{
		"paymentId": "pay-1",
		"projectId": "proj-1",
		"amount":    "100.00",
		"currency":  "USD",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create payment status = %d, want 201", resp.StatusCode)
	}
	var entries []models.LedgerEntry
	decodeJSON(t, resp, &entries)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	var vendorID string
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
		if e.Party == models.PartyVendor {
			vendorID = e.ID
			if !e.Amount.Equal(decimal.RequireFromString("60")) {
				t.Errorf("vendor share = %s, want 60", e.Amount)
			}
		}
	}
	if !sum.Equal(decimal.RequireFromString("100")) {
		t.Errorf("share sum = %s, want 100", sum)
	}

	// Vendor balance reflects the pending entry.
	resp, err := http.Get(server.URL + "/api/balances")
	if err != nil {
		t.Fatalf("get balances failed: %v", err)
	}
	var balances []map[string]any
	decodeJSON(t, resp, &balances)
	if len(balances) != 3 {
		t.Fatalf("got %d balances, want 3", len(balances))
	}

	// Validate and commit the vendor settlement.
	resp = postJSON(t, server.URL+"/api/settlements/validate", map[string]any{
		"party":          "vendor",
		"ledgerEntryIds": []string{vendorID},
	})
	var validation service.ValidationResult
	decodeJSON(t, resp, &validation)
	if !validation.Valid {
		t.Fatalf("validation = %+v, want valid", validation)
	}

	resp = postJSON(t, server.URL+"/api/settlements", map[string]any{
		"party":          "vendor",
		"ledgerEntryIds": []string{vendorID},
		"proofUrls":      []string{"https://cdn.example.com/receipt.pdf"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create settlement status = %d, want 201", resp.StatusCode)
	}
	var settlement models.Settlement
	decodeJSON(t, resp, &settlement)
	if !settlement.TotalAmount.Equal(decimal.RequireFromString("60")) {
		t.Errorf("settlement total = %s, want 60", settlement.TotalAmount)
	}
	if len(settlement.ProofURLs) != 1 {
		t.Errorf("proof URLs = %v, want 1", settlement.ProofURLs)
	}
	if settlement.CreatedBy != "test-user" {
		t.Errorf("created by = %q, want test-user", settlement.CreatedBy)
	}

	// Re-settling the same entry must be rejected by validation.
	resp = postJSON(t, server.URL+"/api/settlements", map[string]any{
		"party":          "vendor",
		"ledgerEntryIds": []string{vendorID},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("double settlement status = %d, want 422", resp.StatusCode)
	}
	resp.Body.Close()

	// The settlement is retrievable and counted in the stats.
	resp, err = http.Get(server.URL + "/api/settlements/" + settlement.ID)
	if err != nil {
		t.Fatalf("get settlement failed: %v", err)
	}
	var fetched models.Settlement
	decodeJSON(t, resp, &fetched)
	if fetched.ID != settlement.ID {
		t.Errorf("fetched settlement = %+v", fetched)
	}

	resp, err = http.Get(server.URL + "/api/settlements/stats?party=vendor")
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	var stats models.SettlementStats
	decodeJSON(t, resp, &stats)
	if stats.TotalSettlements != 1 {
		t.Errorf("stats = %+v, want 1 settlement", stats)
	}
}

func TestCreateRule_InvalidPercentages(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/rules", map[string]any{
		"ruleName":      "Broken",
		"adminPercent":  50,
		"teamPercent":   30,
		"vendorPercent": 30,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var result struct {
		Valid  bool     `json:"isValid"`
		Errors []string `json:"errors"`
	}
	decodeJSON(t, resp, &result)
	if result.Valid || len(result.Errors) == 0 {
		t.Errorf("result = %+v, want validation errors", result)
	}
}

func TestGetEntry_NotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/entries/missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCreatePayment_NoDefaultRule(t *testing.T) {
	server := newTestServer(t)

	resp := postJSON(t, server.URL+"/api/payments", map[string]any{
		"paymentId": "pay-1",
		"projectId": "proj-1",
		"amount":    "100.00",
		"currency":  "USD",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

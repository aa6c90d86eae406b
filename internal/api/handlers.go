package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/calculator"
	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/service"
	"github.com/mmynk/revledger/internal/storage"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Error("Failed to encode response", "error", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the error taxonomy onto HTTP statuses. Commit
// failures deliberately surface a generic message: the caller must not
// assume partial success, and internals stay in the log.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, calculator.ErrInvalidAmount), errors.Is(err, calculator.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "operation failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

type ruleRequest struct {
	RuleName      string  `json:"ruleName"`
	AdminPercent  float64 `json:"adminPercent"`
	TeamPercent   float64 `json:"teamPercent"`
	VendorPercent float64 `json:"vendorPercent"`
	IsDefault     *bool   `json:"isDefault,omitempty"`
	IsActive      *bool   `json:"isActive,omitempty"`
}

// CreateRule validates and persists a revenue rule. Validation failures
// come back as a structured result with every applicable error.
func (h *Handlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rule := &models.RevenueRule{
		RuleName:      req.RuleName,
		AdminPercent:  models.Percent(req.AdminPercent),
		TeamPercent:   models.Percent(req.TeamPercent),
		VendorPercent: models.Percent(req.VendorPercent),
		IsActive:      true,
		CreatedBy:     userID(r),
	}
	if req.IsDefault != nil {
		rule.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	if result := calculator.ValidateRule(rule); !result.Valid {
		respondJSON(w, http.StatusBadRequest, result)
		return
	}

	if err := h.store.CreateRule(r.Context(), rule); err != nil {
		slog.Error("CreateRule failed", "error", err)
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, rule)
}

// ListRules returns all rules; ?active=true filters to active ones.
func (h *Handlers) ListRules(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	rules, err := h.store.ListRules(r.Context(), activeOnly)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rules)
}

// GetDefaultRule returns the rule currently marked default.
func (h *Handlers) GetDefaultRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.store.GetDefaultRule(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rule)
}

// SetDefaultRule marks a rule as the default split.
func (h *Handlers) SetDefaultRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.SetDefaultRule(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"id": id})
}

type paymentRequest struct {
	PaymentID string          `json:"paymentId"`
	ProjectID string          `json:"projectId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Date      int64           `json:"date,omitempty"`
	RuleID    string          `json:"ruleId,omitempty"`
}

// CreatePayment splits an incoming payment into pending ledger entries,
// using the named rule or the default one.
func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var rule *models.RevenueRule
	var err error
	if req.RuleID != "" {
		rule, err = h.store.GetRule(r.Context(), req.RuleID)
	} else {
		rule, err = h.store.GetDefaultRule(r.Context())
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	entries, err := h.ledger.CreateEntriesForPayment(r.Context(), models.Payment{
		ID:        req.PaymentID,
		ProjectID: req.ProjectID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Date:      req.Date,
	}, rule)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, entries)
}

type adjustmentRequest struct {
	Party     string          `json:"party"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	ProjectID string          `json:"projectId"`
	Remarks   string          `json:"remarks,omitempty"`
}

// CreateAdjustment records a manual credit or debit entry.
func (h *Handlers) CreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	entry, err := h.ledger.RecordAdjustment(r.Context(),
		models.Party(req.Party), models.EntryType(req.Type),
		req.Amount, req.Currency, req.ProjectID, req.Remarks)
	if err != nil {
		if errors.Is(err, calculator.ErrInvalidAmount) {
			respondServiceError(w, err)
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, entry)
}

// GetBalances returns the pending balance of every party. Per-party
// failures surface as a zero balance with an error string, never a
// failed response.
func (h *Handlers) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances := h.ledger.GetAllPartyBalances(r.Context())

	type balanceView struct {
		Party        models.Party    `json:"party"`
		TotalPending decimal.Decimal `json:"totalPending"`
		Currency     string          `json:"currency,omitempty"`
		LastUpdated  int64           `json:"lastUpdated"`
		Error        string          `json:"error,omitempty"`
	}
	views := make([]balanceView, len(balances))
	for i, balance := range balances {
		views[i] = balanceView{
			Party:        balance.Party,
			TotalPending: balance.TotalPending,
			Currency:     balance.Currency,
			LastUpdated:  balance.LastUpdated,
		}
		if balance.Err != nil {
			views[i].Error = "balance unavailable"
		}
	}

	respondJSON(w, http.StatusOK, views)
}

// GetEntry returns a single ledger entry.
func (h *Handlers) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.ledger.GetLedgerEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func parseParty(w http.ResponseWriter, r *http.Request) (models.Party, bool) {
	party, err := models.ParseParty(chi.URLParam(r, "party"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return party, true
}

// GetPendingEntries lists a party's entries eligible for settlement.
func (h *Handlers) GetPendingEntries(w http.ResponseWriter, r *http.Request) {
	party, ok := parseParty(w, r)
	if !ok {
		return
	}
	entries, err := h.ledger.GetPendingEntriesForSettlement(r.Context(), party)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// GetRecommendations returns suggested settlement groupings for a party.
func (h *Handlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	party, ok := parseParty(w, r)
	if !ok {
		return
	}
	recommendations, err := h.settlement.GetRecommendedSettlements(r.Context(), party)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, recommendations)
}

// ValidateSettlement runs the settlement validator and always returns
// 200 with the structured result, valid or not.
func (h *Handlers) ValidateSettlement(w http.ResponseWriter, r *http.Request) {
	var req service.SettlementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	respondJSON(w, http.StatusOK, h.validator.Validate(r.Context(), req))
}

type settlementRequest struct {
	service.SettlementRequest
	ProofURLs []string `json:"proofUrls,omitempty"`
}

// CreateSettlement validates and commits a settlement batch. A rejected
// batch returns the specific validation errors; a failed commit returns
// a generic failure with no partial ledger change.
func (h *Handlers) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if result := h.validator.Validate(r.Context(), req.SettlementRequest); !result.Valid {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	settlement, err := h.settlement.ProcessSettlementWithProof(
		r.Context(), req.SettlementRequest, req.ProofURLs, userID(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, settlement)
}

// ListSettlements returns settlements, optionally filtered by ?party=.
func (h *Handlers) ListSettlements(w http.ResponseWriter, r *http.Request) {
	var party *models.Party
	if raw := r.URL.Query().Get("party"); raw != "" {
		p, err := models.ParseParty(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		party = &p
	}

	settlements, err := h.store.ListSettlements(r.Context(), party)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settlements)
}

// GetSettlement returns a single settlement record.
func (h *Handlers) GetSettlement(w http.ResponseWriter, r *http.Request) {
	settlement, err := h.store.GetSettlement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, settlement)
}

// GetSettlementStats aggregates settlements, optionally for one party.
func (h *Handlers) GetSettlementStats(w http.ResponseWriter, r *http.Request) {
	var party *models.Party
	if raw := r.URL.Query().Get("party"); raw != "" {
		p, err := models.ParseParty(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		party = &p
	}

	stats, err := h.settlement.GetSettlementStats(r.Context(), party)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

type reminderRequest struct {
	Threshold *decimal.Decimal `json:"threshold,omitempty"`
}

// SendReminders triggers reminders for every party at or above the
// threshold, falling back to the configured default when the request
// names none, and reports who was reminded.
func (h *Handlers) SendReminders(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	threshold := h.reminderThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	reminders, err := h.settlement.SendSettlementReminders(r.Context(), threshold)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, reminders)
}

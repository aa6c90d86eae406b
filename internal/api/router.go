// Package api exposes the ledger engine over a JSON HTTP API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/service"
	"github.com/mmynk/revledger/internal/storage"
)

// Handlers bundles the services the API depends on.
type Handlers struct {
	store      storage.Store
	ledger     *service.LedgerService
	validator  *service.SettlementValidator
	settlement *service.SettlementService

	// reminderThreshold applies when a reminder request names no
	// threshold of its own.
	reminderThreshold decimal.Decimal
}

// NewHandlers creates the API handler set.
func NewHandlers(store storage.Store, ledger *service.LedgerService, validator *service.SettlementValidator, settlement *service.SettlementService, reminderThreshold decimal.Decimal) *Handlers {
	return &Handlers{
		store:             store,
		ledger:            ledger,
		validator:         validator,
		settlement:        settlement,
		reminderThreshold: reminderThreshold,
	}
}

// NewRouter wires all routes.
func NewRouter(h *Handlers, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-ID"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/rules", func(r chi.Router) {
			r.Post("/", h.CreateRule)
			r.Get("/", h.ListRules)
			r.Get("/default", h.GetDefaultRule)
			r.Post("/{id}/default", h.SetDefaultRule)
		})

		r.Post("/payments", h.CreatePayment)
		r.Post("/adjustments", h.CreateAdjustment)

		r.Get("/balances", h.GetBalances)
		r.Get("/entries/{id}", h.GetEntry)
		r.Route("/parties/{party}", func(r chi.Router) {
			r.Get("/entries", h.GetPendingEntries)
			r.Get("/recommendations", h.GetRecommendations)
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Post("/validate", h.ValidateSettlement)
			r.Post("/", h.CreateSettlement)
			r.Get("/", h.ListSettlements)
			r.Get("/stats", h.GetSettlementStats)
			r.Get("/{id}", h.GetSettlement)
			r.Post("/reminders", h.SendReminders)
		})
	})

	return r
}

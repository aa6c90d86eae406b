// Package metrics registers the engine's Prometheus collectors. Labels
// are kept to the three fixed parties and ISO currency codes so
// cardinality stays bounded.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntriesCreated counts ledger entries written, by party.
	EntriesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revledger_ledger_entries_created_total",
		Help: "Number of ledger entries created.",
	}, []string{"party"})

	// SettlementsCommitted counts successful settlement commits, by party.
	SettlementsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "revledger_settlements_committed_total",
		Help: "Number of settlements committed.",
	}, []string{"party"})

	// SettlementConflicts counts commits rejected because a referenced
	// entry was no longer pending.
	SettlementConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revledger_settlement_conflicts_total",
		Help: "Number of settlement commits lost to a concurrent settlement.",
	})

	// ValidationFailures counts settlement requests rejected by the
	// validator.
	ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revledger_settlement_validation_failures_total",
		Help: "Number of settlement requests that failed validation.",
	})

	// NotificationFailures counts swallowed notification errors.
	NotificationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "revledger_notification_failures_total",
		Help: "Number of notification deliveries that failed (and were swallowed).",
	})

	// SettlementAmount observes the absolute net total of committed
	// settlements, by currency.
	SettlementAmount = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "revledger_settlement_amount",
		Help:    "Absolute settlement net totals.",
		Buckets: prometheus.ExponentialBuckets(1, 10, 8),
	}, []string{"currency"})
)

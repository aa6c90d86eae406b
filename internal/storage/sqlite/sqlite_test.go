package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/revledger/internal/models"
	"github.com/mmynk/revledger/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedEntries(t *testing.T, store *SQLiteStore, entries ...*models.LedgerEntry) {
	t.Helper()
	if err := store.CreateEntries(context.Background(), entries); err != nil {
		t.Fatalf("CreateEntries failed: %v", err)
	}
}

func entry(party models.Party, entryType models.EntryType, amount, currency, projectID string, date int64) *models.LedgerEntry {
	return &models.LedgerEntry{
		ProjectID: projectID,
		Type:      entryType,
		Party:     party,
		Amount:    decimal.RequireFromString(amount),
		Currency:  currency,
		Date:      date,
		Status:    models.StatusPending,
	}
}

func TestRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateRule generates ID and timestamps", func(t *testing.T) {
		rule := &models.RevenueRule{
			RuleName:      "Standard Split",
			AdminPercent:  50,
			TeamPercent:   30,
			VendorPercent: 20,
			IsActive:      true,
			CreatedBy:     "op-1",
		}
		if err := store.CreateRule(ctx, rule); err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}
		if rule.ID == "" {
			t.Error("Expected rule ID to be generated")
		}
		if rule.CreatedAt == 0 || rule.UpdatedAt == 0 {
			t.Error("Expected timestamps to be set")
		}

		got, err := store.GetRule(ctx, rule.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if got.RuleName != rule.RuleName || got.AdminPercent != 50 {
			t.Errorf("GetRule mismatch: got %+v", got)
		}
	})

	t.Run("GetRule returns ErrNotFound", func(t *testing.T) {
		if _, err := store.GetRule(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("only one default rule at a time", func(t *testing.T) {
		first := &models.RevenueRule{
			RuleName: "First Default", AdminPercent: 100, IsDefault: true, IsActive: true,
		}
		second := &models.RevenueRule{
			RuleName: "Second Default", AdminPercent: 100, IsDefault: true, IsActive: true,
		}
		if err := store.CreateRule(ctx, first); err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}
		if err := store.CreateRule(ctx, second); err != nil {
			t.Fatalf("CreateRule failed: %v", err)
		}

		got, err := store.GetDefaultRule(ctx)
		if err != nil {
			t.Fatalf("GetDefaultRule failed: %v", err)
		}
		if got.ID != second.ID {
			t.Errorf("default rule = %s, want %s", got.ID, second.ID)
		}

		demoted, err := store.GetRule(ctx, first.ID)
		if err != nil {
			t.Fatalf("GetRule failed: %v", err)
		}
		if demoted.IsDefault {
			t.Error("first rule still marked default")
		}

		if err := store.SetDefaultRule(ctx, first.ID); err != nil {
			t.Fatalf("SetDefaultRule failed: %v", err)
		}
		got, err = store.GetDefaultRule(ctx)
		if err != nil {
			t.Fatalf("GetDefaultRule failed: %v", err)
		}
		if got.ID != first.ID {
			t.Errorf("default rule = %s, want %s", got.ID, first.ID)
		}
	})

	t.Run("SetDefaultRule on missing rule", func(t *testing.T) {
		if err := store.SetDefaultRule(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateEntries round trip", func(t *testing.T) {
		e := entry(models.PartyAdmin, models.EntryCredit, "120.50", "USD", "proj-1", 100)
		e.Remarks = "first payment"
		seedEntries(t, store, e)

		if e.ID == "" {
			t.Fatal("Expected entry ID to be generated")
		}
		got, err := store.GetEntry(ctx, e.ID)
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if !got.Amount.Equal(decimal.RequireFromString("120.50")) {
			t.Errorf("amount = %s, want 120.50", got.Amount)
		}
		if got.Status != models.StatusPending {
			t.Errorf("status = %s, want pending", got.Status)
		}
		if got.Remarks != "first payment" {
			t.Errorf("remarks = %q", got.Remarks)
		}
	})

	t.Run("GetEntry returns ErrNotFound", func(t *testing.T) {
		if _, err := store.GetEntry(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListPendingEntries is date ordered and party scoped", func(t *testing.T) {
		store := newTestStore(t)
		newer := entry(models.PartyTeam, models.EntryCredit, "10", "USD", "p", 200)
		older := entry(models.PartyTeam, models.EntryCredit, "20", "USD", "p", 100)
		other := entry(models.PartyVendor, models.EntryCredit, "30", "USD", "p", 50)
		seedEntries(t, store, newer, older, other)

		entries, err := store.ListPendingEntries(ctx, models.PartyTeam)
		if err != nil {
			t.Fatalf("ListPendingEntries failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("got %d entries, want 2", len(entries))
		}
		if entries[0].ID != older.ID {
			t.Errorf("first entry = %s, want oldest %s", entries[0].ID, older.ID)
		}
	})

	t.Run("PendingBalances signs debits and groups by currency", func(t *testing.T) {
		store := newTestStore(t)
		seedEntries(t, store,
			entry(models.PartyAdmin, models.EntryCredit, "100.00", "USD", "p", 1),
			entry(models.PartyAdmin, models.EntryDebit, "40.25", "USD", "p", 2),
			entry(models.PartyAdmin, models.EntryCredit, "7.00", "EUR", "p", 3),
		)

		totals, err := store.PendingBalances(ctx, models.PartyAdmin)
		if err != nil {
			t.Fatalf("PendingBalances failed: %v", err)
		}
		if len(totals) != 2 {
			t.Fatalf("got %d currencies, want 2", len(totals))
		}
		// Ordered by currency: EUR first.
		if totals[0].Currency != "EUR" || !totals[0].Total.Equal(decimal.RequireFromString("7")) {
			t.Errorf("EUR total = %+v", totals[0])
		}
		if totals[1].Currency != "USD" || !totals[1].Total.Equal(decimal.RequireFromString("59.75")) {
			t.Errorf("USD total = %+v, want 59.75", totals[1])
		}
	})
}

func TestCommitSettlement(t *testing.T) {
	ctx := context.Background()

	t.Run("clears entries and writes record atomically", func(t *testing.T) {
		store := newTestStore(t)
		credit := entry(models.PartyVendor, models.EntryCredit, "100.00", "USD", "p", 1)
		debit := entry(models.PartyVendor, models.EntryDebit, "30.00", "USD", "p", 2)
		seedEntries(t, store, credit, debit)

		settlement := &models.Settlement{
			Party:          models.PartyVendor,
			LedgerEntryIDs: []string{credit.ID, debit.ID},
			TotalAmount:    decimal.RequireFromString("70.00"),
			Currency:       "USD",
			CreatedBy:      "op-1",
		}
		if err := store.CommitSettlement(ctx, settlement); err != nil {
			t.Fatalf("CommitSettlement failed: %v", err)
		}
		if settlement.ID == "" {
			t.Fatal("Expected settlement ID to be generated")
		}

		for _, id := range settlement.LedgerEntryIDs {
			got, err := store.GetEntry(ctx, id)
			if err != nil {
				t.Fatalf("GetEntry failed: %v", err)
			}
			if got.Status != models.StatusCleared {
				t.Errorf("entry %s status = %s, want cleared", id, got.Status)
			}
		}

		got, err := store.GetSettlement(ctx, settlement.ID)
		if err != nil {
			t.Fatalf("GetSettlement failed: %v", err)
		}
		if len(got.LedgerEntryIDs) != 2 || got.LedgerEntryIDs[0] != credit.ID {
			t.Errorf("entry refs = %v", got.LedgerEntryIDs)
		}
		if !got.TotalAmount.Equal(decimal.RequireFromString("70")) {
			t.Errorf("total = %s, want 70", got.TotalAmount)
		}
	})

	t.Run("conflict on already cleared entry rolls back everything", func(t *testing.T) {
		store := newTestStore(t)
		settled := entry(models.PartyAdmin, models.EntryCredit, "10", "USD", "p", 1)
		fresh := entry(models.PartyAdmin, models.EntryCredit, "20", "USD", "p", 2)
		seedEntries(t, store, settled, fresh)

		first := &models.Settlement{
			Party:          models.PartyAdmin,
			LedgerEntryIDs: []string{settled.ID},
			TotalAmount:    decimal.NewFromInt(10),
			Currency:       "USD",
		}
		if err := store.CommitSettlement(ctx, first); err != nil {
			t.Fatalf("CommitSettlement failed: %v", err)
		}

		second := &models.Settlement{
			Party:          models.PartyAdmin,
			LedgerEntryIDs: []string{fresh.ID, settled.ID},
			TotalAmount:    decimal.NewFromInt(30),
			Currency:       "USD",
		}
		err := store.CommitSettlement(ctx, second)
		if !errors.Is(err, storage.ErrConflict) {
			t.Fatalf("error = %v, want ErrConflict", err)
		}

		// The fresh entry must still be pending: no partial commit.
		got, err := store.GetEntry(ctx, fresh.ID)
		if err != nil {
			t.Fatalf("GetEntry failed: %v", err)
		}
		if got.Status != models.StatusPending {
			t.Errorf("fresh entry status = %s, want pending after rollback", got.Status)
		}
		if _, err := store.GetSettlement(ctx, second.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("second settlement persisted despite conflict: err = %v", err)
		}
	})

	t.Run("missing entry conflicts", func(t *testing.T) {
		store := newTestStore(t)
		settlement := &models.Settlement{
			Party:          models.PartyTeam,
			LedgerEntryIDs: []string{"missing"},
			TotalAmount:    decimal.NewFromInt(1),
			Currency:       "USD",
		}
		if err := store.CommitSettlement(ctx, settlement); !errors.Is(err, storage.ErrConflict) {
			t.Errorf("error = %v, want ErrConflict", err)
		}
	})
}

func TestAttachSettlementProof(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := entry(models.PartyTeam, models.EntryCredit, "50", "USD", "p", 1)
	seedEntries(t, store, e)
	settlement := &models.Settlement{
		Party:          models.PartyTeam,
		LedgerEntryIDs: []string{e.ID},
		TotalAmount:    decimal.NewFromInt(50),
		Currency:       "USD",
	}
	if err := store.CommitSettlement(ctx, settlement); err != nil {
		t.Fatalf("CommitSettlement failed: %v", err)
	}

	urls := []string{"https://example.com/proof1.pdf", "https://example.com/proof2.pdf"}
	enriched, err := store.AttachSettlementProof(ctx, settlement.ID, urls)
	if err != nil {
		t.Fatalf("AttachSettlementProof failed: %v", err)
	}
	if len(enriched.ProofURLs) != 2 || enriched.ProofURLs[0] != urls[0] {
		t.Errorf("proof URLs = %v, want %v", enriched.ProofURLs, urls)
	}

	// Settlements are immutable apart from one proof attach.
	if _, err := store.AttachSettlementProof(ctx, settlement.ID, urls); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("second attach error = %v, want ErrConflict", err)
	}

	if _, err := store.AttachSettlementProof(ctx, "missing", urls); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("attach to missing settlement error = %v, want ErrNotFound", err)
	}
}

func TestSubscribeLedger(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var adminEvents, allEvents []storage.LedgerEvent
	unsubAdmin := store.SubscribeLedger(models.PartyAdmin, func(e storage.LedgerEvent) {
		adminEvents = append(adminEvents, e)
	})
	unsubAll := store.SubscribeLedger("", func(e storage.LedgerEvent) {
		allEvents = append(allEvents, e)
	})
	defer unsubAll()

	admin := entry(models.PartyAdmin, models.EntryCredit, "10", "USD", "p", 1)
	team := entry(models.PartyTeam, models.EntryCredit, "10", "USD", "p", 1)
	seedEntries(t, store, admin, team)

	if len(adminEvents) != 1 {
		t.Fatalf("admin subscriber got %d events, want 1", len(adminEvents))
	}
	if adminEvents[0].Kind != storage.EventEntriesCreated || adminEvents[0].EntryIDs[0] != admin.ID {
		t.Errorf("unexpected admin event: %+v", adminEvents[0])
	}
	if len(allEvents) != 2 {
		t.Errorf("catch-all subscriber got %d events, want 2", len(allEvents))
	}

	settlement := &models.Settlement{
		Party:          models.PartyAdmin,
		LedgerEntryIDs: []string{admin.ID},
		TotalAmount:    decimal.NewFromInt(10),
		Currency:       "USD",
	}
	if err := store.CommitSettlement(ctx, settlement); err != nil {
		t.Fatalf("CommitSettlement failed: %v", err)
	}
	if len(adminEvents) != 2 || adminEvents[1].Kind != storage.EventSettlementCommitted {
		t.Fatalf("admin subscriber missed settlement event: %+v", adminEvents)
	}

	unsubAdmin()
	seedEntries(t, store, entry(models.PartyAdmin, models.EntryCredit, "5", "USD", "p", 2))
	if len(adminEvents) != 2 {
		t.Error("admin subscriber received events after unsubscribe")
	}
}

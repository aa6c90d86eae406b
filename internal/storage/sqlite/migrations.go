package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist. Amounts are integer minor
// units; entry type/party/status are constrained at the schema level so a
// bad write fails loudly instead of corrupting aggregates.
const schema = `
CREATE TABLE IF NOT EXISTS revenue_rules (
    id TEXT PRIMARY KEY,
    rule_name TEXT NOT NULL,
    admin_percent REAL NOT NULL,
    team_percent REAL NOT NULL,
    vendor_percent REAL NOT NULL,
    is_default INTEGER NOT NULL DEFAULT 0,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
    id TEXT PRIMARY KEY,
    payment_id TEXT,
    project_id TEXT NOT NULL,
    revenue_rule_id TEXT,
    type TEXT NOT NULL CHECK (type IN ('credit', 'debit')),
    party TEXT NOT NULL CHECK (party IN ('admin', 'team', 'vendor')),
    amount_minor INTEGER NOT NULL CHECK (amount_minor >= 0),
    currency TEXT NOT NULL,
    date INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'cleared')),
    remarks TEXT,
    FOREIGN KEY (revenue_rule_id) REFERENCES revenue_rules(id)
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_party_status
    ON ledger_entries(party, status);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    party TEXT NOT NULL CHECK (party IN ('admin', 'team', 'vendor')),
    total_amount_minor INTEGER NOT NULL,
    currency TEXT NOT NULL,
    settlement_date INTEGER NOT NULL,
    remarks TEXT,
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS settlement_entries (
    settlement_id TEXT NOT NULL,
    ledger_entry_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (settlement_id, ledger_entry_id),
    FOREIGN KEY (settlement_id) REFERENCES settlements(id) ON DELETE CASCADE,
    FOREIGN KEY (ledger_entry_id) REFERENCES ledger_entries(id)
);

CREATE TABLE IF NOT EXISTS settlement_proofs (
    settlement_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    url TEXT NOT NULL,
    PRIMARY KEY (settlement_id, position),
    FOREIGN KEY (settlement_id) REFERENCES settlements(id) ON DELETE CASCADE
);
`

// runMigrations applies the schema to the database.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

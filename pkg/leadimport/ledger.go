package leadimport

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Ledger records which Graph lead ids were already imported, so repeated
// runs and the scheduled daemon never create duplicate CRM leads.
type Ledger struct {
	db *sql.DB
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS imported_leads (
	graph_lead_id TEXT PRIMARY KEY,
	crm_lead_id   TEXT NOT NULL,
	form_id       TEXT NOT NULL DEFAULT '',
	imported_at   TIMESTAMP NOT NULL
);
`

// OpenLedger opens (creating if needed) the sqlite ledger at path
func OpenLedger(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	l := NewLedger(db)
	if err := l.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// NewLedger wraps an existing database handle; callers own migration
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Migrate creates the ledger table if it does not exist
func (l *Ledger) Migrate(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, ledgerSchema); err != nil {
		return fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return nil
}

// Seen reports whether a Graph lead id was already imported
func (l *Ledger) Seen(ctx context.Context, graphLeadID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx,
		"SELECT 1 FROM imported_leads WHERE graph_lead_id = ?", graphLeadID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger lookup failed: %w", err)
	}
	return true, nil
}

// Record marks a Graph lead as imported with the CRM lead id it produced
func (l *Ledger) Record(ctx context.Context, graphLeadID, crmLeadID, formID string) error {
	_, err := l.db.ExecContext(ctx,
		"INSERT INTO imported_leads (graph_lead_id, crm_lead_id, form_id, imported_at) VALUES (?, ?, ?, ?)",
		graphLeadID, crmLeadID, formID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record imported lead: %w", err)
	}
	return nil
}

// Count returns how many leads the ledger has recorded
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM imported_leads").Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger count failed: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle
func (l *Ledger) Close() error {
	return l.db.Close()
}

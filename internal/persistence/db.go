// Package persistence provides SQLite-backed agency storage.
// Each agency is one row holding its JSON document plus a version column used
// for compare-and-swap commits; event logs are mirrored into an append-only
// events table for querying.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/studio-league/internal/agency"
	"github.com/talgya/studio-league/internal/store"
)

// eventTimeLayout sorts lexicographically in time order.
const eventTimeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	_ store.Store     = (*DB)(nil)
	_ store.MetaStore = (*DB)(nil)
)

// DB wraps a SQLite connection for league state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer keeps BEGIN/COMMIT ordering simple under SQLite.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agencies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		class_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		ve_current INTEGER NOT NULL,
		budget_real INTEGER NOT NULL,
		status TEXT NOT NULL,
		member_count INTEGER NOT NULL,
		event_count INTEGER NOT NULL DEFAULT 0,
		doc_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		agency_id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		label TEXT NOT NULL,
		description TEXT NOT NULL,
		delta_ve INTEGER,
		delta_budget INTEGER
	);

	CREATE TABLE IF NOT EXISTS league_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_agency ON events(agency_id, date);
	CREATE INDEX IF NOT EXISTS idx_agencies_class ON agencies(class_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type agencyRow struct {
	Version int64  `db:"version"`
	DocJSON string `db:"doc_json"`
}

func decodeAgency(row agencyRow) (*agency.Agency, error) {
	var a agency.Agency
	if err := json.Unmarshal([]byte(row.DocJSON), &a); err != nil {
		return nil, fmt.Errorf("decode agency: %w", err)
	}
	a.Version = row.Version
	return &a, nil
}

// ReadAgency loads one agency.
func (db *DB) ReadAgency(ctx context.Context, id string) (*agency.Agency, error) {
	var row agencyRow
	err := db.conn.GetContext(ctx, &row, "SELECT version, doc_json FROM agencies WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read agency %s: %w", id, err)
	}
	return decodeAgency(row)
}

// ReadAllAgencies loads every agency ordered by id.
func (db *DB) ReadAllAgencies(ctx context.Context) ([]*agency.Agency, error) {
	var rows []agencyRow
	if err := db.conn.SelectContext(ctx, &rows, "SELECT version, doc_json FROM agencies ORDER BY id"); err != nil {
		return nil, fmt.Errorf("read agencies: %w", err)
	}
	out := make([]*agency.Agency, 0, len(rows))
	for _, row := range rows {
		a, err := decodeAgency(row)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Commit writes the batch in one transaction. Every row is updated only if
// its version still matches; any mismatch rolls the whole batch back. Only
// the events appended since the stored version reach the events table.
func (db *DB) Commit(ctx context.Context, b store.Batch) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	eventStmt, err := tx.PreparexContext(ctx, `INSERT OR IGNORE INTO events
		(id, agency_id, date, type, label, description, delta_ve, delta_budget)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, a := range b.Agencies {
		next := a.Version + 1
		doc := *a
		doc.Version = next
		docJSON, err := json.Marshal(&doc)
		if err != nil {
			return fmt.Errorf("encode agency %s: %w", a.ID, err)
		}

		var (
			res    sql.Result
			stored int
		)
		if a.Version == 0 {
			res, err = tx.ExecContext(ctx, `INSERT INTO agencies
				(id, name, class_id, version, ve_current, budget_real, status, member_count, event_count, doc_json, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO NOTHING`,
				a.ID, a.Name, a.ClassID, next, a.VECurrent, a.BudgetReal, a.Status, len(a.Members), len(a.EventLog), string(docJSON), now,
			)
		} else {
			err = tx.GetContext(ctx, &stored, "SELECT event_count FROM agencies WHERE id = ? AND version = ?", a.ID, a.Version)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("read agency %s: %w", a.ID, err)
			}
			res, err = tx.ExecContext(ctx, `UPDATE agencies SET
				name = ?, class_id = ?, version = ?, ve_current = ?, budget_real = ?,
				status = ?, member_count = ?, event_count = ?, doc_json = ?, updated_at = ?
				WHERE id = ? AND version = ?`,
				a.Name, a.ClassID, next, a.VECurrent, a.BudgetReal, a.Status, len(a.Members), len(a.EventLog), string(docJSON), now,
				a.ID, a.Version,
			)
		}
		if err != nil {
			return fmt.Errorf("write agency %s: %w", a.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			var actual int64
			_ = tx.GetContext(ctx, &actual, "SELECT version FROM agencies WHERE id = ?", a.ID)
			return &store.ConflictError{AgencyID: a.ID, Expected: a.Version, Actual: actual}
		}

		for _, e := range a.EventLog[min(stored, len(a.EventLog)):] {
			if _, err := eventStmt.ExecContext(ctx,
				e.ID, a.ID, e.Date.UTC().Format(eventTimeLayout), e.Type, e.Label, e.Description,
				e.DeltaVE, e.DeltaBudgetReal,
			); err != nil {
				return fmt.Errorf("insert event %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Debug("batch committed", "agencies", b.Len())
	return nil
}

// HasAgencies reports whether any agency has been stored.
func (db *DB) HasAgencies(ctx context.Context) bool {
	var n int
	if err := db.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM agencies"); err != nil {
		return false
	}
	return n > 0
}

// SaveMeta stores a key-value pair in league metadata.
func (db *DB) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO league_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM league_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: meta %s", store.ErrNotFound, key)
	}
	return value, err
}

// EventRow is one audit event as stored in the events table.
type EventRow struct {
	ID          string `db:"id" json:"id"`
	AgencyID    string `db:"agency_id" json:"agencyId"`
	Date        string `db:"date" json:"date"`
	Type        string `db:"type" json:"type"`
	Label       string `db:"label" json:"label"`
	Description string `db:"description" json:"description"`
	DeltaVE     *int64 `db:"delta_ve" json:"deltaVE,omitempty"`
	DeltaBudget *int64 `db:"delta_budget" json:"deltaBudgetReal,omitempty"`
}

// RecentEvents returns the most recent events, newest first. An empty
// agencyID returns events across the league.
func (db *DB) RecentEvents(ctx context.Context, agencyID string, limit int) ([]EventRow, error) {
	var events []EventRow
	var err error
	if agencyID == "" {
		err = db.conn.SelectContext(ctx, &events,
			"SELECT * FROM events ORDER BY date DESC LIMIT ?", limit)
	} else {
		err = db.conn.SelectContext(ctx, &events,
			"SELECT * FROM events WHERE agency_id = ? ORDER BY date DESC LIMIT ?", agencyID, limit)
	}
	return events, err
}

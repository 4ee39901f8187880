package dedup

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	// sqlite driver registration
	_ "github.com/mattn/go-sqlite3"

	"github.com/wxvisuals/warnmap/internal/alert"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_alerts (
	alert_id     TEXT PRIMARY KEY,
	processed_at TIMESTAMP NOT NULL,
	event        TEXT NOT NULL
);`

// SQLiteStore keeps processed records in a local sqlite database. Same
// contract as FileStore; useful when several tools share the dedup state.
type SQLiteStore struct {
	db      *sql.DB
	clock   clockwork.Clock
	logger  *zap.Logger
	records map[string]alert.ProcessedRecord
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string, clock clockwork.Clock, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{
		db:      db,
		clock:   clock,
		logger:  logger,
		records: make(map[string]alert.ProcessedRecord),
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load reads all rows and drops records past the dedup horizon.
func (s *SQLiteStore) Load() error {
	rows, err := s.db.Query(`SELECT alert_id, processed_at, event FROM processed_alerts`)
	if err != nil {
		return fmt.Errorf("query processed alerts: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]alert.ProcessedRecord)
	for rows.Next() {
		var rec alert.ProcessedRecord
		if err := rows.Scan(&rec.AlertID, &rec.ProcessedAt, &rec.Event); err != nil {
			return fmt.Errorf("scan processed alert: %w", err)
		}
		raw[rec.AlertID] = rec
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate processed alerts: %w", err)
	}

	s.records = prune(raw, s.clock.Now(), s.logger)
	return nil
}

// Seen reports whether the ID is already marked.
func (s *SQLiteStore) Seen(id string) bool {
	_, ok := s.records[id]
	return ok
}

// Mark records the ID as processed. First mark wins.
func (s *SQLiteStore) Mark(id, event string, now time.Time) {
	if _, ok := s.records[id]; ok {
		return
	}
	s.records[id] = alert.ProcessedRecord{AlertID: id, ProcessedAt: now, Event: event}
}

// Persist rewrites the table from the in-memory map in one transaction.
func (s *SQLiteStore) Persist() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin persist: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM processed_alerts`); err != nil {
		return fmt.Errorf("clear processed alerts: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO processed_alerts (alert_id, processed_at, event) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range s.records {
		if _, err := stmt.Exec(rec.AlertID, rec.ProcessedAt, rec.Event); err != nil {
			return fmt.Errorf("insert %s: %w", rec.AlertID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit persist: %w", err)
	}
	return nil
}

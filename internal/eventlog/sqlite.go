package eventlog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/feltd/feltd/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS table_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	table_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_table_events_table ON table_events(table_id, id);
`

// SQLite is a Log backed by a sqlite database file. Events are stored as
// their tagged JSON envelopes, so the log stays readable with plain SQL.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path. Use
// ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open event log %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init event log schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Append(ctx context.Context, tableID string, ev engine.Event) error {
	payload, err := engine.MarshalEvent(ev)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO table_events (table_id, kind, payload) VALUES (?, ?, ?)`,
		tableID, ev.Kind(), payload)
	if err != nil {
		return fmt.Errorf("append %s event: %w", ev.Kind(), err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, tableID string) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM table_events WHERE table_id = ? ORDER BY id`, tableID)
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", tableID, err)
	}
	defer rows.Close()

	var history []engine.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		ev, err := engine.UnmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		history = append(history, ev)
	}
	return history, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

// Package eventlog persists per-table event histories. The log is
// append-only and, replayed through the reducer from an empty table,
// reconstructs the table state exactly.
package eventlog

import (
	"context"

	"github.com/feltd/feltd/internal/engine"
)

// Log stores the ordered event history of tables.
type Log interface {
	// Append adds an event to the table's history.
	Append(ctx context.Context, tableID string, ev engine.Event) error
	// Load returns a table's full history in append order.
	Load(ctx context.Context, tableID string) ([]engine.Event, error)
	Close() error
}

// Replay folds a history over a base table, discarding side effects. The
// base must match the table the history was recorded against (same id and
// stakes).
func Replay(base *engine.Table, history []engine.Event) *engine.Table {
	t := base
	for _, ev := range history {
		t, _ = engine.Reduce(t, ev)
	}
	return t
}

package eventlog

import (
	"context"
	"sync"

	"github.com/feltd/feltd/internal/engine"
)

// Memory is an in-process Log. Histories are kept per table under one
// lock; it is the default store when no database is configured.
type Memory struct {
	mu       sync.Mutex
	byTable  map[string][]engine.Event
	capacity int
}

// NewMemory creates an in-memory log. capacity bounds each table's
// retained history; 0 means unbounded.
func NewMemory(capacity int) *Memory {
	return &Memory{byTable: make(map[string][]engine.Event), capacity: capacity}
}

func (m *Memory) Append(_ context.Context, tableID string, ev engine.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	history := append(m.byTable[tableID], ev)
	if m.capacity > 0 && len(history) > m.capacity {
		history = history[len(history)-m.capacity:]
	}
	m.byTable[tableID] = history
	return nil
}

func (m *Memory) Load(_ context.Context, tableID string) ([]engine.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]engine.Event(nil), m.byTable[tableID]...), nil
}

func (m *Memory) Close() error { return nil }

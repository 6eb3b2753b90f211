// Package countdown records client-driven countdowns. The server never
// waits on these records: clients render remaining time locally from
// (startTime, duration) and the server only validates elapsed time when a
// completion event arrives. Server-authoritative timing (the action
// timeout) lives in the table loop, not here.
package countdown

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Type classifies a countdown for client display.
type Type string

const (
	TypeGameStart  Type = "game_start"
	TypeAction     Type = "action"
	TypeStreetDeal Type = "street_deal"
	TypeNewHand    Type = "new_hand"
	TypeReconnect  Type = "reconnect"
)

// Priority orders concurrent countdowns for display; higher wins.
func Priority(t Type) int {
	switch t {
	case TypeAction:
		return 5
	case TypeReconnect:
		return 4
	case TypeGameStart:
		return 3
	case TypeStreetDeal:
		return 2
	case TypeNewHand:
		return 1
	}
	return 0
}

// Record is one countdown as announced to clients.
type Record struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	StartTime time.Time         `json:"startTime"`
	Duration  time.Duration     `json:"duration"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Deadline is the instant the countdown elapses.
func (r Record) Deadline() time.Time {
	return r.StartTime.Add(r.Duration)
}

const (
	sweepInterval = 30 * time.Second
	sweepGrace    = 5 * time.Second
)

// ErrTooEarly is returned when a completion event lands before its
// countdown has elapsed.
var ErrTooEarly = fmt.Errorf("countdown has not elapsed")

// Manager tracks the live countdowns of one table. Expired records are
// swept periodically; correctness never depends on the sweep because
// validators compare against the clock directly.
type Manager struct {
	clock quartz.Clock

	mu      sync.Mutex
	records map[string]Record
	sweep   *quartz.Timer
	closed  bool
}

// NewManager creates a countdown manager on the given clock and arms the
// periodic sweep.
func NewManager(clock quartz.Clock) *Manager {
	m := &Manager{clock: clock, records: make(map[string]Record)}
	m.sweep = clock.AfterFunc(sweepInterval, m.runSweep)
	return m
}

// Start records a countdown and returns it for announcement to clients.
func (m *Manager) Start(t Type, duration time.Duration, metadata map[string]string) Record {
	rec := Record{
		ID:        uuid.NewString(),
		Type:      t,
		StartTime: m.clock.Now(),
		Duration:  duration,
		Metadata:  metadata,
	}
	m.mu.Lock()
	m.records[rec.ID] = rec
	m.mu.Unlock()
	return rec
}

// Cancel drops a countdown by id. Cancellation only frees memory; expiry
// needs no cancellation to be correct.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
}

// CancelType drops every countdown of the given type.
func (m *Manager) CancelType(t Type) {
	m.mu.Lock()
	for id, rec := range m.records {
		if rec.Type == t {
			delete(m.records, id)
		}
	}
	m.mu.Unlock()
}

// ValidateElapsed checks that the countdown ran its full duration. An
// unknown id passes: the record may already have been swept.
func (m *Manager) ValidateElapsed(id string) error {
	m.mu.Lock()
	rec, ok := m.records[id]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	if m.clock.Now().Before(rec.Deadline()) {
		return fmt.Errorf("%s countdown %s: %w", rec.Type, id, ErrTooEarly)
	}
	return nil
}

// Active returns the live countdowns, highest display priority first.
func (m *Manager) Active() []Record {
	m.mu.Lock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		pi, pj := Priority(out[i].Type), Priority(out[j].Type)
		if pi != pj {
			return pi > pj
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// Close cancels the sweep and drops every record.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.records = make(map[string]Record)
	sweep := m.sweep
	m.mu.Unlock()
	if sweep != nil {
		sweep.Stop()
	}
}

func (m *Manager) runSweep() {
	now := m.clock.Now()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	for id, rec := range m.records {
		if now.After(rec.Deadline().Add(sweepGrace)) {
			delete(m.records, id)
		}
	}
	m.sweep = m.clock.AfterFunc(sweepInterval, m.runSweep)
	m.mu.Unlock()
}

package server

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/feltd/feltd/internal/countdown"
	"github.com/feltd/feltd/internal/engine"
	"github.com/feltd/feltd/internal/loop"
)

// Table couples one table loop with the connections watching it. It is
// the loop's Notifier: engine state changes fan out here as per-viewer
// redacted snapshots.
type Table struct {
	ID   string
	Name string

	loop    *loop.Loop
	logger  *log.Logger
	metrics *Metrics

	mu   sync.RWMutex
	subs map[*Connection]struct{}
}

func newTable(id, name string, logger *log.Logger, metrics *Metrics) *Table {
	return &Table{
		ID:      id,
		Name:    name,
		logger:  logger.With("table", id),
		metrics: metrics,
		subs:    make(map[*Connection]struct{}),
	}
}

// Subscribe adds a connection to the table's broadcast set.
func (t *Table) Subscribe(c *Connection) {
	t.mu.Lock()
	t.subs[c] = struct{}{}
	t.mu.Unlock()
}

// Unsubscribe removes a connection from the broadcast set.
func (t *Table) Unsubscribe(c *Connection) {
	t.mu.Lock()
	delete(t.subs, c)
	t.mu.Unlock()
}

func (t *Table) subscribers() []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Connection, 0, len(t.subs))
	for c := range t.subs {
		out = append(out, c)
	}
	return out
}

// broadcast sends the same frame to every subscriber.
func (t *Table) broadcast(msg *Message) {
	for _, c := range t.subscribers() {
		_ = c.SendMessage(msg)
	}
}

// StateChanged fans a state transition out to the watchers: a discrete
// event naming what happened, then a fresh snapshot per subscriber. Hole
// cards are redacted per recipient, so each connection gets its own
// snapshot frame.
func (t *Table) StateChanged(reason string) {
	if ev := t.derivedEvent(reason); ev != nil {
		t.broadcast(ev)
	}
	for _, c := range t.subscribers() {
		_ = c.SendMessage(NewMessage(EventTableSnapshot, SnapshotData{
			Reason:   reason,
			Snapshot: t.loop.Snapshot(c.Player()),
		}))
	}
}

// derivedEvent maps a reducer's state-change reason to the discrete wire
// event clients animate from. Reasons without a public event (hole cards
// are private, rejections only concern the sender) return nil.
func (t *Table) derivedEvent(reason string) *Message {
	snap := t.loop.Snapshot("")
	switch reason {
	case "hand_start":
		t.metrics.HandsStarted.WithLabelValues(t.ID).Inc()
		return NewMessage(EventHandStart, HandStartData{
			HandNum:    snap.HandNum,
			Button:     snap.Button,
			Commitment: snap.Commitment,
		})
	case "blinds_posted":
		return NewMessage(EventBlindsPosted, BlindsPostedData{
			SmallBlind: snap.SmallBlind,
			BigBlind:   snap.BigBlind,
			Ante:       snap.Ante,
		})
	case "street_dealt":
		switch {
		case snap.Street == engine.StreetFlop && len(snap.Community) >= 3:
			return NewMessage(EventDealFlop, DealData{Cards: snap.Community[:3]})
		case snap.Street == engine.StreetTurn && len(snap.Community) >= 4:
			return NewMessage(EventDealTurn, DealData{Cards: snap.Community[3:4]})
		case snap.Street == engine.StreetRiver && len(snap.Community) >= 5:
			return NewMessage(EventDealRiver, DealData{Cards: snap.Community[4:5]})
		}
		return nil
	case "street_closed":
		return NewMessage(EventRoundEnd, RoundEndData{Street: string(snap.Street)})
	case "showdown":
		return NewMessage(EventShowdown, ShowdownData{RevealOrder: revealOrder(snap)})
	case "hand_end":
		return NewMessage(EventHandEnd, nil)
	case "action_applied":
		return NewMessage(EventActionApplied, nil)
	case "player_joined":
		// A mid-hand join holds the seat without a hand; those players
		// wait until the next deal.
		if snap.Phase != engine.PhaseWaiting {
			return NewMessage(EventPlayerWaiting, WaitingData{Seats: waitingSeats(snap)})
		}
		return NewMessage(EventPlayerJoined, nil)
	case "player_left":
		return NewMessage(EventPlayerLeft, nil)
	case "player_sat_out":
		return NewMessage(EventPlayerSatOut, nil)
	case "player_sat_in":
		return NewMessage(EventPlayerSatIn, nil)
	}
	return nil
}

// revealOrder lists the seats still in the hand in reveal order:
// clockwise starting one past the button, the same order the hand was
// dealt.
func revealOrder(snap engine.Snapshot) []int {
	var order []int
	for step := 1; step <= engine.NumSeats; step++ {
		i := (snap.Button + step) % engine.NumSeats
		if st := snap.Seats[i].Status; st == engine.SeatActive || st == engine.SeatAllIn {
			order = append(order, i)
		}
	}
	return order
}

// waitingSeats lists occupied seats that are not dealt into the running
// hand.
func waitingSeats(snap engine.Snapshot) []int {
	var seats []int
	for i := range snap.Seats {
		if snap.Seats[i].PlayerID != "" && snap.Seats[i].Status == engine.SeatEmpty {
			seats = append(seats, i)
		}
	}
	return seats
}

// CountdownStarted mirrors a countdown to clients. The deadline is
// advisory; the server acts on its own timer regardless of what the
// client renders.
func (t *Table) CountdownStarted(rec countdown.Record) {
	t.broadcast(NewMessage(EventCountdownStart, countdownData(rec)))
}

// ActionPrompt tells the table whose turn it is and what they may do.
func (t *Table) ActionPrompt(seat int, actions engine.AvailableActions, deadline time.Time) {
	t.broadcast(NewMessage(EventActionPrompt, ActionPromptData{
		Seat:     seat,
		Actions:  actions,
		Deadline: deadline.UnixMilli(),
	}))
}

// HandResult announces the payouts of a settled hand.
func (t *Table) HandResult(dists []engine.Distribution) {
	t.broadcast(NewMessage(EventWinners, WinnersData{Distributions: dists}))
}

// TableError surfaces a loop-level failure to the watchers.
func (t *Table) TableError(code, msg string) {
	t.logger.Error("table error", "code", code, "msg", msg)
	t.metrics.ErrorsTotal.WithLabelValues(code).Inc()
	t.broadcast(NewMessage(EventError, ErrorData{Code: code, Message: msg}))
}

// Info summarizes the table for LIST_TABLES.
func (t *Table) Info() TableInfo {
	tb := t.loop.Table()
	seated := 0
	for i := range tb.Seats {
		if tb.Seats[i].Occupied() {
			seated++
		}
	}
	return TableInfo{
		ID:         t.ID,
		Name:       t.Name,
		SmallBlind: tb.SmallBlind,
		BigBlind:   tb.BigBlind,
		Seated:     seated,
		MaxSeats:   engine.NumSeats,
	}
}

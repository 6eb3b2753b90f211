// Package loop runs one goroutine per table that drains that table's
// event queue strictly sequentially. It owns the authoritative table
// state, executes the reducer's side-effect descriptors, arms the action
// timer, schedules hand starts and persists the event log. Nothing else
// in the process touches a table's state directly.
package loop

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/feltd/feltd/internal/countdown"
	"github.com/feltd/feltd/internal/deck"
	"github.com/feltd/feltd/internal/engine"
	"github.com/feltd/feltd/internal/evaluator"
	"github.com/feltd/feltd/internal/eventlog"
	"github.com/feltd/feltd/internal/sitout"
)

// maxQueue is the soft bound on the internal event queue. Exceeding it
// means a reducer loop; the queue is drained and an error surfaced.
const maxQueue = 50

var (
	ErrQueueOverflow = fmt.Errorf("table event queue overflow")
	ErrRejected      = fmt.Errorf("event rejected")
	ErrStopped       = fmt.Errorf("table loop stopped")
)

// Config carries the table loop's timing knobs.
type Config struct {
	ActionTimeout      time.Duration
	GameStartCountdown time.Duration
	StreetDealDelay    time.Duration
	NewHandDelay       time.Duration
	MinPlayers         int
}

// DefaultConfig mirrors the documented environment defaults.
func DefaultConfig() Config {
	return Config{
		ActionTimeout:      15 * time.Second,
		GameStartCountdown: 10 * time.Second,
		StreetDealDelay:    3 * time.Second,
		NewHandDelay:       5 * time.Second,
		MinPlayers:         2,
	}
}

// Notifier receives the loop's outward-facing signals. The server
// implements it to broadcast snapshots and prompts; tests implement it to
// observe the loop.
type Notifier interface {
	StateChanged(reason string)
	CountdownStarted(rec countdown.Record)
	ActionPrompt(seat int, actions engine.AvailableActions, deadline time.Time)
	HandResult(dists []engine.Distribution)
	TableError(code, msg string)
}

// EvalFunc scores a 5-7 card hand; lower is better.
type EvalFunc func(cards []deck.Card) (evaluator.Score, error)

// Loop is the per-table event loop.
type Loop struct {
	cfg      Config
	clock    quartz.Clock
	logger   *log.Logger
	store    eventlog.Log
	notifier Notifier
	evaluate EvalFunc

	SitOut     *sitout.Controller
	Countdowns *countdown.Manager

	state  atomic.Pointer[engine.Table]
	inputs chan func()
	done   chan struct{}
	cancel context.CancelFunc

	// Owned by the loop goroutine.
	actionTimer   *quartz.Timer
	actionGen     uint64
	actionCountID string
	startPending  bool
	startCountID  string
}

// New creates a loop around an initial table state. Call Start to run it.
func New(table *engine.Table, cfg Config, clock quartz.Clock, store eventlog.Log, notifier Notifier, logger *log.Logger) *Loop {
	l := &Loop{
		cfg:      cfg,
		clock:    clock,
		logger:   logger.With("table", table.ID),
		store:    store,
		notifier: notifier,
		evaluate: evaluator.Evaluate,
		inputs:   make(chan func(), 64),
		done:     make(chan struct{}),
	}
	l.state.Store(table)
	l.Countdowns = countdown.NewManager(clock)
	l.SitOut = sitout.NewController(clock, func(playerID string) {
		l.enqueue(func() {
			l.logger.Info("auto-leave after sit-out window", "player", playerID)
			l.process(engine.PlayerLeave{PlayerID: playerID})
		})
	})
	return l
}

// Start runs the loop until ctx is cancelled or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
}

// Stop shuts the loop down and tears down its timers and countdowns.
func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	<-l.done
}

// Table returns the current state. The returned value is immutable:
// reducers replace the pointer rather than mutate in place.
func (l *Loop) Table() *engine.Table {
	return l.state.Load()
}

// Snapshot renders the table for a recipient, joining in the sit-out set.
func (l *Loop) Snapshot(viewerID string) engine.Snapshot {
	return l.Table().SnapshotFor(viewerID, l.SitOut.Set())
}

// Do dispatches an event and waits for its validation result. A nil
// error means the event changed state (or was an idempotent managerial
// event).
func (l *Loop) Do(ctx context.Context, ev engine.Event) error {
	reply := make(chan error, 1)
	fn := func() { reply <- l.process(ev) }
	select {
	case l.inputs <- fn:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Dispatch enqueues an event without waiting for the outcome.
func (l *Loop) Dispatch(ev engine.Event) {
	l.enqueue(func() { l.process(ev) })
}

func (l *Loop) enqueue(fn func()) bool {
	select {
	case l.inputs <- fn:
		return true
	case <-l.done:
		return false
	}
}

func (l *Loop) run(ctx context.Context) {
	defer func() {
		l.stopActionTimer()
		l.Countdowns.Close()
		l.SitOut.Close()
		close(l.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-l.inputs:
			fn()
		}
	}
}

// process pumps an event and every immediate follow-up dispatch through
// the reducer. It returns the validation verdict of the triggering event.
func (l *Loop) process(ev engine.Event) error {
	queue := []engine.Event{ev}
	var verdict error
	first := true

	for len(queue) > 0 {
		if len(queue) > maxQueue {
			l.logger.Error("event queue overflow, draining", "depth", len(queue))
			l.notifier.TableError("QUEUE_OVERFLOW", "table event queue overflow")
			return ErrQueueOverflow
		}
		head := queue[0]
		queue = queue[1:]

		// StartHand carries the sit-out set so the reducer stays pure
		// and replays see the same eligibility.
		if sh, ok := head.(engine.StartHand); ok && sh.SittingOut == nil {
			list := l.SitOut.List()
			sort.Strings(list)
			sh.SittingOut = list
			head = sh
		}

		cur := l.state.Load()
		next, effects := engine.Reduce(cur, head)
		changed := next != cur

		if changed {
			if err := next.CheckInvariants(); err != nil {
				l.logger.Error("invariant violation, force-ending hand",
					"event", head.Kind(), "err", err)
				l.notifier.TableError("INVARIANT_VIOLATION", err.Error())
				// Discard the bad state; the only recovery path is a
				// fresh hand.
				queue = append(queue[:0], engine.HandEnd{})
				continue
			}
			l.state.Store(next)
			if err := l.store.Append(context.Background(), next.ID, head); err != nil {
				l.logger.Error("event log append failed", "event", head.Kind(), "err", err)
			}
		} else if first && !managerial(head) {
			verdict = ErrRejected
		}
		first = false

		l.syncControllers(cur, head, changed, &queue)

		for _, ef := range effects {
			l.execute(ef, &queue)
		}
	}
	return verdict
}

// managerial events are idempotent: a no-op application is not an error.
func managerial(ev engine.Event) bool {
	switch ev.(type) {
	case engine.PlayerSitOut, engine.PlayerSitIn, engine.TimeoutAutoFold:
		return true
	}
	return false
}

// syncControllers keeps the side controllers — the sit-out set and the
// countdown records — in step with the events flowing through the loop.
func (l *Loop) syncControllers(prev *engine.Table, ev engine.Event, changed bool, queue *[]engine.Event) {
	switch e := ev.(type) {
	case engine.EnterStreet:
		// The deal countdown is spent once the street arrives.
		if changed {
			l.Countdowns.CancelType(countdown.TypeStreetDeal)
		}
	case engine.HandEnd:
		if changed {
			l.Countdowns.CancelType(countdown.TypeNewHand)
		}
	case engine.Action:
		if changed {
			l.SitOut.HandleVoluntaryAction(prev.Seats[e.Seat].PlayerID)
		}
	case engine.TimeoutAutoFold:
		if !changed {
			return
		}
		playerID := prev.Seats[e.Seat].PlayerID
		l.logger.Info("action timeout, auto-folding", "player", playerID, "seat", e.Seat)
		if l.SitOut.HandleTimeout(playerID) {
			*queue = append(*queue, engine.PlayerSitOut{PlayerID: playerID, Reason: sitout.ReasonTimeout})
		}
	case engine.PlayerSitOut:
		if prev.SeatOf(e.PlayerID) >= 0 {
			l.SitOut.MarkSitOut(e.PlayerID, e.Reason)
		}
	case engine.PlayerSitIn:
		if prev.SeatOf(e.PlayerID) >= 0 {
			l.SitOut.MarkSitIn(e.PlayerID)
		}
	case engine.PlayerLeave:
		if changed {
			l.SitOut.HandleLeave(e.PlayerID)
		}
	}
}

func (l *Loop) execute(ef engine.Effect, queue *[]engine.Event) {
	switch e := ef.(type) {
	case engine.StartTimer:
		l.armActionTimer(e)

	case engine.StopTimer, engine.ClearTimers:
		l.stopActionTimer()

	case engine.EmitStateChange:
		l.notifier.StateChanged(e.Reason)

	case engine.DispatchEvent:
		l.dispatchEffect(e, queue)

	case engine.CheckGameStart:
		if e.DelayMillis > 0 {
			l.clock.AfterFunc(time.Duration(e.DelayMillis)*time.Millisecond, func() {
				l.enqueue(l.checkGameStart)
			})
		} else {
			l.checkGameStart()
		}

	case engine.EvaluateHands:
		*queue = append(*queue, engine.Payout{Distributions: l.settle()})
	}
}

func (l *Loop) dispatchEffect(e engine.DispatchEvent, queue *[]engine.Event) {
	delay := time.Duration(e.DelayMillis) * time.Millisecond

	switch ev := e.Event.(type) {
	case engine.EnterStreet:
		if ev.Street != engine.StreetPreflop && l.cfg.StreetDealDelay > 0 {
			delay = l.cfg.StreetDealDelay
			rec := l.Countdowns.Start(countdown.TypeStreetDeal, delay,
				map[string]string{"street": string(ev.Street)})
			l.notifier.CountdownStarted(rec)
		}
	case engine.HandEnd:
		if e.DelayMillis > 0 {
			delay = l.cfg.NewHandDelay
			rec := l.Countdowns.Start(countdown.TypeNewHand, delay, nil)
			l.notifier.CountdownStarted(rec)
		}
	}

	if delay <= 0 {
		*queue = append(*queue, e.Event)
		return
	}
	ev := e.Event
	l.clock.AfterFunc(delay, func() {
		l.enqueue(func() { l.process(ev) })
	})
}

// armActionTimer starts the server-authoritative action timer. Each arm
// bumps a generation token; a stale expiry compares its token and bails,
// so a timeout can never fold a later actor.
func (l *Loop) armActionTimer(e engine.StartTimer) {
	l.stopActionTimer()

	d := l.cfg.ActionTimeout
	if e.Millis > 0 {
		d = time.Duration(e.Millis) * time.Millisecond
	}

	l.actionGen++
	seat := e.Seat
	gen := l.actionGen

	rec := l.Countdowns.Start(countdown.TypeAction, d, map[string]string{"playerId": e.PlayerID})
	l.actionCountID = rec.ID
	l.notifier.CountdownStarted(rec)
	l.notifier.ActionPrompt(e.Seat, l.Table().Available(e.Seat), rec.Deadline())

	l.actionTimer = l.clock.AfterFunc(d, func() {
		l.enqueue(func() {
			if l.actionGen != gen {
				return
			}
			l.process(engine.TimeoutAutoFold{Seat: seat})
		})
	})
}

func (l *Loop) stopActionTimer() {
	if l.actionTimer != nil {
		l.actionTimer.Stop()
		l.actionTimer = nil
	}
	l.actionGen++
	if l.actionCountID != "" {
		l.Countdowns.Cancel(l.actionCountID)
		l.actionCountID = ""
	}
}

// checkGameStart schedules a hand start countdown when the table is
// waiting and enough funded, sat-in players are seated.
func (l *Loop) checkGameStart() {
	if l.startPending {
		return
	}
	cur := l.state.Load()
	if cur.Phase != engine.PhaseWaiting {
		return
	}
	if l.eligibleCount(cur) < l.cfg.MinPlayers {
		return
	}

	rec := l.Countdowns.Start(countdown.TypeGameStart, l.cfg.GameStartCountdown, nil)
	l.startPending = true
	l.startCountID = rec.ID
	l.notifier.CountdownStarted(rec)
	l.logger.Info("hand start countdown", "in", l.cfg.GameStartCountdown)

	l.clock.AfterFunc(l.cfg.GameStartCountdown, func() {
		l.enqueue(l.fireStartHand)
	})
}

func (l *Loop) fireStartHand() {
	l.startPending = false
	if err := l.Countdowns.ValidateElapsed(l.startCountID); err != nil {
		l.logger.Warn("hand start fired early", "err", err)
		return
	}
	l.Countdowns.Cancel(l.startCountID)
	l.startCountID = ""

	cur := l.state.Load()
	if cur.Phase != engine.PhaseWaiting || l.eligibleCount(cur) < l.cfg.MinPlayers {
		return
	}

	sittingOut := l.SitOut.List()
	sort.Strings(sittingOut)
	l.process(engine.StartHand{
		HandNum:    cur.HandNum + 1,
		At:         l.clock.Now().UnixMilli(),
		Suffix:     seedSuffix(),
		SittingOut: sittingOut,
	})
}

func (l *Loop) eligibleCount(t *engine.Table) int {
	n := 0
	for i := range t.Seats {
		s := &t.Seats[i]
		if s.Occupied() && s.Chips+s.PendingRebuy > 0 && !l.SitOut.IsSittingOut(s.PlayerID) {
			n++
		}
	}
	return n
}

// settle turns the current pots into payout distributions: each pot goes
// to its best hand(s), sole-claimant layers above the last call return as
// uncalled bets, and odd chips go to the lowest winning seat first.
func (l *Loop) settle() []engine.Distribution {
	cur := l.state.Load()

	// matched is the highest fully-called commitment level; sole-claimant
	// layers above it are the refund, not a win.
	refundSeat, refund := cur.UncalledRefund()
	matched := 0
	if refundSeat >= 0 {
		matched = cur.Seats[refundSeat].Committed - refund
	}

	scores := make(map[string]evaluator.Score)
	seatOf := make(map[string]int)
	for i := range cur.Seats {
		s := &cur.Seats[i]
		if !s.InHand() || !s.Occupied() {
			continue
		}
		seatOf[s.PlayerID] = i
		if len(s.Hole)+len(cur.Community) >= 5 {
			score, err := l.evaluate(append(append([]deck.Card(nil), s.Hole...), cur.Community...))
			if err != nil {
				l.logger.Error("hand evaluation failed", "seat", i, "err", err)
				continue
			}
			scores[s.PlayerID] = score
		}
	}

	var dists []engine.Distribution
	for _, pot := range cur.Pots {
		if len(pot.Eligible) == 1 {
			id := pot.Eligible[0]
			seat := seatOf[id]
			reason := "win"
			if seat == refundSeat && pot.Cap > matched {
				reason = "uncalled"
			}
			dists = append(dists, engine.Distribution{Seat: seat, PlayerID: id, Amount: pot.Amount, Reason: reason})
			continue
		}

		var winners []string
		var best evaluator.Score
		for _, id := range pot.Eligible {
			score, ok := scores[id]
			if !ok {
				continue
			}
			switch {
			case len(winners) == 0 || score.Beats(best):
				winners = []string{id}
				best = score
			case score == best:
				winners = append(winners, id)
			}
		}
		if len(winners) == 0 {
			// Nothing scored (evaluator failure): split among eligible.
			winners = append(winners, pot.Eligible...)
		}
		sort.Slice(winners, func(i, j int) bool { return seatOf[winners[i]] < seatOf[winners[j]] })

		share := pot.Amount / len(winners)
		rem := pot.Amount % len(winners)
		for i, id := range winners {
			amount := share
			if i < rem {
				amount++
			}
			if amount == 0 {
				continue
			}
			dists = append(dists, engine.Distribution{Seat: seatOf[id], PlayerID: id, Amount: amount, Reason: "win"})
		}
	}

	l.notifier.HandResult(dists)
	return dists
}

// seedSuffix is the random tail of a hand's deck seed. It rides in the
// StartHand event so replays shuffle identically.
func seedSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}

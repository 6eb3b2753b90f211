package engine

// Effect is a side-effect descriptor returned by a reducer. Reducers never
// touch timers, clocks or observers directly; they describe the effect and
// the table loop executes it after the state transition commits.
type Effect interface {
	effect()
}

// StartTimer arms the action timer for a seat. Millis 0 means the loop's
// configured default.
type StartTimer struct {
	PlayerID string
	Seat     int
	Millis   int64
}

// StopTimer cancels the action timer for a player. An empty PlayerID
// cancels whatever timer is armed.
type StopTimer struct {
	PlayerID string
}

// ClearTimers cancels every timer owned by the table.
type ClearTimers struct{}

// DispatchEvent re-enqueues an event, optionally after DelayMillis.
type DispatchEvent struct {
	Event       Event
	DelayMillis int64
}

// EmitStateChange notifies external observers that the table changed.
type EmitStateChange struct {
	Reason string
}

// CheckGameStart asks the loop to re-evaluate whether a new hand can be
// scheduled, optionally after DelayMillis.
type CheckGameStart struct {
	DelayMillis int64
}

// EvaluateHands asks the loop to score the remaining hands and fold the
// results into a Payout event.
type EvaluateHands struct{}

func (StartTimer) effect()      {}
func (StopTimer) effect()       {}
func (ClearTimers) effect()     {}
func (DispatchEvent) effect()   {}
func (EmitStateChange) effect() {}
func (CheckGameStart) effect()  {}
func (EvaluateHands) effect()   {}

// Package sitout tracks which players are sitting out, counts their
// consecutive action timeouts, and runs the auto-leave fuse. It is the
// single source of truth for the sitting-out flag: seat status in the
// engine never encodes it, snapshots join it in from here.
package sitout

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

const (
	// MaxTimeouts is the number of consecutive action timeouts before a
	// player is forced to sit out.
	MaxTimeouts = 2
	// AutoLeaveAfter is how long a sitting-out player keeps the seat.
	AutoLeaveAfter = 5 * time.Minute
)

// Reasons recorded with a sit-out transition.
const (
	ReasonVoluntary = "voluntary"
	ReasonTimeout   = "timeout"
)

// Controller holds the sit-out state for one table. It is owned by that
// table's loop; the auto-leave callback fires on a timer goroutine and
// must hand off to the loop rather than mutate table state.
type Controller struct {
	clock       quartz.Clock
	onAutoLeave func(playerID string)

	mu           sync.Mutex
	sittingOut   map[string]time.Time
	timeoutCount map[string]int
	timers       map[string]*quartz.Timer
	closed       bool
}

// NewController creates a controller. onAutoLeave is invoked when a
// player's auto-leave fuse burns down; it may be nil.
func NewController(clock quartz.Clock, onAutoLeave func(playerID string)) *Controller {
	return &Controller{
		clock:        clock,
		onAutoLeave:  onAutoLeave,
		sittingOut:   make(map[string]time.Time),
		timeoutCount: make(map[string]int),
		timers:       make(map[string]*quartz.Timer),
	}
}

// MarkSitOut records the player as sitting out and starts the auto-leave
// fuse. A voluntary sit-out resets the timeout counter. Returns false if
// the player was already sitting out.
func (c *Controller) MarkSitOut(playerID, reason string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	if _, out := c.sittingOut[playerID]; out {
		return false
	}
	c.sittingOut[playerID] = c.clock.Now()
	if reason == ReasonVoluntary {
		c.timeoutCount[playerID] = 0
	}
	c.armAutoLeaveLocked(playerID)
	return true
}

// MarkSitIn removes the player from the sitting-out set, resets the
// timeout counter and cancels the auto-leave fuse. Returns false if the
// player was not sitting out.
func (c *Controller) MarkSitIn(playerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, out := c.sittingOut[playerID]; !out {
		return false
	}
	delete(c.sittingOut, playerID)
	c.timeoutCount[playerID] = 0
	c.stopTimerLocked(playerID)
	return true
}

// HandleTimeout counts an action timeout. Once the consecutive count
// reaches MaxTimeouts the player is sat out with reason "timeout" and the
// return value is true.
func (c *Controller) HandleTimeout(playerID string) bool {
	c.mu.Lock()
	c.timeoutCount[playerID]++
	count := c.timeoutCount[playerID]
	c.mu.Unlock()

	if count < MaxTimeouts {
		return false
	}
	return c.MarkSitOut(playerID, ReasonTimeout)
}

// HandleVoluntaryAction resets the consecutive timeout counter: the
// sit-out trigger only fires on timeouts with no real action in between.
func (c *Controller) HandleVoluntaryAction(playerID string) {
	c.mu.Lock()
	c.timeoutCount[playerID] = 0
	c.mu.Unlock()
}

// HandleLeave drops every trace of the player.
func (c *Controller) HandleLeave(playerID string) {
	c.mu.Lock()
	delete(c.sittingOut, playerID)
	delete(c.timeoutCount, playerID)
	c.stopTimerLocked(playerID)
	c.mu.Unlock()
}

// IsSittingOut reports whether the player is sitting out.
func (c *Controller) IsSittingOut(playerID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, out := c.sittingOut[playerID]
	return out
}

// Set returns the sitting-out set for snapshot joins.
func (c *Controller) Set() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.sittingOut))
	for id := range c.sittingOut {
		out[id] = true
	}
	return out
}

// List returns the sitting-out player ids.
func (c *Controller) List() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sittingOut))
	for id := range c.sittingOut {
		out = append(out, id)
	}
	return out
}

// TimeoutCount returns the player's consecutive timeout count.
func (c *Controller) TimeoutCount(playerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeoutCount[playerID]
}

// Close cancels every fuse; the controller tears down with its table.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id := range c.timers {
		c.stopTimerLocked(id)
	}
}

func (c *Controller) armAutoLeaveLocked(playerID string) {
	c.stopTimerLocked(playerID)
	c.timers[playerID] = c.clock.AfterFunc(AutoLeaveAfter, func() {
		c.mu.Lock()
		_, stillOut := c.sittingOut[playerID]
		closed := c.closed
		c.mu.Unlock()
		if !stillOut || closed || c.onAutoLeave == nil {
			return
		}
		c.onAutoLeave(playerID)
	})
}

func (c *Controller) stopTimerLocked(playerID string) {
	if timer, ok := c.timers[playerID]; ok {
		timer.Stop()
		delete(c.timers, playerID)
	}
}

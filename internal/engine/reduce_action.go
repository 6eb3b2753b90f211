package engine

import "fmt"

func reduceAction(t *Table, e Action) (*Table, []Effect) {
	if err := t.ValidateAction(e); err != nil {
		return t, []Effect{EmitStateChange{Reason: fmt.Sprintf("action_rejected: %v", err)}}
	}

	n := t.Clone()
	s := &n.Seats[e.Seat]
	toCall := n.ToCall(e.Seat)
	prevBet := n.CurrentBet

	switch e.Type {
	case ActionFold:
		s.Status = SeatFolded
		s.LastAction = "fold"

	case ActionCheck:
		s.LastAction = "check"

	case ActionCall:
		paid := n.commit(e.Seat, toCall)
		s.LastAction = fmt.Sprintf("call %d", paid)

	case ActionBet:
		n.commit(e.Seat, e.Amount)
		n.LastAggressor = e.Seat
		n.LastRaiseSize = s.StreetCommitted
		s.LastAction = fmt.Sprintf("bet %d", s.StreetCommitted)

	case ActionRaise:
		// commit clamps to the stack, so an oversized raise lands as an
		// implicit all-in and its real increment decides reopening below.
		n.commit(e.Seat, toCall+e.Amount)
		inc := s.StreetCommitted - prevBet
		if inc >= n.LastRaiseSize {
			n.LastAggressor = e.Seat
			n.LastRaiseSize = inc
			n.RaiseClosed = false
		} else {
			n.RaiseClosed = true
		}
		if s.Status == SeatAllIn {
			s.LastAction = fmt.Sprintf("all-in %d", s.StreetCommitted)
		} else {
			s.LastAction = fmt.Sprintf("raise to %d", s.StreetCommitted)
		}

	case ActionAllIn:
		n.commit(e.Seat, s.Chips)
		inc := s.StreetCommitted - prevBet
		if inc >= n.LastRaiseSize {
			n.LastAggressor = e.Seat
			n.LastRaiseSize = inc
			n.RaiseClosed = false
		} else {
			// Short all-in: the bet may rise but the action does not
			// reopen. LastAggressor and LastRaiseSize keep their
			// pre-all-in values and raising is shut for the street.
			n.RaiseClosed = true
		}
		s.LastAction = fmt.Sprintf("all-in %d", s.StreetCommitted)
	}

	n.syncCurrentBet()
	n.ActedThisRound[e.Seat] = true
	if n.Phase == PhasePreflop && e.Seat == n.BBSeat {
		n.BBHasActed = true
	}

	effects := []Effect{StopTimer{PlayerID: s.PlayerID}}
	effects = append(effects, n.advance(e.Seat)...)
	effects = append(effects, EmitStateChange{Reason: "action_applied"})
	return n, effects
}

// advance moves the turn after a seat resolved its action (or left the
// hand) and returns the follow-up dispatches when the street closed.
func (t *Table) advance(from int) []Effect {
	next := t.nextActionableFrom(from)
	if !t.roundComplete(next) {
		t.Actor = next
		return []Effect{StartTimer{PlayerID: t.Seats[next].PlayerID, Seat: next}}
	}

	t.Actor = -1
	effects := []Effect{DispatchEvent{Event: CloseStreet{}}}
	if t.InHandCount() <= 1 || t.Street == StreetRiver {
		effects = append(effects, DispatchEvent{Event: Showdown{}})
	} else {
		effects = append(effects, DispatchEvent{Event: EnterStreet{Street: t.Street.Next()}})
	}
	return effects
}

// reduceTimeoutAutoFold folds the seat on timer expiry. A timeout that
// lands after the seat already acted or the street moved on is swallowed.
func reduceTimeoutAutoFold(t *Table, e TimeoutAutoFold) (*Table, []Effect) {
	if !t.InBettingPhase() || t.Actor != e.Seat {
		return t, nil
	}
	next, effects := reduceAction(t, Action{Seat: e.Seat, Type: ActionFold})
	if next != t {
		next.Seats[e.Seat].LastAction = "timeout fold"
	}
	return next, effects
}

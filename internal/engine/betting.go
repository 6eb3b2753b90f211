package engine

import "fmt"

// Validation errors surfaced to the command boundary. The loop maps these
// to client error codes; the reducer maps them to an unchanged table.
var (
	ErrNotActor      = fmt.Errorf("not this seat's turn")
	ErrNotBetting    = fmt.Errorf("no betting round in progress")
	ErrSeatNotActive = fmt.Errorf("seat cannot act")
	ErrBadAmount     = fmt.Errorf("invalid amount")
	ErrCheckIllegal  = fmt.Errorf("cannot check facing a bet")
	ErrCallIllegal   = fmt.Errorf("nothing to call")
	ErrBetIllegal    = fmt.Errorf("cannot bet facing a bet")
	ErrRaiseIllegal  = fmt.Errorf("cannot raise")
	ErrRaiseTooSmall = fmt.Errorf("raise below minimum")
	ErrBetTooSmall   = fmt.Errorf("bet below minimum")
)

// ValidateAction checks an action against the table without mutating it.
// For BET the amount is the total bet; for RAISE it is the raise increment
// over the current bet.
func (t *Table) ValidateAction(a Action) error {
	if !t.InBettingPhase() {
		return ErrNotBetting
	}
	if a.Seat < 0 || a.Seat >= NumSeats || t.Seats[a.Seat].Status != SeatActive {
		return ErrSeatNotActive
	}
	if t.Actor != a.Seat {
		return ErrNotActor
	}
	if a.Amount < 0 {
		return ErrBadAmount
	}

	s := &t.Seats[a.Seat]
	toCall := t.ToCall(a.Seat)

	switch a.Type {
	case ActionFold:
		return nil

	case ActionCheck:
		if toCall == 0 || t.bbOptionOpen(a.Seat) {
			return nil
		}
		return ErrCheckIllegal

	case ActionCall:
		if toCall == 0 {
			return ErrCallIllegal
		}
		return nil

	case ActionBet:
		if t.CurrentBet != 0 {
			return ErrBetIllegal
		}
		if a.Amount > s.Chips {
			return ErrBadAmount
		}
		if a.Amount < t.BigBlind && a.Amount != s.Chips {
			return ErrBetTooSmall
		}
		if a.Amount == 0 {
			return ErrBadAmount
		}
		return nil

	case ActionRaise:
		if t.CurrentBet == 0 || t.RaiseClosed {
			return ErrRaiseIllegal
		}
		if a.Amount == 0 {
			return ErrBadAmount
		}
		// A raise the stack cannot cover commits the whole stack instead
		// of failing, so the minimum only binds seats with chips to spare.
		if a.Amount < t.LastRaiseSize && toCall+a.Amount < s.Chips {
			return ErrRaiseTooSmall
		}
		return nil

	case ActionAllIn:
		if s.Chips == 0 {
			return ErrBadAmount
		}
		return nil
	}
	return fmt.Errorf("unknown action type %q", a.Type)
}

// AvailableActions returns the legal action set for a seat plus the call
// and minimum-raise amounts, for prompting clients.
type AvailableActions struct {
	Actions  []ActionType `json:"actions"`
	ToCall   int          `json:"toCall"`
	MinRaise int          `json:"minRaise"`
}

// Available computes the action set for the seat. Meaningful only while
// the seat is the actor; callers use it to build action prompts.
func (t *Table) Available(seat int) AvailableActions {
	out := AvailableActions{}
	if seat < 0 || seat >= NumSeats || !t.InBettingPhase() {
		return out
	}
	s := &t.Seats[seat]
	if s.Status != SeatActive {
		return out
	}
	toCall := t.ToCall(seat)
	out.ToCall = toCall
	out.MinRaise = t.LastRaiseSize

	out.Actions = append(out.Actions, ActionFold)
	if toCall == 0 || t.bbOptionOpen(seat) {
		out.Actions = append(out.Actions, ActionCheck)
	}
	if toCall > 0 && s.Chips > 0 {
		out.Actions = append(out.Actions, ActionCall)
	}
	if t.CurrentBet == 0 && s.Chips >= t.BigBlind {
		out.Actions = append(out.Actions, ActionBet)
	}
	if t.CurrentBet > 0 && !t.RaiseClosed && s.Chips > toCall+t.LastRaiseSize {
		out.Actions = append(out.Actions, ActionRaise)
	}
	if s.Chips > 0 {
		out.Actions = append(out.Actions, ActionAllIn)
	}
	return out
}

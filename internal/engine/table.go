// Package engine implements the deterministic per-table hold'em core: the
// table state model, the event set, the pure reducers, betting rules, ring
// order and pot construction. Reducers never touch clocks, sockets or
// logs; everything with a side effect is expressed as an Effect descriptor
// executed by the table loop.
package engine

import "github.com/feltd/feltd/internal/deck"

// NumSeats is the fixed ring size of every table.
const NumSeats = 9

// Phase is the hand-level state machine position.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseDeal     Phase = "deal"
	PhasePreflop  Phase = "preflop"
	PhaseFlop     Phase = "flop"
	PhaseTurn     Phase = "turn"
	PhaseRiver    Phase = "river"
	PhaseShowdown Phase = "showdown"
	PhasePayout   Phase = "payout"
	PhaseHandEnd  Phase = "handEnd"
)

// Street is a betting round.
type Street string

const (
	StreetNone    Street = ""
	StreetPreflop Street = "preflop"
	StreetFlop    Street = "flop"
	StreetTurn    Street = "turn"
	StreetRiver   Street = "river"
)

// Next returns the street after s, or StreetNone after the river.
func (s Street) Next() Street {
	switch s {
	case StreetPreflop:
		return StreetFlop
	case StreetFlop:
		return StreetTurn
	case StreetTurn:
		return StreetRiver
	default:
		return StreetNone
	}
}

// BoardLen returns the community card count once s has been dealt.
func (s Street) BoardLen() int {
	switch s {
	case StreetFlop:
		return 3
	case StreetTurn:
		return 4
	case StreetRiver:
		return 5
	default:
		return 0
	}
}

// Phase returns the phase corresponding to the street.
func (s Street) Phase() Phase {
	switch s {
	case StreetPreflop:
		return PhasePreflop
	case StreetFlop:
		return PhaseFlop
	case StreetTurn:
		return PhaseTurn
	case StreetRiver:
		return PhaseRiver
	default:
		return PhaseWaiting
	}
}

// SeatStatus is the per-hand state of one seat. Sitting-out is NOT a seat
// status: it lives in the sit-out controller and is joined in at snapshot
// time.
type SeatStatus string

const (
	SeatEmpty  SeatStatus = "empty"
	SeatActive SeatStatus = "active"
	SeatFolded SeatStatus = "folded"
	SeatAllIn  SeatStatus = "allin"
)

// Seat is one of the nine slots in the ring. A seat with a PlayerID and
// status SeatEmpty holds a player waiting for the next hand.
type Seat struct {
	ID              int
	PlayerID        string
	Nickname        string
	Chips           int
	Committed       int
	StreetCommitted int
	Status          SeatStatus
	Hole            []deck.Card
	LastAction      string
	PendingRebuy    int
}

// Occupied reports whether a player holds the seat.
func (s *Seat) Occupied() bool {
	return s.PlayerID != ""
}

// InHand reports whether the seat is contesting the current hand.
func (s *Seat) InHand() bool {
	return s.Status == SeatActive || s.Status == SeatAllIn
}

// Pot is a main or side pot. Cap is the commitment level that cut the
// pot; 0 marks a pot built before any layering (main pot with no cap).
type Pot struct {
	Amount   int
	Eligible []string
	Cap      int
}

// Table is the complete state of one table. It is exclusively owned by a
// single table loop; reducers receive it by pointer to a private clone and
// return the clone.
type Table struct {
	ID        string
	HandNum   int64
	StartedAt int64 // unix millis of the current hand's StartHand

	Seats  [NumSeats]Seat
	Button int

	SmallBlind int
	BigBlind   int
	Ante       int
	BuyInMin   int
	BuyInMax   int

	Phase  Phase
	Street Street

	CurrentBet    int
	LastRaiseSize int
	LastAggressor int // seat index, -1 when unset
	Actor         int // seat index, -1 when unset

	// RaiseClosed is set by a short all-in: the bet rose without a full
	// raise, so no further raises are accepted until the street closes
	// or a full raise lands.
	RaiseClosed bool

	Community []deck.Card
	BurnFlop  []deck.Card
	BurnTurn  []deck.Card
	BurnRiver []deck.Card

	Deck           []deck.Card
	DeckIndex      int
	DeckSeed       string
	DeckCommitment string

	Pots []Pot

	BBSeat     int // seat index, -1 when unset
	BBHasActed bool

	ActedThisRound  [NumSeats]bool
	RoundStartActor int // seat index, -1 when unset
}

// NewTable creates an empty nine-seat table with the given stakes.
func NewTable(id string, smallBlind, bigBlind, ante, buyInMin, buyInMax int) *Table {
	t := &Table{
		ID:              id,
		SmallBlind:      smallBlind,
		BigBlind:        bigBlind,
		Ante:            ante,
		BuyInMin:        buyInMin,
		BuyInMax:        buyInMax,
		Phase:           PhaseWaiting,
		LastAggressor:   -1,
		Actor:           -1,
		BBSeat:          -1,
		RoundStartActor: -1,
	}
	for i := range t.Seats {
		t.Seats[i] = Seat{ID: i, Status: SeatEmpty}
	}
	return t
}

// Clone deep-copies the table so a reducer can mutate freely.
func (t *Table) Clone() *Table {
	c := *t
	for i := range c.Seats {
		c.Seats[i].Hole = append([]deck.Card(nil), t.Seats[i].Hole...)
	}
	c.Community = append([]deck.Card(nil), t.Community...)
	c.BurnFlop = append([]deck.Card(nil), t.BurnFlop...)
	c.BurnTurn = append([]deck.Card(nil), t.BurnTurn...)
	c.BurnRiver = append([]deck.Card(nil), t.BurnRiver...)
	c.Deck = append([]deck.Card(nil), t.Deck...)
	c.Pots = make([]Pot, len(t.Pots))
	for i, p := range t.Pots {
		c.Pots[i] = Pot{Amount: p.Amount, Cap: p.Cap, Eligible: append([]string(nil), p.Eligible...)}
	}
	return &c
}

// SeatOf returns the seat index held by a player, or -1.
func (t *Table) SeatOf(playerID string) int {
	if playerID == "" {
		return -1
	}
	for i := range t.Seats {
		if t.Seats[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// InBettingPhase reports whether actions are currently legal.
func (t *Table) InBettingPhase() bool {
	switch t.Phase {
	case PhasePreflop, PhaseFlop, PhaseTurn, PhaseRiver:
		return true
	}
	return false
}

// InHandCount counts seats contesting the hand.
func (t *Table) InHandCount() int {
	n := 0
	for i := range t.Seats {
		if t.Seats[i].InHand() {
			n++
		}
	}
	return n
}

// ToCall returns the amount the seat must add to match the current bet.
func (t *Table) ToCall(seat int) int {
	d := t.CurrentBet - t.Seats[seat].StreetCommitted
	if d < 0 {
		return 0
	}
	return d
}

// PotTotal sums all pots.
func (t *Table) PotTotal() int {
	total := 0
	for _, p := range t.Pots {
		total += p.Amount
	}
	return total
}

// commit moves n chips (clamped to the stack) from behind into the seat's
// street and hand commitments, flipping the seat to all-in when it empties
// the stack. It returns the amount actually moved.
func (t *Table) commit(seat, n int) int {
	s := &t.Seats[seat]
	if n > s.Chips {
		n = s.Chips
	}
	if n < 0 {
		n = 0
	}
	s.Chips -= n
	s.Committed += n
	s.StreetCommitted += n
	if s.Chips == 0 && s.Status == SeatActive {
		s.Status = SeatAllIn
	}
	return n
}

// syncCurrentBet recomputes CurrentBet as the max street commitment among
// in-hand seats.
func (t *Table) syncCurrentBet() {
	max := 0
	for i := range t.Seats {
		if t.Seats[i].InHand() && t.Seats[i].StreetCommitted > max {
			max = t.Seats[i].StreetCommitted
		}
	}
	t.CurrentBet = max
}

// resetHandState clears every hand-scoped field, leaving seating, stakes
// and the button in place.
func (t *Table) resetHandState() {
	t.Phase = PhaseWaiting
	t.Street = StreetNone
	t.CurrentBet = 0
	t.LastRaiseSize = 0
	t.LastAggressor = -1
	t.Actor = -1
	t.RaiseClosed = false
	t.Community = nil
	t.BurnFlop = nil
	t.BurnTurn = nil
	t.BurnRiver = nil
	t.Deck = nil
	t.DeckIndex = 0
	t.DeckSeed = ""
	t.DeckCommitment = ""
	t.Pots = nil
	t.BBSeat = -1
	t.BBHasActed = false
	t.ActedThisRound = [NumSeats]bool{}
	t.RoundStartActor = -1
	for i := range t.Seats {
		s := &t.Seats[i]
		s.Committed = 0
		s.StreetCommitted = 0
		s.Hole = nil
		s.LastAction = ""
		s.Status = SeatEmpty
	}
}

package engine

import (
	"fmt"

	"github.com/feltd/feltd/internal/deck"
)

// CheckInvariants verifies the structural invariants that must hold after
// every reducer application. The loop calls it post-reduce; a violation
// force-ends the hand.
func (t *Table) CheckInvariants() error {
	maxInHand, maxAny := 0, 0
	for i := range t.Seats {
		s := &t.Seats[i]
		if s.Chips < 0 {
			return fmt.Errorf("seat %d: negative chips %d", i, s.Chips)
		}
		if s.StreetCommitted < 0 || s.Committed < s.StreetCommitted {
			return fmt.Errorf("seat %d: commitments out of order (committed=%d street=%d)",
				i, s.Committed, s.StreetCommitted)
		}
		if s.StreetCommitted > maxAny {
			maxAny = s.StreetCommitted
		}
		if s.InHand() && s.StreetCommitted > maxInHand {
			maxInHand = s.StreetCommitted
		}
	}

	// A folded seat's bet can stand above the live maximum (the bettor
	// left mid-street), so the live max bounds from below only.
	if t.CurrentBet < maxInHand || t.CurrentBet > maxAny {
		return fmt.Errorf("currentBet %d outside commitments [%d, %d]", t.CurrentBet, maxInHand, maxAny)
	}

	if err := t.checkCards(); err != nil {
		return err
	}

	if t.DeckIndex < 0 || t.DeckIndex > deck.NumCards {
		return fmt.Errorf("deckIndex %d out of range", t.DeckIndex)
	}

	switch len(t.Community) {
	case 0, 3, 4, 5:
	default:
		return fmt.Errorf("community has %d cards", len(t.Community))
	}

	prevCap := 0
	for i, p := range t.Pots {
		if p.Amount <= 0 {
			return fmt.Errorf("pot %d: non-positive amount %d", i, p.Amount)
		}
		if len(p.Eligible) == 0 {
			return fmt.Errorf("pot %d: no eligible players", i)
		}
		if p.Cap <= prevCap {
			return fmt.Errorf("pot %d: cap %d not ascending past %d", i, p.Cap, prevCap)
		}
		prevCap = p.Cap
	}

	if t.Actor >= 0 {
		if t.Actor >= NumSeats || t.Seats[t.Actor].Status != SeatActive {
			return fmt.Errorf("actor %d is not an active seat", t.Actor)
		}
	}

	return nil
}

// checkCards verifies card uniqueness and range across the board, burns
// and every hole hand.
func (t *Table) checkCards() error {
	seen := make(map[deck.Card]string)
	record := func(c deck.Card, where string) error {
		if !c.Valid() {
			return fmt.Errorf("%s: card code %d out of range", where, int(c))
		}
		if prior, dup := seen[c]; dup {
			return fmt.Errorf("%s: card %s duplicated (also in %s)", where, c, prior)
		}
		seen[c] = where
		return nil
	}

	for _, c := range t.Community {
		if err := record(c, "community"); err != nil {
			return err
		}
	}
	for _, group := range [][]deck.Card{t.BurnFlop, t.BurnTurn, t.BurnRiver} {
		for _, c := range group {
			if err := record(c, "burn"); err != nil {
				return err
			}
		}
	}
	for i := range t.Seats {
		for _, c := range t.Seats[i].Hole {
			if err := record(c, fmt.Sprintf("seat %d", i)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ChipTotal sums chips behind, hand commitments and pending rebuys. Pots
// are excluded because they mirror commitments (pot integrity holds
// separately as Σpots == Σcommitted after CloseStreet). The total is
// constant across every event of a hand.
func (t *Table) ChipTotal() int {
	total := 0
	for i := range t.Seats {
		total += t.Seats[i].Chips + t.Seats[i].Committed + t.Seats[i].PendingRebuy
	}
	return total
}

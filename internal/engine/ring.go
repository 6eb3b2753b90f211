package engine

// Ring traversal and turn-order rules. Seats advance clockwise by index
// modulo NumSeats.

// isActionable reports whether the seat can still take actions this
// street.
func (t *Table) isActionable(seat int) bool {
	if seat < 0 || seat >= NumSeats {
		return false
	}
	s := &t.Seats[seat]
	return s.Status == SeatActive && s.Occupied()
}

// nextActionableFrom returns the first actionable seat strictly after i,
// searching a full lap clockwise. Returns -1 if none exists.
func (t *Table) nextActionableFrom(i int) int {
	for step := 1; step <= NumSeats; step++ {
		seat := (i + step) % NumSeats
		if t.isActionable(seat) {
			return seat
		}
	}
	return -1
}

// nextOccupiedFrom returns the first seat strictly after i that holds a
// player contesting the hand, or -1.
func (t *Table) nextOccupiedFrom(i int) int {
	for step := 1; step <= NumSeats; step++ {
		seat := (i + step) % NumSeats
		if t.Seats[seat].InHand() {
			return seat
		}
	}
	return -1
}

// firstActor computes the opening actor of a street. Heads-up the button
// acts first preflop and last postflop; multi-way the first actor is UTG
// preflop and the first actionable seat after the button postflop.
func (t *Table) firstActor(preflop bool) int {
	headsUp := t.InHandCount() == 2

	var start int
	switch {
	case headsUp && preflop:
		if t.isActionable(t.Button) {
			return t.Button
		}
		start = t.Button
	case headsUp:
		start = t.Button // the seat after the button is the BB
	case preflop:
		if t.BBSeat >= 0 {
			start = t.BBSeat
		} else {
			start = t.Button
		}
	default:
		start = t.Button
	}
	return t.nextActionableFrom(start)
}

// bbOptionOpen reports whether the preflop big-blind option is still live
// for the proposed next actor: nobody has raised past the blind and the
// BB has not yet acted.
func (t *Table) bbOptionOpen(next int) bool {
	return t.Phase == PhasePreflop &&
		!t.BBHasActed &&
		t.BBSeat >= 0 &&
		next == t.BBSeat &&
		t.CurrentBet == t.BigBlind
}

// roundComplete decides whether the current betting round is over given
// the proposed next actor. Pure function of the table.
func (t *Table) roundComplete(next int) bool {
	if t.InHandCount() <= 1 {
		return true // fold-to-one
	}

	actionable := 0
	for i := range t.Seats {
		if t.isActionable(i) {
			actionable++
		}
	}
	if actionable == 0 {
		return true // everyone remaining is all-in
	}

	if t.bbOptionOpen(next) {
		return false
	}

	for i := range t.Seats {
		if t.isActionable(i) && !t.ActedThisRound[i] {
			return false
		}
	}

	if t.LastAggressor >= 0 {
		if next != t.LastAggressor {
			return t.allMatched(-1)
		}
		return t.allMatched(t.LastAggressor)
	}

	// No aggression: checks (or limps) have gone around once everyone has
	// acted and nobody is short of the bet.
	return t.allMatched(-1)
}

// allMatched reports whether every in-hand seat except skip has matched
// the current bet or is all-in.
func (t *Table) allMatched(skip int) bool {
	for i := range t.Seats {
		if i == skip || !t.Seats[i].InHand() {
			continue
		}
		if t.Seats[i].Status == SeatAllIn {
			continue
		}
		if t.Seats[i].StreetCommitted != t.CurrentBet {
			return false
		}
	}
	return true
}

// dealOrder returns the in-hand seats starting one past the button,
// clockwise. This is the hole-card dealing order.
func (t *Table) dealOrder() []int {
	order := make([]int, 0, NumSeats)
	for step := 1; step <= NumSeats; step++ {
		seat := (t.Button + step) % NumSeats
		if t.Seats[seat].InHand() {
			order = append(order, seat)
		}
	}
	return order
}

package engine

import "github.com/feltd/feltd/internal/deck"

// Reduce applies an event to the table and returns the next state plus the
// side effects to execute. It never mutates t: state changes happen on a
// clone, and a rejected event returns t itself so the loop can detect the
// no-op by identity or value comparison.
func Reduce(t *Table, ev Event) (*Table, []Effect) {
	switch e := ev.(type) {
	case StartHand:
		return reduceStartHand(t, e)
	case PostBlinds:
		return reducePostBlinds(t, e)
	case DealHole:
		return reduceDealHole(t, e)
	case EnterStreet:
		return reduceEnterStreet(t, e)
	case Action:
		return reduceAction(t, e)
	case TimeoutAutoFold:
		return reduceTimeoutAutoFold(t, e)
	case CloseStreet:
		return reduceCloseStreet(t, e)
	case Showdown:
		return reduceShowdown(t, e)
	case Payout:
		return reducePayout(t, e)
	case HandEnd:
		return reduceHandEnd(t, e)
	case PlayerJoin:
		return reducePlayerJoin(t, e)
	case PlayerLeave:
		return reducePlayerLeave(t, e)
	case PlayerSitOut:
		return reducePlayerSitOut(t, e)
	case PlayerSitIn:
		return reducePlayerSitIn(t, e)
	case Rebuy:
		return reduceRebuy(t, e)
	}
	return t, nil
}

// eligibleSeats lists seats that can be dealt into a new hand: occupied,
// funded, and not in the sitting-out set.
func eligibleSeats(t *Table, sittingOut []string) []int {
	out := make(map[string]bool, len(sittingOut))
	for _, id := range sittingOut {
		out[id] = true
	}
	seats := make([]int, 0, NumSeats)
	for i := range t.Seats {
		s := &t.Seats[i]
		if s.Occupied() && s.Chips+s.PendingRebuy > 0 && !out[s.PlayerID] {
			seats = append(seats, i)
		}
	}
	return seats
}

func reduceStartHand(t *Table, e StartHand) (*Table, []Effect) {
	if t.Phase != PhaseWaiting {
		return t, nil
	}

	n := t.Clone()

	// Pending rebuys land before eligibility so a busted player who
	// rebought between hands is dealt in.
	for i := range n.Seats {
		s := &n.Seats[i]
		if s.Occupied() && s.PendingRebuy > 0 {
			s.Chips += s.PendingRebuy
			s.PendingRebuy = 0
		}
	}

	eligible := eligibleSeats(n, e.SittingOut)
	if len(eligible) < 2 {
		return t, nil
	}

	if n.HandNum == 0 {
		n.Button = eligible[int(e.At%int64(len(eligible)))]
	}

	n.resetHandState()
	n.HandNum = e.HandNum
	n.StartedAt = e.At
	n.Phase = PhaseDeal

	n.DeckSeed = DeckSeed(e.HandNum, e.At, e.Suffix)
	n.Deck = deck.Shuffle(n.DeckSeed)
	n.DeckCommitment = deck.Commitment(n.Deck)
	n.DeckIndex = 0

	dealt := make(map[int]bool, len(eligible))
	for _, i := range eligible {
		dealt[i] = true
	}
	for i := range n.Seats {
		if dealt[i] {
			n.Seats[i].Status = SeatActive
		} else {
			n.Seats[i].Status = SeatEmpty
		}
	}

	return n, []Effect{
		DispatchEvent{Event: PostBlinds{SmallBlind: n.SmallBlind, BigBlind: n.BigBlind, Ante: n.Ante}},
		EmitStateChange{Reason: "hand_start"},
	}
}

func reducePostBlinds(t *Table, e PostBlinds) (*Table, []Effect) {
	if t.Phase != PhaseDeal || t.InHandCount() < 2 {
		return t, nil
	}

	n := t.Clone()

	if !n.Seats[n.Button].InHand() {
		n.Button = n.nextOccupiedFrom(n.Button)
	}

	var sbSeat, bbSeat int
	if n.InHandCount() == 2 {
		// Heads-up the button posts the small blind.
		sbSeat = n.Button
		bbSeat = n.nextOccupiedFrom(sbSeat)
	} else {
		sbSeat = n.nextOccupiedFrom(n.Button)
		bbSeat = n.nextOccupiedFrom(sbSeat)
	}
	if sbSeat < 0 || bbSeat < 0 {
		return t, nil
	}

	if e.Ante > 0 {
		for i := range n.Seats {
			s := &n.Seats[i]
			if !s.InHand() {
				continue
			}
			// Antes feed the pot directly without raising the street bet.
			ante := e.Ante
			if ante > s.Chips {
				ante = s.Chips
			}
			s.Chips -= ante
			s.Committed += ante
			if s.Chips == 0 && s.Status == SeatActive {
				s.Status = SeatAllIn
			}
		}
	}

	n.commit(sbSeat, e.SmallBlind)
	n.commit(bbSeat, e.BigBlind)
	n.Seats[sbSeat].LastAction = "small blind"
	n.Seats[bbSeat].LastAction = "big blind"

	n.syncCurrentBet()
	n.LastRaiseSize = e.BigBlind
	n.BBSeat = bbSeat
	n.BBHasActed = false

	return n, []Effect{
		DispatchEvent{Event: DealHole{}},
		DispatchEvent{Event: EnterStreet{Street: StreetPreflop}},
		EmitStateChange{Reason: "blinds_posted"},
	}
}

func reduceDealHole(t *Table, e DealHole) (*Table, []Effect) {
	if t.Phase != PhaseDeal || len(t.Deck) != deck.NumCards {
		return t, nil
	}
	for i := range t.Seats {
		if len(t.Seats[i].Hole) > 0 {
			return t, nil
		}
	}

	n := t.Clone()
	order := n.dealOrder()

	// Two passes of one card each, starting left of the button.
	for round := 0; round < deck.HoleCards; round++ {
		for _, seat := range order {
			cards, idx, err := deck.Draw(n.Deck, n.DeckIndex, 1)
			if err != nil {
				return t, nil
			}
			n.Seats[seat].Hole = append(n.Seats[seat].Hole, cards[0])
			n.DeckIndex = idx
		}
	}

	return n, []Effect{EmitStateChange{Reason: "hole_dealt"}}
}

func reduceEnterStreet(t *Table, e EnterStreet) (*Table, []Effect) {
	switch e.Street {
	case StreetPreflop:
		if t.Phase != PhaseDeal {
			return t, nil
		}
	case StreetFlop, StreetTurn, StreetRiver:
		if t.Street.Next() != e.Street {
			return t, nil
		}
	default:
		return t, nil
	}

	n := t.Clone()

	if e.Street != StreetPreflop && len(n.Community) < e.Street.BoardLen() {
		draw := e.Street.BoardLen() - len(n.Community)
		burn, idx, err := deck.Draw(n.Deck, n.DeckIndex, 1)
		if err != nil {
			return t, nil
		}
		cards, idx, err := deck.Draw(n.Deck, idx, draw)
		if err != nil {
			return t, nil
		}
		n.DeckIndex = idx
		n.Community = append(n.Community, cards...)
		switch e.Street {
		case StreetFlop:
			n.BurnFlop = burn
		case StreetTurn:
			n.BurnTurn = burn
		case StreetRiver:
			n.BurnRiver = burn
		}
	}

	n.Phase = e.Street.Phase()
	n.Street = e.Street

	if e.Street != StreetPreflop {
		// Preflop keeps the blinds on the street ledger; later streets
		// open fresh.
		for i := range n.Seats {
			n.Seats[i].StreetCommitted = 0
		}
		n.CurrentBet = 0
		n.LastRaiseSize = n.BigBlind
		n.LastAggressor = -1
		n.RaiseClosed = false
	}

	actor := n.firstActor(e.Street == StreetPreflop)
	n.ActedThisRound = [NumSeats]bool{}
	n.RoundStartActor = actor

	if actor < 0 || n.roundComplete(actor) {
		// Everyone remaining is all-in: run the board out.
		n.Actor = -1
		effects := []Effect{DispatchEvent{Event: CloseStreet{}}}
		if next := e.Street.Next(); next != StreetNone {
			effects = append(effects, DispatchEvent{Event: EnterStreet{Street: next, IsAutoDealt: true}})
		} else {
			effects = append(effects, DispatchEvent{Event: Showdown{}})
		}
		effects = append(effects, EmitStateChange{Reason: "street_dealt"})
		return n, effects
	}

	n.Actor = actor
	return n, []Effect{
		StartTimer{PlayerID: n.Seats[actor].PlayerID, Seat: actor},
		EmitStateChange{Reason: "street_dealt"},
	}
}

func reduceCloseStreet(t *Table, e CloseStreet) (*Table, []Effect) {
	if t.Street == StreetNone {
		return t, nil
	}

	n := t.Clone()
	n.collectPots()
	for i := range n.Seats {
		n.Seats[i].StreetCommitted = 0
	}
	n.CurrentBet = 0
	n.Actor = -1

	return n, []Effect{
		ClearTimers{},
		EmitStateChange{Reason: "street_closed"},
	}
}

func reduceShowdown(t *Table, e Showdown) (*Table, []Effect) {
	if t.Phase == PhaseShowdown || t.Phase == PhasePayout || t.Phase == PhaseHandEnd {
		return t, nil
	}

	n := t.Clone()
	n.Phase = PhaseShowdown
	n.Street = StreetNone
	n.Actor = -1

	return n, []Effect{
		EvaluateHands{},
		EmitStateChange{Reason: "showdown"},
	}
}

func reducePayout(t *Table, e Payout) (*Table, []Effect) {
	if t.Phase != PhaseShowdown {
		return t, nil
	}

	n := t.Clone()
	for _, d := range e.Distributions {
		if d.Seat < 0 || d.Seat >= NumSeats {
			continue
		}
		n.Seats[d.Seat].Chips += d.Amount
	}
	// The pots and the commitments they were cut from are both settled.
	n.Pots = nil
	for i := range n.Seats {
		n.Seats[i].Committed = 0
		n.Seats[i].StreetCommitted = 0
	}
	n.Phase = PhaseHandEnd

	return n, []Effect{
		DispatchEvent{Event: HandEnd{}, DelayMillis: 5000},
		EmitStateChange{Reason: "payout"},
	}
}

func reduceHandEnd(t *Table, e HandEnd) (*Table, []Effect) {
	if t.Phase == PhaseWaiting {
		return t, nil
	}

	n := t.Clone()

	for i := range n.Seats {
		s := &n.Seats[i]
		if !s.Occupied() {
			continue
		}
		if s.Chips == 0 && s.PendingRebuy > 0 {
			s.Chips = s.PendingRebuy
			s.PendingRebuy = 0
		}
		if s.Chips == 0 {
			*s = Seat{ID: i, Status: SeatEmpty}
		}
	}

	for step := 1; step <= NumSeats; step++ {
		seat := (n.Button + step) % NumSeats
		if n.Seats[seat].Occupied() && n.Seats[seat].Chips > 0 {
			n.Button = seat
			break
		}
	}

	n.resetHandState()

	return n, []Effect{
		ClearTimers{},
		CheckGameStart{},
		EmitStateChange{Reason: "hand_end"},
	}
}

package engine

func reducePlayerJoin(t *Table, e PlayerJoin) (*Table, []Effect) {
	if e.Seat < 0 || e.Seat >= NumSeats {
		return t, nil
	}
	if t.Seats[e.Seat].Occupied() {
		return t, nil
	}
	if t.SeatOf(e.PlayerID) >= 0 {
		return t, nil
	}
	if e.BuyIn < t.BuyInMin || e.BuyIn > t.BuyInMax {
		return t, nil
	}

	n := t.Clone()
	s := &n.Seats[e.Seat]
	s.PlayerID = e.PlayerID
	s.Nickname = e.Nickname
	s.Chips = e.BuyIn
	s.Status = SeatEmpty // dealt in at the next StartHand

	return n, []Effect{
		EmitStateChange{Reason: "player_joined"},
		CheckGameStart{},
	}
}

func reducePlayerLeave(t *Table, e PlayerLeave) (*Table, []Effect) {
	seat := t.SeatOf(e.PlayerID)
	if seat < 0 {
		return t, nil
	}

	n := t.Clone()
	s := &n.Seats[seat]
	wasActor := n.Actor == seat
	inHand := s.InHand()

	// The seat's committed chips stay behind for pot construction; the
	// stack leaves with the player.
	s.PlayerID = ""
	s.Nickname = ""
	s.Chips = 0
	s.PendingRebuy = 0
	s.Hole = nil
	s.LastAction = ""
	if inHand && n.Phase != PhaseWaiting {
		s.Status = SeatFolded
	} else {
		s.Status = SeatEmpty
		s.Committed = 0
		s.StreetCommitted = 0
	}

	effects := []Effect{StopTimer{PlayerID: e.PlayerID}}
	if inHand && n.InBettingPhase() {
		if wasActor {
			n.ActedThisRound[seat] = true
			effects = append(effects, n.advance(seat)...)
		} else if n.roundComplete(n.Actor) {
			// The fold may have ended the hand out of turn.
			effects = append(effects, n.advance(seat)...)
		}
	}
	effects = append(effects, EmitStateChange{Reason: "player_left"})
	return n, effects
}

// reducePlayerSitOut records nothing on the table: the sit-out set lives
// in the controller and joins the snapshot from there. The event exists
// for the log and observers, and is idempotent.
func reducePlayerSitOut(t *Table, e PlayerSitOut) (*Table, []Effect) {
	if t.SeatOf(e.PlayerID) < 0 {
		return t, nil
	}
	return t, []Effect{EmitStateChange{Reason: "player_sat_out"}}
}

func reducePlayerSitIn(t *Table, e PlayerSitIn) (*Table, []Effect) {
	if t.SeatOf(e.PlayerID) < 0 {
		return t, nil
	}
	return t, []Effect{
		EmitStateChange{Reason: "player_sat_in"},
		CheckGameStart{},
	}
}

func reduceRebuy(t *Table, e Rebuy) (*Table, []Effect) {
	seat := t.SeatOf(e.PlayerID)
	if seat < 0 || e.Amount <= 0 {
		return t, nil
	}
	s := t.Seats[seat]
	if s.Chips+s.PendingRebuy+e.Amount > t.BuyInMax {
		return t, nil
	}

	n := t.Clone()
	if n.Seats[seat].InHand() && n.Phase != PhaseWaiting {
		// Mid-hand top-ups wait on the seat until the next hand starts.
		n.Seats[seat].PendingRebuy += e.Amount
	} else {
		n.Seats[seat].Chips += e.Amount
	}

	return n, []Effect{
		EmitStateChange{Reason: "rebuy"},
		CheckGameStart{},
	}
}

package engine

// Snapshot is the client-facing view of a table. Hole cards are redacted
// per recipient and the sitting-out flag is joined in from the sit-out
// controller, which owns it.
type Snapshot struct {
	TableID    string         `json:"tableId"`
	HandNum    int64          `json:"handNum"`
	StartedAt  int64          `json:"startedAt,omitempty"`
	Phase      Phase          `json:"phase"`
	Street     Street         `json:"street,omitempty"`
	Button     int            `json:"button"`
	SmallBlind int            `json:"smallBlind"`
	BigBlind   int            `json:"bigBlind"`
	Ante       int            `json:"ante,omitempty"`
	CurrentBet int            `json:"currentBet"`
	MinRaise   int            `json:"minRaise"`
	Actor      int            `json:"actor"`
	Community  []int          `json:"community"`
	Pots       []PotSnapshot  `json:"pots"`
	Seats      []SeatSnapshot `json:"seats"`
	Commitment string         `json:"deckCommitment,omitempty"`
}

// PotSnapshot is a pot as shown to clients.
type PotSnapshot struct {
	Amount   int      `json:"amount"`
	Eligible []string `json:"eligible"`
}

// SeatSnapshot is a seat as shown to clients. Hole is nil unless the
// recipient owns the seat or the hand reached showdown.
type SeatSnapshot struct {
	ID              int        `json:"id"`
	PlayerID        string     `json:"playerId,omitempty"`
	Nickname        string     `json:"nickname,omitempty"`
	Chips           int        `json:"chips"`
	Committed       int        `json:"committed"`
	StreetCommitted int        `json:"streetCommitted"`
	Status          SeatStatus `json:"status"`
	SittingOut      bool       `json:"sittingOut,omitempty"`
	Hole            []int      `json:"hole,omitempty"`
	LastAction      string     `json:"lastAction,omitempty"`
}

// SnapshotFor renders the table for one recipient. viewerID may be empty
// for an observer; sittingOut is the controller's current set.
func (t *Table) SnapshotFor(viewerID string, sittingOut map[string]bool) Snapshot {
	snap := Snapshot{
		TableID:    t.ID,
		HandNum:    t.HandNum,
		StartedAt:  t.StartedAt,
		Phase:      t.Phase,
		Street:     t.Street,
		Button:     t.Button,
		SmallBlind: t.SmallBlind,
		BigBlind:   t.BigBlind,
		Ante:       t.Ante,
		CurrentBet: t.CurrentBet,
		MinRaise:   t.LastRaiseSize,
		Actor:      t.Actor,
		Community:  cardCodes(t.Community),
		Commitment: t.DeckCommitment,
	}

	for _, p := range t.Pots {
		snap.Pots = append(snap.Pots, PotSnapshot{
			Amount:   p.Amount,
			Eligible: append([]string(nil), p.Eligible...),
		})
	}

	reveal := t.Phase == PhaseShowdown || t.Phase == PhasePayout || t.Phase == PhaseHandEnd
	snap.Seats = make([]SeatSnapshot, NumSeats)
	for i := range t.Seats {
		s := &t.Seats[i]
		view := SeatSnapshot{
			ID:              i,
			PlayerID:        s.PlayerID,
			Nickname:        s.Nickname,
			Chips:           s.Chips,
			Committed:       s.Committed,
			StreetCommitted: s.StreetCommitted,
			Status:          s.Status,
			SittingOut:      s.Occupied() && sittingOut[s.PlayerID],
			LastAction:      s.LastAction,
		}
		if len(s.Hole) > 0 && (s.PlayerID == viewerID || (reveal && s.InHand())) {
			view.Hole = cardCodes(s.Hole)
		}
		snap.Seats[i] = view
	}
	return snap
}

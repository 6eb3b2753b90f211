package engine

import (
	"encoding/json"
	"fmt"

	"github.com/feltd/feltd/internal/deck"
)

// Event is a tagged record processed by the reducer. Events are immutable
// and, once applied with a state change, appended to the table's log.
type Event interface {
	Kind() string
}

// Event kind tags. These are the wire and log identifiers, so they must
// stay stable.
const (
	KindStartHand       = "START_HAND"
	KindPostBlinds      = "POST_BLINDS"
	KindDealHole        = "DEAL_HOLE"
	KindEnterStreet     = "ENTER_STREET"
	KindAction          = "ACTION"
	KindTimeoutAutoFold = "TIMEOUT_AUTO_FOLD"
	KindCloseStreet     = "CLOSE_STREET"
	KindShowdown        = "SHOWDOWN"
	KindPayout          = "PAYOUT"
	KindHandEnd         = "HAND_END"
	KindPlayerJoin      = "PLAYER_JOIN"
	KindPlayerLeave     = "PLAYER_LEAVE"
	KindPlayerSitOut    = "PLAYER_SIT_OUT"
	KindPlayerSitIn     = "PLAYER_SIT_IN"
)

// ActionType is a player betting action.
type ActionType string

const (
	ActionFold  ActionType = "FOLD"
	ActionCheck ActionType = "CHECK"
	ActionCall  ActionType = "CALL"
	ActionBet   ActionType = "BET"
	ActionRaise ActionType = "RAISE"
	ActionAllIn ActionType = "ALLIN"
)

// StartHand begins a new hand. HandNum and At feed the deck seed, Suffix
// is the random seed tail generated by the loop so replay reproduces the
// shuffle. SittingOut carries the sit-out controller's view at hand start;
// the reducer itself holds no sit-out state.
type StartHand struct {
	HandNum    int64    `json:"handNum"`
	At         int64    `json:"at"`
	Suffix     string   `json:"suffix"`
	SittingOut []string `json:"sittingOut,omitempty"`
}

func (StartHand) Kind() string { return KindStartHand }

// PostBlinds deducts blinds and antes and fixes the blind positions.
type PostBlinds struct {
	SmallBlind int `json:"smallBlind"`
	BigBlind   int `json:"bigBlind"`
	Ante       int `json:"ante,omitempty"`
}

func (PostBlinds) Kind() string { return KindPostBlinds }

// DealHole deals two cards to every active seat from the hand's deck.
type DealHole struct{}

func (DealHole) Kind() string { return KindDealHole }

// EnterStreet opens a betting round, dealing the street's community cards
// if they are not on the board yet.
type EnterStreet struct {
	Street      Street `json:"street"`
	IsAutoDealt bool   `json:"isAutoDealt,omitempty"`
}

func (EnterStreet) Kind() string { return KindEnterStreet }

// Action is a player's betting action. Amount is only meaningful for BET
// and RAISE (the raise increment).
type Action struct {
	Seat   int        `json:"seat"`
	Type   ActionType `json:"type"`
	Amount int        `json:"amount,omitempty"`
}

func (Action) Kind() string { return KindAction }

// TimeoutAutoFold folds the seat if it is still the current actor. A stale
// timeout is an idempotent no-op.
type TimeoutAutoFold struct {
	Seat int `json:"seat"`
}

func (TimeoutAutoFold) Kind() string { return KindTimeoutAutoFold }

// CloseStreet collects street commitments into pots and clears the actor.
type CloseStreet struct{}

func (CloseStreet) Kind() string { return KindCloseStreet }

// Showdown asks the loop to evaluate hands and produce a Payout.
type Showdown struct{}

func (Showdown) Kind() string { return KindShowdown }

// Distribution is one payout line: chips credited to a seat.
type Distribution struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
	Reason   string `json:"reason"` // "win" or "uncalled"
}

// Payout credits distributions and closes the betting portion of the hand.
type Payout struct {
	Distributions []Distribution `json:"distributions"`
}

func (Payout) Kind() string { return KindPayout }

// HandEnd removes broke players, advances the button and returns the table
// to waiting.
type HandEnd struct{}

func (HandEnd) Kind() string { return KindHandEnd }

// PlayerJoin seats a player with a buy-in.
type PlayerJoin struct {
	Seat     int    `json:"seat"`
	PlayerID string `json:"playerId"`
	Nickname string `json:"nickname,omitempty"`
	BuyIn    int    `json:"buyIn"`
}

func (PlayerJoin) Kind() string { return KindPlayerJoin }

// PlayerLeave removes a player; mid-hand it force-folds the seat first.
type PlayerLeave struct {
	PlayerID string `json:"playerId"`
}

func (PlayerLeave) Kind() string { return KindPlayerLeave }

// PlayerSitOut marks the player sitting out. The authoritative record is
// the sit-out controller; the reducer only logs the transition.
type PlayerSitOut struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason,omitempty"` // "voluntary" or "timeout"
}

func (PlayerSitOut) Kind() string { return KindPlayerSitOut }

// PlayerSitIn returns a sitting-out player to play from the next hand.
type PlayerSitIn struct {
	PlayerID string `json:"playerId"`
}

func (PlayerSitIn) Kind() string { return KindPlayerSitIn }

// Rebuy tops up a seat. During a hand the chips are parked on the seat as
// a pending rebuy and folded into the stack at the next StartHand.
type Rebuy struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

const KindRebuy = "REBUY"

func (Rebuy) Kind() string { return KindRebuy }

// envelope is the serialized form of an event: tag plus payload.
type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// MarshalEvent encodes an event as a tagged JSON envelope.
func MarshalEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.Kind(), err)
	}
	return json.Marshal(envelope{Kind: ev.Kind(), Data: data})
}

// UnmarshalEvent decodes a tagged JSON envelope back into a typed event.
func UnmarshalEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}
	var ev Event
	switch env.Kind {
	case KindStartHand:
		ev = &StartHand{}
	case KindPostBlinds:
		ev = &PostBlinds{}
	case KindDealHole:
		ev = &DealHole{}
	case KindEnterStreet:
		ev = &EnterStreet{}
	case KindAction:
		ev = &Action{}
	case KindTimeoutAutoFold:
		ev = &TimeoutAutoFold{}
	case KindCloseStreet:
		ev = &CloseStreet{}
	case KindShowdown:
		ev = &Showdown{}
	case KindPayout:
		ev = &Payout{}
	case KindHandEnd:
		ev = &HandEnd{}
	case KindPlayerJoin:
		ev = &PlayerJoin{}
	case KindPlayerLeave:
		ev = &PlayerLeave{}
	case KindPlayerSitOut:
		ev = &PlayerSitOut{}
	case KindPlayerSitIn:
		ev = &PlayerSitIn{}
	case KindRebuy:
		ev = &Rebuy{}
	default:
		return nil, fmt.Errorf("unmarshal event: unknown kind %q", env.Kind)
	}
	if err := json.Unmarshal(env.Data, ev); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Kind, err)
	}
	return deref(ev), nil
}

// deref converts the pointer forms produced by decoding back to the value
// forms the reducer switches on.
func deref(ev Event) Event {
	switch e := ev.(type) {
	case *StartHand:
		return *e
	case *PostBlinds:
		return *e
	case *DealHole:
		return *e
	case *EnterStreet:
		return *e
	case *Action:
		return *e
	case *TimeoutAutoFold:
		return *e
	case *CloseStreet:
		return *e
	case *Showdown:
		return *e
	case *Payout:
		return *e
	case *HandEnd:
		return *e
	case *PlayerJoin:
		return *e
	case *PlayerLeave:
		return *e
	case *PlayerSitOut:
		return *e
	case *PlayerSitIn:
		return *e
	case *Rebuy:
		return *e
	}
	return ev
}

// DeckSeed builds the deterministic seed string for a hand.
func DeckSeed(handNum, at int64, suffix string) string {
	return fmt.Sprintf("hand-%d-%d-%s", handNum, at, suffix)
}

// cardCodes converts cards to their integer wire codes.
func cardCodes(cards []deck.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = int(c)
	}
	return out
}

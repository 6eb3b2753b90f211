package server

import (
	"encoding/json"
	"time"

	"github.com/feltd/feltd/internal/countdown"
	"github.com/feltd/feltd/internal/engine"
)

// MessageType identifies a frame on the WebSocket wire.
type MessageType string

// Client commands.
const (
	CmdAttach      MessageType = "ATTACH"
	CmdListTables  MessageType = "LIST_TABLES"
	CmdCreateTable MessageType = "CREATE_TABLE"
	CmdJoinTable   MessageType = "JOIN_TABLE"
	CmdSit         MessageType = "SIT"
	CmdLeave       MessageType = "LEAVE"
	CmdSitOut      MessageType = "SIT_OUT"
	CmdSitIn       MessageType = "SIT_IN"
	CmdAction      MessageType = "ACTION"
	CmdRebuy       MessageType = "REBUY"
)

// Server events. TABLE_SNAPSHOT is the authoritative view; the discrete
// events alongside it let thin clients animate without diffing snapshots.
const (
	EventSession        MessageType = "SESSION"
	EventTableList      MessageType = "TABLE_LIST"
	EventTableCreated   MessageType = "TABLE_CREATED"
	EventTableSnapshot  MessageType = "TABLE_SNAPSHOT"
	EventPlayerJoined   MessageType = "PLAYER_JOINED"
	EventPlayerWaiting  MessageType = "WAITING_FOR_NEXT_HAND"
	EventPlayerLeft     MessageType = "PLAYER_LEFT"
	EventPlayerSatOut   MessageType = "PLAYER_SAT_OUT"
	EventPlayerSatIn    MessageType = "PLAYER_SAT_IN"
	EventHandStart      MessageType = "HAND_START"
	EventHandEnd        MessageType = "HAND_END"
	EventBlindsPosted   MessageType = "BLINDS_POSTED"
	EventDealFlop       MessageType = "DEAL_FLOP"
	EventDealTurn       MessageType = "DEAL_TURN"
	EventDealRiver      MessageType = "DEAL_RIVER"
	EventActionApplied  MessageType = "PLAYER_ACTION_APPLIED"
	EventRoundEnd       MessageType = "ROUND_END"
	EventShowdown       MessageType = "SHOWDOWN"
	EventActionPrompt   MessageType = "ACTION_PROMPT"
	EventCountdownStart MessageType = "COUNTDOWN_START"
	EventWinners        MessageType = "WINNER_ANNOUNCEMENT"
	EventError          MessageType = "ERROR"
)

// Error codes carried in ErrorData.
const (
	ErrCodeBadJSON        = "BAD_JSON"
	ErrCodeUnknownCommand = "UNKNOWN_COMMAND"
	ErrCodeNotAttached    = "NOT_ATTACHED"
	ErrCodeNoSuchTable    = "NO_SUCH_TABLE"
	ErrCodeInvalidSeat    = "INVALID_SEAT"
	ErrCodeSeatTaken      = "SEAT_TAKEN"
	ErrCodeInvalidBuyIn   = "INVALID_BUYIN"
	ErrCodeSeatingFailed  = "SEATING_FAILED"
	ErrCodeActionFailed   = "ACTION_FAILED"
	ErrCodeRebuyFailed    = "REBUY_FAILED"
)

// Message is the wire envelope. CmdID echoes the client's command id on
// direct replies so callers can correlate request and response.
type Message struct {
	Type      MessageType     `json:"type"`
	CmdID     string          `json:"cmdId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage builds a Message, marshaling data into the envelope. A
// payload that fails to marshal yields an empty Data field.
func NewMessage(messageType MessageType, data interface{}) *Message {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	return &Message{
		Type:      messageType,
		Data:      raw,
		Timestamp: time.Now(),
	}
}

// AttachData binds the connection to a player identity.
type AttachData struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname,omitempty"`
}

// SessionData acknowledges an attach.
type SessionData struct {
	SessionID string `json:"sessionId"`
	PlayerID  string `json:"playerId"`
}

// CreateTableData opens a new table at the given stakes. Zero-valued
// fields take the server defaults.
type CreateTableData struct {
	Name       string `json:"name"`
	SmallBlind int    `json:"smallBlind,omitempty"`
	BigBlind   int    `json:"bigBlind,omitempty"`
	Ante       int    `json:"ante,omitempty"`
	BuyInMin   int    `json:"buyInMin,omitempty"`
	BuyInMax   int    `json:"buyInMax,omitempty"`
}

// JoinTableData subscribes the connection to a table's broadcasts.
type JoinTableData struct {
	TableID string `json:"tableId"`
}

// SitData claims a seat. PlayerID defaults to the attached identity.
type SitData struct {
	TableID  string `json:"tableId,omitempty"`
	Seat     int    `json:"seat"`
	BuyIn    int    `json:"buyIn"`
	PlayerID string `json:"playerId,omitempty"`
}

// ActionData is a betting action. Amount is the total for a bet and the
// raise increment for a raise.
type ActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// RebuyData adds chips, deferred to the next hand while one is running.
type RebuyData struct {
	Amount int `json:"amount"`
}

// TableInfo is one row of a TABLE_LIST reply.
type TableInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	SmallBlind int    `json:"smallBlind"`
	BigBlind   int    `json:"bigBlind"`
	Seated     int    `json:"seated"`
	MaxSeats   int    `json:"maxSeats"`
}

// TableListData lists the open tables.
type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

// SnapshotData wraps a per-recipient table snapshot with the reason it
// was emitted.
type SnapshotData struct {
	Reason   string          `json:"reason"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// ActionPromptData announces whose turn it is. Deadline is the
// server-authoritative expiry; clients render their own countdown and
// the server folds the actor itself when the deadline passes.
type ActionPromptData struct {
	Seat     int                     `json:"seat"`
	Actions  engine.AvailableActions `json:"available"`
	Deadline int64                   `json:"deadline"`
}

// CountdownData mirrors a countdown record so clients can animate it.
type CountdownData struct {
	ID             string            `json:"id"`
	Type           countdown.Type    `json:"countdownType"`
	StartTime      int64             `json:"startTime"`
	DurationMillis int64             `json:"durationMillis"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// HandStartData announces a new hand and its deck commitment, published
// before any card leaves the deck so clients can audit the shuffle.
type HandStartData struct {
	HandNum    int64  `json:"handNum"`
	Button     int    `json:"button"`
	Commitment string `json:"deckCommitment"`
}

// BlindsPostedData reports the forced bets of the new hand.
type BlindsPostedData struct {
	SmallBlind int `json:"smallBlind"`
	BigBlind   int `json:"bigBlind"`
	Ante       int `json:"ante,omitempty"`
}

// DealData carries the newly dealt community cards as integer codes.
type DealData struct {
	Cards []int `json:"cards"`
}

// RoundEndData closes a betting street.
type RoundEndData struct {
	Street string `json:"street"`
}

// ShowdownData fixes the order in which live hands are revealed: in-hand
// seats starting one past the button.
type ShowdownData struct {
	RevealOrder []int `json:"revealOrder"`
}

// WaitingData names the seats that joined mid-hand and sit out the rest
// of it; they are dealt in at the next hand start.
type WaitingData struct {
	Seats []int `json:"seats"`
}

// WinnersData announces a hand's payouts.
type WinnersData struct {
	Distributions []engine.Distribution `json:"distributions"`
}

// ErrorData reports a command or table failure.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func countdownData(rec countdown.Record) CountdownData {
	return CountdownData{
		ID:             rec.ID,
		Type:           rec.Type,
		StartTime:      rec.StartTime.UnixMilli(),
		DurationMillis: rec.Duration.Milliseconds(),
		Metadata:       rec.Metadata,
	}
}

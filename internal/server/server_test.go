package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltd/feltd/internal/engine"
	"github.com/feltd/feltd/internal/eventlog"
	"github.com/feltd/feltd/internal/loop"
)

// testServer spins up a server on an httptest listener with short
// countdowns so hands start quickly on the real clock. mutate, when
// non-nil, adjusts the config before the server boots.
func testServer(t *testing.T, mutate ...func(*Config)) (*Server, string) {
	t.Helper()

	config := DefaultConfig()
	config.Server.GameStartCountdownSeconds = 1
	config.Server.StreetDealDelaySeconds = 1
	config.Server.NewHandDelaySeconds = 1
	config.Tables = []TableConfig{
		{Name: "main", SmallBlind: 5, BigBlind: 10, BuyInMin: 100, BuyInMax: 2000},
	}
	for _, fn := range mutate {
		fn(config)
	}

	s, err := New(config, log.New(io.Discard), quartz.NewReal())
	require.NoError(t, err)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.Stop()
	})

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return s, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendCmd(t *testing.T, conn *websocket.Conn, cmd MessageType, cmdID string, data interface{}) {
	t.Helper()
	msg := NewMessage(cmd, data)
	msg.CmdID = cmdID
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil drains frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want MessageType) *Message {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if msg.Type == want {
			return &msg
		}
	}
}

func decodeData(t *testing.T, msg *Message, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Data, out))
}

func attach(t *testing.T, conn *websocket.Conn, playerID string) {
	t.Helper()
	sendCmd(t, conn, CmdAttach, "att-"+playerID, AttachData{UserID: playerID})
	msg := readUntil(t, conn, EventSession)
	var session SessionData
	decodeData(t, msg, &session)
	require.Equal(t, playerID, session.PlayerID)
}

func TestAttachAndListTables(t *testing.T) {
	_, url := testServer(t)
	conn := dial(t, url)

	attach(t, conn, "alice")

	sendCmd(t, conn, CmdListTables, "c1", nil)
	msg := readUntil(t, conn, EventTableList)
	assert.Equal(t, "c1", msg.CmdID)

	var list TableListData
	decodeData(t, msg, &list)
	require.Len(t, list.Tables, 1)
	assert.Equal(t, "main", list.Tables[0].ID)
	assert.Equal(t, 10, list.Tables[0].BigBlind)
	assert.Equal(t, engine.NumSeats, list.Tables[0].MaxSeats)
}

func TestSitValidation(t *testing.T) {
	_, url := testServer(t)
	conn := dial(t, url)
	attach(t, conn, "alice")

	sendCmd(t, conn, CmdJoinTable, "c1", JoinTableData{TableID: "main"})
	readUntil(t, conn, EventTableSnapshot)

	cases := []struct {
		name string
		data SitData
		code string
	}{
		{"seat out of range", SitData{Seat: 9, BuyIn: 500}, ErrCodeInvalidSeat},
		{"buy-in too small", SitData{Seat: 0, BuyIn: 50}, ErrCodeInvalidBuyIn},
		{"buy-in too large", SitData{Seat: 0, BuyIn: 5000}, ErrCodeInvalidBuyIn},
	}
	for _, tc := range cases {
		sendCmd(t, conn, CmdSit, "sit", tc.data)
		msg := readUntil(t, conn, EventError)
		var errData ErrorData
		decodeData(t, msg, &errData)
		assert.Equal(t, tc.code, errData.Code, tc.name)
	}

	// A valid sit broadcasts a snapshot with the seat filled.
	sendCmd(t, conn, CmdSit, "sit-ok", SitData{Seat: 2, BuyIn: 500})
	msg := readUntil(t, conn, EventTableSnapshot)
	var snap SnapshotData
	decodeData(t, msg, &snap)
	assert.Equal(t, "player_joined", snap.Reason)
	assert.Equal(t, "alice", snap.Seats()[2].PlayerID)

	// The same seat is now taken for everyone else.
	other := dial(t, url)
	attach(t, other, "bob")
	sendCmd(t, other, CmdJoinTable, "j", JoinTableData{TableID: "main"})
	readUntil(t, other, EventTableSnapshot)
	sendCmd(t, other, CmdSit, "sit", SitData{Seat: 2, BuyIn: 500})
	errMsg := readUntil(t, other, EventError)
	var errData ErrorData
	decodeData(t, errMsg, &errData)
	assert.Equal(t, ErrCodeSeatTaken, errData.Code)
}

func TestSitRejectedWhenTableFull(t *testing.T) {
	_, url := testServer(t, func(c *Config) {
		c.Server.MaxPlayersPerTable = 2
		// Keep the table from dealing while the third player tries.
		c.Server.MinPlayersToStart = 9
	})

	for i, id := range []string{"alice", "bob"} {
		conn := dial(t, url)
		attach(t, conn, id)
		sendCmd(t, conn, CmdJoinTable, "j", JoinTableData{TableID: "main"})
		readUntil(t, conn, EventTableSnapshot)
		sendCmd(t, conn, CmdSit, "s", SitData{Seat: i, BuyIn: 500})
		readUntil(t, conn, EventTableSnapshot)
	}

	// The ring has open seats but the configured cap is reached.
	late := dial(t, url)
	attach(t, late, "carol")
	sendCmd(t, late, CmdJoinTable, "j", JoinTableData{TableID: "main"})
	readUntil(t, late, EventTableSnapshot)
	sendCmd(t, late, CmdSit, "s", SitData{Seat: 5, BuyIn: 500})
	msg := readUntil(t, late, EventError)
	var errData ErrorData
	decodeData(t, msg, &errData)
	assert.Equal(t, ErrCodeSeatingFailed, errData.Code)
}

// Seats is sugar for assertions on the wrapped snapshot.
func (d *SnapshotData) Seats() []engine.SeatSnapshot {
	return d.Snapshot.Seats
}

func TestHandStartsAndPromptsActor(t *testing.T) {
	_, url := testServer(t)

	alice := dial(t, url)
	attach(t, alice, "alice")
	sendCmd(t, alice, CmdJoinTable, "j", JoinTableData{TableID: "main"})
	readUntil(t, alice, EventTableSnapshot)
	sendCmd(t, alice, CmdSit, "s", SitData{Seat: 0, BuyIn: 1000})

	bob := dial(t, url)
	attach(t, bob, "bob")
	sendCmd(t, bob, CmdJoinTable, "j", JoinTableData{TableID: "main"})
	readUntil(t, bob, EventTableSnapshot)
	sendCmd(t, bob, CmdSit, "s", SitData{Seat: 1, BuyIn: 1000})

	// Both seated: the game-start countdown is mirrored to clients, then
	// the hand deals and the actor is prompted.
	countdown := readUntil(t, alice, EventCountdownStart)
	var cd CountdownData
	decodeData(t, countdown, &cd)

	handStart := readUntil(t, alice, EventHandStart)
	var hs HandStartData
	decodeData(t, handStart, &hs)
	assert.Equal(t, int64(1), hs.HandNum)
	assert.Len(t, hs.Commitment, 64, "hex sha256 of the shuffled deck")

	prompt := readUntil(t, alice, EventActionPrompt)
	var pd ActionPromptData
	decodeData(t, prompt, &pd)
	assert.Contains(t, []int{0, 1}, pd.Seat)
	assert.NotEmpty(t, pd.Actions.Actions)
	assert.Greater(t, pd.Deadline, time.Now().UnixMilli())

	// Each player sees their own hole cards and not the opponent's.
	snap := readUntil(t, alice, EventTableSnapshot)
	var sd SnapshotData
	decodeData(t, snap, &sd)
	require.Equal(t, engine.PhasePreflop, sd.Snapshot.Phase)
	assert.Len(t, sd.Seats()[0].Hole, 2)
	assert.Empty(t, sd.Seats()[1].Hole)

	// An out-of-turn action is rejected with a specific code.
	offTurn := bob
	if pd.Seat == 1 {
		offTurn = alice
	}
	sendCmd(t, offTurn, CmdAction, "a", ActionData{Action: "CHECK"})
	errMsg := readUntil(t, offTurn, EventError)
	var errData ErrorData
	decodeData(t, errMsg, &errData)
	assert.Equal(t, ErrCodeActionFailed, errData.Code)
}

func TestDerivedTableEvents(t *testing.T) {
	logger := log.New(io.Discard)
	tbl := newTable("t1", "t1", logger, NewMetrics())
	base := engine.NewTable("t1", 5, 10, 0, 100, 2000)
	cfg := loop.Config{ActionTimeout: 15 * time.Second, GameStartCountdown: time.Second, MinPlayers: 2}
	l := loop.New(base, cfg, quartz.NewReal(), eventlog.NewMemory(0), tbl, logger)
	tbl.loop = l
	l.Start(context.Background())
	t.Cleanup(l.Stop)
	ctx := context.Background()

	require.NoError(t, l.Do(ctx, engine.PlayerJoin{Seat: 0, PlayerID: "A", BuyIn: 1000}))
	msg := tbl.derivedEvent("player_joined")
	require.NotNil(t, msg)
	assert.Equal(t, EventPlayerJoined, msg.Type, "join between hands announces directly")

	require.NoError(t, l.Do(ctx, engine.PlayerJoin{Seat: 1, PlayerID: "B", BuyIn: 1000}))
	require.NoError(t, l.Do(ctx, engine.StartHand{HandNum: 1, At: 1700000000000, Suffix: "aaaaaaaaa"}))
	require.Equal(t, engine.PhasePreflop, l.Table().Phase)

	// A seat claimed mid-hand holds chips but no cards until the next
	// deal; the join is announced as waiting.
	require.NoError(t, l.Do(ctx, engine.PlayerJoin{Seat: 4, PlayerID: "C", BuyIn: 1000}))
	msg = tbl.derivedEvent("player_joined")
	require.NotNil(t, msg)
	require.Equal(t, EventPlayerWaiting, msg.Type)
	var waiting WaitingData
	require.NoError(t, json.Unmarshal(msg.Data, &waiting))
	assert.Equal(t, []int{4}, waiting.Seats)

	// Showdown announces the reveal order: in-hand seats clockwise from
	// one past the button.
	msg = tbl.derivedEvent("showdown")
	require.NotNil(t, msg)
	require.Equal(t, EventShowdown, msg.Type)
	var sd ShowdownData
	require.NoError(t, json.Unmarshal(msg.Data, &sd))
	assert.Equal(t, []int{1, 0}, sd.RevealOrder, "button 0 reveals last heads-up")
}

func TestUnknownCommandAndBadJSON(t *testing.T) {
	_, url := testServer(t)
	conn := dial(t, url)

	sendCmd(t, conn, MessageType("DANCE"), "c1", nil)
	msg := readUntil(t, conn, EventError)
	var errData ErrorData
	decodeData(t, msg, &errData)
	assert.Equal(t, ErrCodeUnknownCommand, errData.Code)
	assert.Equal(t, "c1", msg.CmdID)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg = readUntil(t, conn, EventError)
	decodeData(t, msg, &errData)
	assert.Equal(t, ErrCodeBadJSON, errData.Code)
}

func TestCreateTable(t *testing.T) {
	s, url := testServer(t)
	conn := dial(t, url)
	attach(t, conn, "alice")

	sendCmd(t, conn, CmdCreateTable, "c1", CreateTableData{Name: "deep", BigBlind: 50})
	msg := readUntil(t, conn, EventTableCreated)
	var info TableInfo
	decodeData(t, msg, &info)
	assert.Equal(t, "deep", info.Name)
	assert.Equal(t, 25, info.SmallBlind)
	assert.Equal(t, 50, info.BigBlind)

	require.NotNil(t, s.GetTable(info.ID))
	assert.Len(t, s.ListTables(), 2)
}

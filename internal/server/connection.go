package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/feltd/feltd/internal/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one client WebSocket. Outbound frames go through a
// buffered send channel; a client that cannot drain it gets closed
// rather than stalling table broadcasts.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	logger    *log.Logger
	server    *Server
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	playerID  string
	tableID   string
}

// NewConnection creates a connection wrapper. Call Start to run the pumps.
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		server: server,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down and detaches it from its table.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
		c.server.dropConnection(c)
	})
	return err
}

// SendMessage queues a message for the client. A full send buffer closes
// the connection.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player.
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// Player returns the attached player id, empty if unattached.
func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table.
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// TableID returns the subscribed table, empty if none.
func (c *Connection) TableID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("", ErrCodeBadJSON, "failed to parse message")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.Player())
	c.server.metrics.CommandsTotal.WithLabelValues(string(msg.Type)).Inc()

	switch msg.Type {
	case CmdAttach:
		var data AttachData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.CmdID, ErrCodeBadJSON, "failed to parse attach data")
			return
		}
		c.handleAttach(msg.CmdID, data)

	case CmdListTables:
		c.reply(msg.CmdID, NewMessage(EventTableList, TableListData{Tables: c.server.ListTables()}))

	case CmdCreateTable:
		var data CreateTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.CmdID, ErrCodeBadJSON, "failed to parse create table data")
			return
		}
		c.handleCreateTable(msg.CmdID, data)

	case CmdJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.CmdID, ErrCodeBadJSON, "failed to parse join table data")
			return
		}
		c.handleJoinTable(msg.CmdID, data)

	case CmdSit:
		var data SitData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.CmdID, ErrCodeBadJSON, "failed to parse sit data")
			return
		}
		c.handleSit(msg.CmdID, data)

	case CmdLeave:
		c.withSeatedTable(msg.CmdID, func(t *Table, playerID string) {
			if err := t.loop.Do(c.ctx, engine.PlayerLeave{PlayerID: playerID}); err != nil {
				c.sendError(msg.CmdID, ErrCodeSeatingFailed, "not seated at this table")
			}
		})

	case CmdSitOut:
		c.withSeatedTable(msg.CmdID, func(t *Table, playerID string) {
			_ = t.loop.Do(c.ctx, engine.PlayerSitOut{PlayerID: playerID, Reason: "voluntary"})
		})

	case CmdSitIn:
		c.withSeatedTable(msg.CmdID, func(t *Table, playerID string) {
			_ = t.loop.Do(c.ctx, engine.PlayerSitIn{PlayerID: playerID})
		})

	case CmdAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.CmdID, ErrCodeBadJSON, "failed to parse action data")
			return
		}
		c.handleAction(msg.CmdID, data)

	case CmdRebuy:
		var data RebuyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.CmdID, ErrCodeBadJSON, "failed to parse rebuy data")
			return
		}
		c.withSeatedTable(msg.CmdID, func(t *Table, playerID string) {
			if err := t.loop.Do(c.ctx, engine.Rebuy{PlayerID: playerID, Amount: data.Amount}); err != nil {
				c.sendError(msg.CmdID, ErrCodeRebuyFailed, "rebuy exceeds the table maximum")
			}
		})

	default:
		c.sendError(msg.CmdID, ErrCodeUnknownCommand, "unknown message type: "+string(msg.Type))
	}
}

func (c *Connection) handleAttach(cmdID string, data AttachData) {
	if data.UserID == "" {
		c.sendError(cmdID, ErrCodeBadJSON, "userId required")
		return
	}
	c.SetPlayer(data.UserID)
	c.logger.Info("player attached", "player", data.UserID)
	c.reply(cmdID, NewMessage(EventSession, SessionData{
		SessionID: uuid.NewString(),
		PlayerID:  data.UserID,
	}))
}

func (c *Connection) handleCreateTable(cmdID string, data CreateTableData) {
	info, err := c.server.CreateTable(data)
	if err != nil {
		c.sendError(cmdID, ErrCodeSeatingFailed, err.Error())
		return
	}
	c.reply(cmdID, NewMessage(EventTableCreated, info))
}

func (c *Connection) handleJoinTable(cmdID string, data JoinTableData) {
	table := c.server.GetTable(data.TableID)
	if table == nil {
		c.sendError(cmdID, ErrCodeNoSuchTable, "no table "+data.TableID)
		return
	}
	if prev := c.TableID(); prev != "" && prev != data.TableID {
		if old := c.server.GetTable(prev); old != nil {
			old.Unsubscribe(c)
		}
	}
	table.Subscribe(c)
	c.SetTable(data.TableID)
	c.reply(cmdID, NewMessage(EventTableSnapshot, SnapshotData{
		Reason:   "join",
		Snapshot: table.loop.Snapshot(c.Player()),
	}))
}

func (c *Connection) handleSit(cmdID string, data SitData) {
	playerID := c.Player()
	if data.PlayerID != "" {
		playerID = data.PlayerID
	}
	if playerID == "" {
		c.sendError(cmdID, ErrCodeNotAttached, "attach first")
		return
	}
	tableID := data.TableID
	if tableID == "" {
		tableID = c.TableID()
	}
	table := c.server.GetTable(tableID)
	if table == nil {
		c.sendError(cmdID, ErrCodeNoSuchTable, "no table "+tableID)
		return
	}

	// Pre-validate against the snapshot so the client gets a specific
	// code; the reducer re-checks authoritatively.
	tb := table.loop.Table()
	seated := 0
	for i := range tb.Seats {
		if tb.Seats[i].Occupied() {
			seated++
		}
	}
	maxSeated := c.server.config.Server.MaxPlayersPerTable
	switch {
	case data.Seat < 0 || data.Seat >= engine.NumSeats:
		c.sendError(cmdID, ErrCodeInvalidSeat, "seat out of range")
		return
	case tb.Seats[data.Seat].Occupied():
		c.sendError(cmdID, ErrCodeSeatTaken, "seat already taken")
		return
	case maxSeated > 0 && seated >= maxSeated:
		c.sendError(cmdID, ErrCodeSeatingFailed, "table is full")
		return
	case data.BuyIn < tb.BuyInMin || data.BuyIn > tb.BuyInMax:
		c.sendError(cmdID, ErrCodeInvalidBuyIn, "buy-in outside table limits")
		return
	}

	err := table.loop.Do(c.ctx, engine.PlayerJoin{
		Seat:     data.Seat,
		PlayerID: playerID,
		Nickname: playerID,
		BuyIn:    data.BuyIn,
	})
	if err != nil {
		c.sendError(cmdID, ErrCodeSeatingFailed, "could not take the seat")
		return
	}
	table.Subscribe(c)
	c.SetTable(tableID)
}

func (c *Connection) handleAction(cmdID string, data ActionData) {
	c.withSeatedTable(cmdID, func(t *Table, playerID string) {
		tb := t.loop.Table()
		seat := tb.SeatOf(playerID)
		if seat < 0 {
			c.sendError(cmdID, ErrCodeActionFailed, "not seated")
			return
		}
		actionType, ok := parseActionType(data.Action)
		if !ok {
			c.sendError(cmdID, ErrCodeActionFailed, "unknown action "+data.Action)
			return
		}
		err := t.loop.Do(c.ctx, engine.Action{Seat: seat, Type: actionType, Amount: data.Amount})
		if err != nil {
			c.sendError(cmdID, ErrCodeActionFailed, "action not allowed")
		}
	})
}

// withSeatedTable runs fn with the connection's table, requiring a prior
// attach and join.
func (c *Connection) withSeatedTable(cmdID string, fn func(t *Table, playerID string)) {
	playerID := c.Player()
	if playerID == "" {
		c.sendError(cmdID, ErrCodeNotAttached, "attach first")
		return
	}
	table := c.server.GetTable(c.TableID())
	if table == nil {
		c.sendError(cmdID, ErrCodeNoSuchTable, "join a table first")
		return
	}
	fn(table, playerID)
}

func (c *Connection) reply(cmdID string, msg *Message) {
	msg.CmdID = cmdID
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(cmdID, code, message string) {
	c.server.metrics.ErrorsTotal.WithLabelValues(code).Inc()
	msg := NewMessage(EventError, ErrorData{Code: code, Message: message})
	msg.CmdID = cmdID
	_ = c.SendMessage(msg)
}

func parseActionType(s string) (engine.ActionType, bool) {
	switch engine.ActionType(strings.ToUpper(s)) {
	case engine.ActionFold:
		return engine.ActionFold, true
	case engine.ActionCheck:
		return engine.ActionCheck, true
	case engine.ActionCall:
		return engine.ActionCall, true
	case engine.ActionBet:
		return engine.ActionBet, true
	case engine.ActionRaise:
		return engine.ActionRaise, true
	case engine.ActionAllIn:
		return engine.ActionAllIn, true
	}
	return "", false
}

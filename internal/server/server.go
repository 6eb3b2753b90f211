// Package server is the WebSocket boundary of the table engine. It owns
// the table registry (one event loop per table), translates client
// commands into engine events and fans loop notifications back out as
// per-viewer snapshots. All game decisions stay inside the loops; the
// server never touches table state directly.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/feltd/feltd/internal/engine"
	"github.com/feltd/feltd/internal/eventlog"
	"github.com/feltd/feltd/internal/loop"
)

// Server hosts the tables and their WebSocket clients.
type Server struct {
	config  *Config
	logger  *log.Logger
	clock   quartz.Clock
	store   eventlog.Log
	metrics *Metrics

	upgrader websocket.Upgrader
	httpSrv  *http.Server

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	mu     sync.RWMutex
	tables map[string]*Table
	conns  map[*Connection]struct{}
}

// New creates a server. The clock is injectable so tests can drive
// timers deterministically.
func New(config *Config, logger *log.Logger, clock quartz.Clock) (*Server, error) {
	var store eventlog.Log
	if path := config.Server.EventLogPath; path != "" {
		sqlite, err := eventlog.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		store = sqlite
	} else {
		store = eventlog.NewMemory(0)
	}

	s := &Server{
		config:  config,
		logger:  logger.WithPrefix("server"),
		clock:   clock,
		store:   store,
		metrics: NewMetrics(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		tables: make(map[string]*Table),
		conns:  make(map[*Connection]struct{}),
	}

	for _, tc := range config.Tables {
		if _, err := s.openTable(tc); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Start serves WebSocket, health and metrics endpoints until the context
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.httpSrv = &http.Server{
		Addr:              s.config.ListenAddr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-s.ctx.Done()
		s.shutdown()
	}()

	s.logger.Info("listening", "addr", s.config.ListenAddr())
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down. Safe to call whether or not Start ran.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
		return
	}
	s.shutdown()
}

// Handler builds the HTTP mux; exposed so tests can mount it on httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

func (s *Server) shutdown() {
	s.stopOnce.Do(s.doShutdown)
}

func (s *Server) doShutdown() {
	s.logger.Info("shutting down")

	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	tables := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}

	// Loop.Stop blocks until the goroutine drains; stop tables in
	// parallel so shutdown stays bounded with many tables open.
	var g errgroup.Group
	for _, t := range tables {
		t := t
		g.Go(func() error {
			t.loop.Stop()
			return nil
		})
	}
	_ = g.Wait()
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}
	_ = s.store.Close()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConnection(wsConn, s.logger, s)
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.metrics.ConnectionsActive.Inc()

	conn.Start()
}

// dropConnection unsubscribes a closed connection everywhere.
func (s *Server) dropConnection(c *Connection) {
	s.mu.Lock()
	if _, ok := s.conns[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.conns, c)
	s.mu.Unlock()
	s.metrics.ConnectionsActive.Dec()

	if table := s.GetTable(c.TableID()); table != nil {
		table.Unsubscribe(c)
	}
}

// GetTable returns the table by id, nil if unknown.
func (s *Server) GetTable(id string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[id]
}

// ListTables summarizes every open table.
func (s *Server) ListTables() []TableInfo {
	s.mu.RLock()
	tables := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		tables = append(tables, t)
	}
	s.mu.RUnlock()

	out := make([]TableInfo, 0, len(tables))
	for _, t := range tables {
		out = append(out, t.Info())
	}
	return out
}

// CreateTable opens a table at the requested stakes, falling back to the
// server defaults for unset fields.
func (s *Server) CreateTable(data CreateTableData) (TableInfo, error) {
	tc := TableConfig{
		Name:       data.Name,
		SmallBlind: data.SmallBlind,
		BigBlind:   data.BigBlind,
		Ante:       data.Ante,
		BuyInMin:   data.BuyInMin,
		BuyInMax:   data.BuyInMax,
	}
	if tc.Name == "" {
		return TableInfo{}, fmt.Errorf("table name required")
	}
	if tc.BigBlind == 0 {
		def := s.config.Tables[0]
		tc.SmallBlind, tc.BigBlind = def.SmallBlind, def.BigBlind
	}
	if tc.SmallBlind == 0 {
		tc.SmallBlind = tc.BigBlind / 2
	}
	if tc.BuyInMin == 0 {
		tc.BuyInMin = tc.BigBlind * 20
	}
	if tc.BuyInMax == 0 {
		tc.BuyInMax = tc.BigBlind * 200
	}

	table, err := s.openTable(tc)
	if err != nil {
		return TableInfo{}, err
	}
	return table.Info(), nil
}

// openTable builds the engine table, replays any persisted history and
// starts the loop. Named tables keep their name as id so a restart
// replays the same log; duplicates get a random id.
func (s *Server) openTable(tc TableConfig) (*Table, error) {
	id := tc.Name
	if id == "" || s.GetTable(id) != nil {
		id = uuid.NewString()[:8]
	}

	table := newTable(id, tc.Name, s.logger, s.metrics)
	base := engine.NewTable(id, tc.SmallBlind, tc.BigBlind, tc.Ante, tc.BuyInMin, tc.BuyInMax)

	history, err := s.store.Load(context.Background(), id)
	if err != nil {
		return nil, fmt.Errorf("load history for table %s: %w", id, err)
	}
	if len(history) > 0 {
		base = eventlog.Replay(base, history)
	}

	table.loop = loop.New(base, s.config.LoopConfig(), s.clock, s.store, table, s.logger)

	s.mu.Lock()
	s.tables[id] = table
	s.mu.Unlock()
	s.metrics.TablesOpen.Inc()

	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	table.loop.Start(ctx)
	s.logger.Info("table open", "table", id, "name", tc.Name,
		"stakes", fmt.Sprintf("%d/%d", tc.SmallBlind, tc.BigBlind))
	return table, nil
}

/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/partyseed/games/reconcile"
	"github.com/Seednode/partyseed/games/seed"
)

// StateMessage carries a full game state to websocket clients.
type StateMessage struct {
	Type  string          `json:"type"` // "state"
	Game  string          `json:"game"`
	Code  string          `json:"code"`
	State json.RawMessage `json:"state"`
}

// viewFunc rewrites a stored document into what one client may see.
type viewFunc func(doc json.RawMessage) (json.RawMessage, error)

// viewerFunc picks the view for a client connecting to code. An error refuses
// the connection.
type viewerFunc func(r *http.Request, code string) (viewFunc, error)

// project decodes a stored document as T and re-encodes fn's result.
func project[T, V any](fn func(T) V) viewFunc {
	return func(doc json.RawMessage) (json.RawMessage, error) {
		var state T
		if err := json.Unmarshal(doc, &state); err != nil {
			return nil, err
		}

		return json.Marshal(fn(state))
	}
}

type Client struct {
	conn *websocket.Conn
	send chan []byte
	view viewFunc
}

// Hub fans every new state of one session out to its websocket clients. It
// learns about new states from saves made through this server, and from a
// poller against the store for saves made anywhere else.
type Hub struct {
	game string
	code string

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	updates  chan []byte
	done     chan struct{}
	cancel   context.CancelFunc

	poller *reconcile.Poller[json.RawMessage]

	mu         sync.RWMutex
	lastActive time.Time
	last       []byte
}

func newHub(game, code string) *Hub {
	return &Hub{
		game:       game,
		code:       code,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		updates:    make(chan []byte, 8),
		done:       make(chan struct{}),
		lastActive: time.Now(),
	}
}

func (h *Hub) run(ctx context.Context, cfg *Config, st reconcile.Store) {
	defer close(h.done)

	h.poller = reconcile.NewPoller(st, h.code, reconcile.PollerConfig[json.RawMessage]{
		Interval: cfg.pollInterval,
		Equal: func(a, b json.RawMessage) bool {
			return bytes.Equal(a, b)
		},
		Logger: &cfg.logger,
	})

	if doc, err := reconcile.Load[json.RawMessage](ctx, st, h.code); err != nil {
		cfg.logger.Warn().Err(err).Str("game", h.game).Str("code", h.code).Msg("initial load failed")
	} else if doc != nil {
		h.last = *doc
		h.poller.Set(*doc)
	}

	go func() {
		_ = h.poller.Watch(ctx, func(doc json.RawMessage) {
			h.publish(doc)
		})
	}()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()

			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true
			last := h.last
			h.mu.Unlock()

			if last != nil {
				h.sendTo(c, last)
			}

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case doc := <-h.updates:
			h.mu.Lock()
			h.lastActive = time.Now()
			if bytes.Equal(doc, h.last) {
				h.mu.Unlock()
				continue
			}
			h.last = doc
			h.mu.Unlock()

			h.poller.Set(doc)
			h.broadcast(doc)
		}
	}
}

// encode wraps doc, as seen by c, in a StateMessage.
func (h *Hub) encode(c *Client, doc []byte) ([]byte, error) {
	state := json.RawMessage(doc)
	if c.view != nil {
		var err error
		if state, err = c.view(state); err != nil {
			return nil, err
		}
	}

	return json.Marshal(StateMessage{
		Type:  "state",
		Game:  h.game,
		Code:  h.code,
		State: state,
	})
}

// deliverLocked drops clients that cannot keep up. A document the client's
// view cannot read is skipped.
func (h *Hub) deliverLocked(c *Client, doc []byte) {
	msg, err := h.encode(c, doc)
	if err != nil {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) sendTo(c *Client, doc []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c] {
		h.deliverLocked(c, doc)
	}
}

func (h *Hub) broadcast(doc []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		h.deliverLocked(c, doc)
	}
}

// publish queues doc for broadcast unless the hub has already stopped.
func (h *Hub) publish(doc []byte) {
	select {
	case h.updates <- doc:
	case <-h.done:
	}
}

func (h *Hub) idleSince() (time.Time, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.lastActive, len(h.clients)
}

// closeAll disconnects all clients of this hub.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}
}

// GameManager holds one hub per active session code of a single game.
type GameManager struct {
	ctx         context.Context
	cfg         *Config
	game        string
	store       reconcile.Store
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration
}

func newGameManager(ctx context.Context, cfg *Config, game string, st reconcile.Store) *GameManager {
	gm := &GameManager{
		ctx:         ctx,
		cfg:         cfg,
		game:        game,
		store:       st,
		hubs:        make(map[string]*Hub),
		idleTimeout: cfg.sessionTimeout,
	}
	if gm.idleTimeout > 0 {
		go gm.reaperLoop()
	}
	return gm
}

func (gm *GameManager) getHub(code string) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[code]; ok {
		return hub
	}

	ctx, cancel := context.WithCancel(gm.ctx)

	hub := newHub(gm.game, code)
	hub.cancel = cancel
	gm.hubs[code] = hub
	go hub.run(ctx, gm.cfg, gm.store)

	logf(gm.cfg, "GAMES: Opened hub for %s/%s", gm.game, code)

	return hub
}

// notify pushes a freshly saved state to the session's hub, if one is open.
func (gm *GameManager) notify(code string, doc []byte) {
	gm.mu.Lock()
	hub, ok := gm.hubs[code]
	gm.mu.Unlock()

	if ok {
		hub.publish(doc)
	}
}

// newGameID draws codes until it finds one with no stored state and no open
// hub.
func (gm *GameManager) newGameID(ctx context.Context) (string, error) {
	for {
		code, err := seed.NewCode()
		if err != nil {
			return "", err
		}

		gm.mu.Lock()
		_, exists := gm.hubs[code]
		gm.mu.Unlock()
		if exists {
			continue
		}

		_, err = gm.store.Load(ctx, code)
		switch {
		case errors.Is(err, reconcile.ErrNoState):
			return code, nil
		case err != nil:
			return "", err
		}
	}
}

// reaperLoop periodically closes hubs with no clients that have been idle
// longer than idleTimeout. Their stored state is left alone.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-gm.ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-gm.idleTimeout)

		gm.mu.Lock()
		for code, hub := range gm.hubs {
			last, clients := hub.idleSince()

			if clients == 0 && last.Before(cutoff) {
				delete(gm.hubs, code)
				hub.cancel()
				logf(gm.cfg, "GAMES: Closed idle hub for %s/%s", gm.game, code)
			}
		}
		gm.mu.Unlock()
	}
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout: timeout,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// serveWS subscribes a websocket to the hub for :code. viewer decides what
// the client is shown of each state.
func serveWS(cfg *Config, gm *GameManager, viewer viewerFunc, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code, ok := codeParam(cfg, w, r, ps)
		if !ok {
			return
		}

		view, err := viewer(r, code)
		if err != nil {
			writeError(cfg, w, r, err, errs)
			return
		}

		hub := gm.getHub(code)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		// The server's read and write timeouts must not apply to the socket.
		_ = conn.NetConn().SetDeadline(time.Time{})

		client := &Client{
			conn: conn,
			send: make(chan []byte, 8),
			view: view,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		logf(cfg, "SERVE: Websocket for %s/%s to %s", gm.game, code, realIP(r))

		go client.writePump()
		client.readPump(hub)
	}
}

// readPump only watches for the connection closing; clients act through the
// HTTP endpoints.
func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

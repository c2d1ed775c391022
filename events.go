package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

// Event types pushed to connected session clients.
const (
	eventPlayerJoined    = "player_joined"
	eventPlayerRemoved   = "player_removed"
	eventGameStarted     = "game_started"
	eventGameEnded       = "game_ended"
	eventActionProcessed = "action_processed"
	eventStateUpdated    = "state_updated"
	eventSessionDeleted  = "session_deleted"
)

// sessionEvent is the envelope broadcast over a session's event stream
// after a successful mutation.
type sessionEvent struct {
	Type      string         `json:"type"`
	SessionID int            `json:"session_id"`
	Player    *Player        `json:"player,omitempty"`
	Roster    []Player       `json:"session_players,omitempty"`
	GameState map[string]any `json:"game_state,omitempty"`
}

type eventClient struct {
	conn *websocket.Conn
	send chan any
}

// broadcaster fans session events out to connected WebSocket clients.
// Clients with a full send buffer are dropped rather than allowed to
// stall a broadcast; publishing never blocks a mutating request.
type broadcaster struct {
	mu      sync.Mutex
	clients map[*eventClient]bool
	closed  bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{
		clients: make(map[*eventClient]bool),
	}
}

func (b *broadcaster) add(c *eventClient) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	b.clients[c] = true

	return true
}

func (b *broadcaster) remove(c *eventClient) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
}

func (b *broadcaster) publish(msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for client := range b.clients {
		select {
		case client.send <- msg:
		default:
			delete(b.clients, client)
			close(client.send)
		}
	}
}

// closeAll disconnects every client (session deleted or reaped). Send
// channels are closed rather than the connections, so each write pump
// drains any final buffered event before hanging up.
func (b *broadcaster) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for client := range b.clients {
		close(client.send)
		delete(b.clients, client)
	}
}

func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(cfg, origin)
		},
	}
}

// serveSessionEvents upgrades the connection and streams session events
// until the client disconnects or the session goes away.
func serveSessionEvents(cfg *Config, reg *Registry) httprouter.Handle {
	upgrader := newUpgrader(cfg)

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		session, err := reg.Resolve(ps.ByName("key"))
		if err != nil {
			writeDetail(cfg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "EVENTS: Upgrade failed for session %d: %v", session.ID(), err)
			return
		}

		client := &eventClient{
			conn: conn,
			send: make(chan any, 8),
		}

		if !session.events.add(client) {
			_ = conn.Close()
			return
		}

		logf(cfg, "EVENTS: Client %s subscribed to session %d", realIP(r), session.ID())

		go client.writePump()
		client.readPump(session.events)
	}
}

// readPump discards inbound frames; the event stream is one-way. It
// exists to detect disconnects and process control frames.
func (c *eventClient) readPump(b *broadcaster) {
	defer func() {
		b.remove(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *eventClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one live socket and the player identity attached to it.
type Client struct {
	conn     *websocket.Conn
	playerID string
	name     string

	mu       sync.Mutex
	send     chan any
	closed   bool
	lastSeen time.Time
}

func newClient(conn *websocket.Conn, playerID, name string) *Client {
	return &Client{
		conn:     conn,
		playerID: playerID,
		name:     name,
		send:     make(chan any, 16),
		lastSeen: time.Now(),
	}
}

// trySend queues a message without blocking. A full buffer or a closed
// client reports false; callers treat that the same as a dead socket.
func (c *Client) trySend(msg any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastSeen = time.Now()
	c.mu.Unlock()
}

// idleFor reports how long ago the socket last showed life (a read or
// a pong).
func (c *Client) idleFor() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return time.Since(c.lastSeen)
}

// shutdown closes the send channel exactly once, which ends writePump.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump owns all writes to the socket, including liveness pings.
func (c *Client) writePump(interval time.Duration) {
	pingPeriod := interval * 9 / 10
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(interval))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			err := c.conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(interval))
			if err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound messages and routes them to the engine. A
// read error, a missed pong, and a normal close all exit through the
// same disconnect path.
func (c *Client) readPump(e *Engine) {
	interval := e.cfg.heartbeatInterval

	defer func() {
		e.handleDisconnect(c)
		c.shutdown()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(16 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(interval))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(interval))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.touch()
		_ = c.conn.SetReadDeadline(time.Now().Add(interval))

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("dropping malformed message from %q: %v", c.playerID, err)
			continue
		}

		e.dispatch(c, msg)
	}
}

// Registry tracks every live socket by player id. A second socket for
// the same player replaces the first.
type Registry struct {
	mu       sync.Mutex
	byPlayer map[string]*Client
}

func newRegistry() *Registry {
	return &Registry{
		byPlayer: make(map[string]*Client),
	}
}

func (r *Registry) add(c *Client) {
	r.mu.Lock()
	old := r.byPlayer[c.playerID]
	r.byPlayer[c.playerID] = c
	r.mu.Unlock()

	if old != nil && old != c {
		old.shutdown()
		_ = old.conn.Close()
	}
}

func (r *Registry) remove(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byPlayer[c.playerID] == c {
		delete(r.byPlayer, c.playerID)
	}
}

// rebind moves a client to a new player id after a successful
// reconnect claim.
func (r *Registry) rebind(c *Client, playerID string) {
	r.mu.Lock()
	if r.byPlayer[c.playerID] == c {
		delete(r.byPlayer, c.playerID)
	}
	old := r.byPlayer[playerID]
	r.byPlayer[playerID] = c
	r.mu.Unlock()

	if old != nil && old != c {
		old.shutdown()
		_ = old.conn.Close()
	}
}

func (r *Registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byPlayer)
}

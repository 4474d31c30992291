// Package realtime pushes events to connected websocket clients.
//
// Every authenticated connection joins the room named after its user id, so
// emitting to a user means emitting to that room. A user may hold several
// connections at once (tabs, devices) and each receives the event.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dias221467/habit_tracker/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultWriteWait = 10 * time.Second

var ErrHubClosed = errors.New("realtime hub closed")

// Emitter delivers an event to every connection of a channel.
// Delivering to a channel with no connections is not an error.
type Emitter interface {
	Emit(channel, event string, payload any) error
}

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Frame is the JSON text frame sent to clients.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeFrame marshals an event and its payload into a client frame.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// Client is a single connection registered in a room.
type Client struct {
	room string
	conn Conn
	mu   sync.Mutex
}

// Room returns the channel the client listens on.
func (c *Client) Room() string {
	return c.room
}

func (c *Client) write(msg []byte, wait time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub tracks the connections of this instance, grouped by room.
type Hub struct {
	mu        sync.RWMutex
	rooms     map[string]map[*Client]struct{}
	writeWait time.Duration
	closed    bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:     make(map[string]map[*Client]struct{}),
		writeWait: defaultWriteWait,
	}
}

// Join registers conn in room.
func (h *Hub) Join(room string, conn Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	client := &Client{room: room, conn: conn}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}

	logger.Log.WithFields(logrus.Fields{
		"room":        room,
		"connections": len(h.rooms[room]),
	}).Debug("Client joined room")
	return client, nil
}

// Leave unregisters the client and closes its connection. Calling it twice is safe.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.room]
	if ok {
		if _, member := clients[c]; !member {
			ok = false
		}
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, c.room)
		}
	}
	h.mu.Unlock()

	if ok {
		_ = c.conn.Close()
	}
}

// RoomSize returns the number of connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit encodes the event and delivers it to the room named channel.
func (h *Hub) Emit(channel, event string, payload any) error {
	msg, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	return h.Deliver(channel, msg)
}

// Deliver writes an encoded frame to every connection of room. Connections that fail
// to accept the write are dropped; the joined write errors are returned.
func (h *Hub) Deliver(room string, msg []byte) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	var errs []error
	for _, c := range clients {
		if err := c.write(msg, h.writeWait); err != nil {
			logger.Log.WithError(err).WithField("room", room).Warn("Dropping websocket client after failed write")
			h.Leave(c)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close disconnects every client. Later joins and emits fail with ErrHubClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	rooms := h.rooms
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, clients := range rooms {
		for c := range clients {
			_ = c.conn.Close()
		}
	}
}

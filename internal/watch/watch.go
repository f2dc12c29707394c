// Package watch implements the opt-in local event hub of SPEC_FULL.md
// §D: a gorilla/websocket broadcaster. The CLI commands publish to it
// through Notify (POST /publish): update_applied after a successful
// update or alert, deadlock_warning when status escalates a deadlock.
// The lock event types are defined but nothing publishes them; the
// persister and lock manager never publish. Adapted from the teacher's
// internal/ws/broadcast.go and protocol.go — the client/send-channel
// shape and the sequenced broadcast are kept, repointed at planloop's
// own event envelope instead of session/gamification payloads.
package watch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// EventType classifies a published Event.
type EventType string

const (
	EventUpdateApplied   EventType = "update_applied"
	EventLockAcquired    EventType = "lock_acquired"
	EventLockReleased    EventType = "lock_released"
	EventDeadlockWarning EventType = "deadlock_warning"
)

// Event is the envelope every subscriber receives: {type, seq, payload}
// JSON lines, per SPEC_FULL.md §D.
type Event struct {
	Type    EventType   `json:"type"`
	Seq     uint64      `json:"seq"`
	Payload interface{} `json:"payload"`
}

// UpdateAppliedPayload accompanies EventUpdateApplied.
type UpdateAppliedPayload struct {
	Session string `json:"session"`
	Version int    `json:"version"`
}

// LockPayload accompanies EventLockAcquired/EventLockReleased.
type LockPayload struct {
	Session string `json:"session"`
	Agent   string `json:"agent"`
}

// DeadlockPayload accompanies EventDeadlockWarning.
type DeadlockPayload struct {
	Session string `json:"session"`
	SignalID string `json:"signal_id"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func newClient(conn *websocket.Conn) *client {
	c := &client{conn: conn, send: make(chan []byte, 64)}
	go c.writePump()
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *client) close() {
	close(c.send)
}

// Hub broadcasts Events to every connected subscriber, throttling none of
// them — unlike the teacher's snapshot/delta coalescing, planloop's event
// volume is low (one message per successful mutation) so every event is
// sent immediately.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	maxConns int
	seq      atomic.Uint64
}

// NewHub builds a Hub that rejects new connections once maxConns is
// reached. maxConns <= 0 means unlimited.
func NewHub(maxConns int) *Hub {
	return &Hub{clients: make(map[*client]bool), maxConns: maxConns}
}

// ErrTooManyConnections is returned by AddClient once maxConns is reached.
var ErrTooManyConnections = errors.New("too many watch connections")

// AddClient upgrades conn into a tracked subscriber.
func (h *Hub) AddClient(conn *websocket.Conn) (*client, error) {
	h.mu.Lock()
	if h.maxConns > 0 && len(h.clients) >= h.maxConns {
		h.mu.Unlock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"))
		conn.Close()
		return nil, ErrTooManyConnections
	}
	c := newClient(conn)
	h.clients[c] = true
	h.mu.Unlock()
	return c, nil
}

// RemoveClient disconnects and forgets a subscriber.
func (h *Hub) RemoveClient(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish broadcasts an event of the given type and payload to every
// connected subscriber, stamping a monotonic sequence number.
func (h *Hub) Publish(eventType EventType, payload interface{}) {
	evt := Event{Type: eventType, Seq: h.seq.Add(1), Payload: payload}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("watch: marshal event: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			log.Printf("watch: client too slow, disconnecting")
			h.RemoveClient(c)
		}
	}
}

// upgrader has no origin restriction: the hub only ever binds to
// localhost per config.WatchConfig.Host's default, per SPEC_FULL.md §D.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeHTTP upgrades incoming requests to WebSocket subscribers on any
// path but POST /publish, which instead lets a separate planloop process
// (a CLI invocation sharing no memory with the running hub) inject an
// event for rebroadcast — mirroring the teacher's Server.handleWS with one
// addition, since here the publishers and the hub are different processes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == "/publish" {
		h.handlePublish(w, r)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("watch: upgrade: %v", err)
		return
	}

	c, err := h.AddClient(conn)
	if err != nil {
		return
	}

	go func() {
		defer h.RemoveClient(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) handlePublish(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var in struct {
		Type    EventType       `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, fmt.Sprintf("decode publish body: %v", err), http.StatusBadRequest)
		return
	}
	h.Publish(in.Type, in.Payload)
	w.WriteHeader(http.StatusAccepted)
}

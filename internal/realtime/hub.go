// Package realtime pushes reaction and comment changes to visitors who
// have a photo open. Writes happen over plain HTTP; the websocket is
// receive-only for the browser.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"schoolarchives/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Event types.
const (
	EventReactions      = "reactions"
	EventCommentAdded   = "comment.added"
	EventCommentDeleted = "comment.deleted"
)

// Event is one message sent to the watchers of a photo.
type Event struct {
	Type      string                `json:"type"`
	PhotoID   uuid.UUID             `json:"photo_id"`
	Reactions models.ReactionCounts `json:"reactions,omitempty"`
	Comment   *models.PhotoComment  `json:"comment,omitempty"`
	CommentID *uuid.UUID            `json:"comment_id,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
}

type client struct {
	photoID uuid.UUID
	conn    *websocket.Conn
	send    chan []byte
}

// Hub fans events out to the clients watching each photo. Run must be
// started before ServeWS is used.
type Hub struct {
	upgrader   websocket.Upgrader
	register   chan *client
	unregister chan *client
	broadcast  chan Event
	done       chan struct{}

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*client]struct{}
}

// NewHub creates an idle hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Event, 256),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then
// closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					close(c.send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*client]struct{})
			h.mu.Unlock()
			close(h.done)
			return

		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.photoID] == nil {
				h.clients[c.photoID] = make(map[*client]struct{})
			}
			h.clients[c.photoID][c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			payload, err := json.Marshal(ev)
			if err != nil {
				slog.Error("encode realtime event", "type", ev.Type, "error", err)
				continue
			}
			h.mu.Lock()
			for c := range h.clients[ev.PhotoID] {
				select {
				case c.send <- payload:
				default:
					// Slow reader; drop it rather than block the hub.
					h.remove(c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove must be called with mu held.
func (h *Hub) remove(c *client) {
	set, ok := h.clients[c.photoID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.photoID)
	}
}

// Publish queues ev for delivery. It never blocks a request: when the
// queue is full the event is dropped and logged.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- ev:
	default:
		slog.Warn("realtime queue full, event dropped", "type", ev.Type, "photo_id", ev.PhotoID)
	}
}

// Watchers returns how many clients follow photoID.
func (h *Hub) Watchers(photoID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[photoID])
}

// ServeWS upgrades the request and subscribes it to photoID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, photoID uuid.UUID) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{photoID: photoID, conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump(h)
}

// readPump only keeps the connection alive; inbound messages are ignored.
func (c *client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket closed", "photo_id", c.photoID, "error", err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

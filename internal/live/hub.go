// Package live streams vote tallies to websocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"moral-torture-machine/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
	broadcastQueue = 256
)

// Client is one websocket subscriber. DilemmaID, when set, filters tallies.
type Client struct {
	ID        string
	DilemmaID string
	conn      *websocket.Conn
	send      chan []byte
}

type envelope struct {
	dilemmaID string
	payload   []byte
}

// Hub fans vote tallies out to subscribers.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	count      chan chan int
	done       chan struct{}
	running    atomic.Bool

	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates a hub. Requests from origins outside allowedOrigins are
// rejected; an empty list allows any origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, broadcastQueue),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		logger:     logger.Named("LiveHub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
		for id, c := range h.clients {
			close(c.send)
			delete(h.clients, id)
		}
		h.logger.Info("Live hub stopped")
	}()
	h.logger.Info("Live hub started")

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c.ID] = c
			h.logger.Debug("Subscriber registered", zap.String("client_id", c.ID), zap.String("dilemma_id", c.DilemmaID), zap.Int("subscribers", len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c.ID]; ok {
				delete(h.clients, c.ID)
				close(c.send)
				h.logger.Debug("Subscriber unregistered", zap.String("client_id", c.ID), zap.Int("subscribers", len(h.clients)))
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		case msg := <-h.broadcast:
			for id, c := range h.clients {
				if c.DilemmaID != "" && c.DilemmaID != msg.dilemmaID {
					continue
				}
				select {
				case c.send <- msg.payload:
				default:
					// A subscriber that cannot keep up is dropped.
					h.logger.Warn("Subscriber send buffer full, dropping", zap.String("client_id", id))
					delete(h.clients, id)
					close(c.send)
				}
			}
		}
	}
}

// Subscribers returns the current number of subscribers.
func (h *Hub) Subscribers() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
	case <-h.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.done:
		return 0
	}
}

// BroadcastTally queues tally for every matching subscriber. It never blocks
// the caller: when the hub is stopped or its queue is full the tally is dropped.
func (h *Hub) BroadcastTally(tally models.VoteTally) {
	if !h.running.Load() {
		return
	}
	payload, err := json.Marshal(tally)
	if err != nil {
		h.logger.Error("Failed to marshal tally", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- envelope{dilemmaID: tally.DilemmaID, payload: payload}:
	default:
		h.logger.Warn("Broadcast queue full, dropping tally", zap.String("dilemma_id", tally.DilemmaID))
	}
}

// ServeWS upgrades the request and subscribes the connection. The optional
// dilemmaId query parameter limits the stream to one dilemma.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !h.running.Load() {
		http.Error(w, "live updates unavailable", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}
	c := &Client{
		ID:        uuid.NewString(),
		DilemmaID: r.URL.Query().Get("dilemmaId"),
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	logger := h.logger.With(zap.String("client_id", c.ID))
	go c.writePump(logger)
	go c.readPump(h, logger)
}

func (c *Client) readPump(h *Hub, logger *zap.Logger) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
		// Subscribers only listen; anything they send is ignored.
	}
}

func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("Failed to write tally", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Package realtime pushes narrative events to connected WebSocket clients
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/realmkeeper/internal/model"
)

// Envelope types sent to clients
const (
	EnvelopeConnected = "connected"
	EnvelopeEvent     = "event"
)

// Envelope is the JSON frame written to every client
type Envelope struct {
	Type  string       `json:"type"`
	Event *model.Event `json:"event,omitempty"`
}

// Hub fans events out to clients. A client only receives events of its own
// tenant unless it is a super-admin.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.Event
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "realtime")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("realtime hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered",
				slog.String("account_id", string(client.principal.AccountID)),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				h.logger.Info("ws client unregistered",
					slog.String("account_id", string(client.principal.AccountID)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)),
					slog.Int("total_clients", clientCount))
			} else {
				h.mu.Unlock()
			}

		case event := <-h.broadcast:
			h.deliver(event)

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("realtime hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

func (h *Hub) deliver(event model.Event) {
	message, err := json.Marshal(Envelope{Type: EnvelopeEvent, Event: &event})
	if err != nil {
		h.logger.Error("ws failed to encode event", slog.String("event_id", string(event.ID)), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	sentCount := 0
	droppedCount := 0
	for client := range h.clients {
		if !client.principal.Owns(event.OwnerID) {
			continue
		}
		select {
		case client.send <- message:
			sentCount++
		default:
			droppedCount++
			h.logger.Warn("ws message dropped - client buffer full",
				slog.String("account_id", string(client.principal.AccountID)))
		}
	}
	h.mu.RUnlock()
	if droppedCount > 0 {
		h.logger.Warn("ws broadcast partial failure",
			slog.Int("sent", sentCount),
			slog.Int("dropped", droppedCount))
	}
}

// Register adds a client to the hub. Returns false if the hub is closed.
func (h *Hub) Register(client *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues an event for delivery without blocking the caller
func (h *Hub) Broadcast(event model.Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("ws broadcast dropped - hub buffer full", slog.String("event_id", string(event.ID)))
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

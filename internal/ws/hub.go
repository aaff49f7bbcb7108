package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// GameSession receives connection-level events from the hub. The round
// coordinator implements this, keeping all presence and vote mutation
// routed through one owner.
type GameSession interface {
	PlayerConnected(connID, username string)
	PlayerDisconnected(connID string)
	VoteSkipConn(connID string)
}

// Hub manages the set of live websocket clients and fans events out to
// all of them. Delivery is best-effort: a client whose buffer is full has
// the message dropped rather than stalling the rest of the room.
type Hub struct {
	game    GameSession
	clients map[*Client]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	// Channels for managing clients
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a hub. Attach the game session with AttachSession, then
// call Run in a goroutine to start the event loop.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "ws")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// AttachSession wires the game session the hub dispatches connection
// events to. The hub broadcasts for the coordinator and the coordinator
// consumes the hub's connection events, so the two are constructed first
// and tied together here, before Run.
func (h *Hub) AttachSession(game GameSession) {
	h.game = game
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("ws hub started")
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client connected",
				slog.String("conn_id", client.id),
				slog.Int("total_clients", clientCount))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				clientCount := len(h.clients)
				h.mu.Unlock()
				duration := time.Since(client.connectedAt)
				h.logger.Info("ws client disconnected",
					slog.String("conn_id", client.id),
					slog.Duration("connection_duration", duration),
					slog.Int("total_clients", clientCount))
				if h.game != nil {
					h.game.PlayerDisconnected(client.id)
				}
			} else {
				h.mu.Unlock()
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			droppedCount := 0
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					droppedCount++
				}
			}
			h.mu.RUnlock()
			if droppedCount > 0 {
				h.logger.Warn("ws broadcast partially dropped - client buffers full",
					slog.Int("dropped", droppedCount))
			}

		case <-h.done:
			h.mu.Lock()
			clientCount := len(h.clients)
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", clientCount))
			return
		}
	}
}

// Broadcast sends a named event to all clients. Implements the
// coordinator's Broadcaster.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("failed to marshal broadcast event",
			slog.String("event", event),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("ws broadcast dropped - hub buffer full",
			slog.String("event", event))
	}
}

// Close shuts down the hub. Safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

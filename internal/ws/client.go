package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound message size; clients only send tiny control messages
	maxMessageSize = 1024

	// Per-client outbound buffer
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Clients connect from the browser on whatever host serves the UI
		return true
	},
}

// Client is one websocket connection
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	connectedAt time.Time
	logger      *slog.Logger
}

// ServeWS upgrades an HTTP request to a websocket connection and attaches
// it to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	id := uuid.NewString()
	client := &Client{
		id:          id,
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
		logger:      h.logger.With(slog.String("conn_id", id)),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump reads client messages off the connection and dispatches them to
// the game session. It owns all reads; the connection is unregistered when
// it returns.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("ignoring malformed client message", slog.String("error", err.Error()))
			continue
		}

		if c.hub.game == nil {
			continue
		}

		switch msg.Event {
		case ClientEventRegisterUser:
			var username string
			if err := json.Unmarshal(msg.Data, &username); err != nil || username == "" {
				c.logger.Warn("ignoring registerUser with invalid payload")
				continue
			}
			c.hub.game.PlayerConnected(c.id, username)

		case ClientEventVoteSkip:
			c.hub.game.VoteSkipConn(c.id)

		default:
			c.logger.Warn("ignoring unknown client event", slog.String("event", msg.Event))
		}
	}
}

// writePump writes queued messages to the connection and keeps it alive
// with pings. It owns all writes.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

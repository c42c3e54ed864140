package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/speedtype/arena/internal/domain"
	"github.com/speedtype/arena/internal/protocol"
	"github.com/speedtype/arena/internal/service"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Open trust model, see the handshake contract
		return true
	},
}

// Client represents one WebSocket connection and the identity it declared
// at handshake time.
type Client struct {
	id       string
	userID   string
	username string

	hub     *Hub
	service *service.LeaderboardService
	conn    *websocket.Conn
	send    chan []byte
	logger  *slog.Logger
}

// NewClient creates a client for an upgraded connection.
func NewClient(hub *Hub, svc *service.LeaderboardService, conn *websocket.Conn, userID, username string, logger *slog.Logger) *Client {
	return &Client{
		id:       uuid.New().String(),
		userID:   userID,
		username: username,
		hub:      hub,
		service:  svc,
		conn:     conn,
		send:     make(chan []byte, 256),
		logger:   logger,
	}
}

// readPump pumps messages from the WebSocket connection to the service
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		msg, err := protocol.DecodeInbound(raw)
		if err != nil {
			// Malformed and unknown events are dropped, never answered.
			if errors.Is(err, domain.ErrUnknownEvent) {
				c.logger.Warn("unknown event", "client_id", c.id, "error", err)
			} else {
				c.logger.Warn("invalid message format", "client_id", c.id, "error", err)
			}
			continue
		}

		c.handleMessage(msg)
	}
}

// handleMessage dispatches one decoded client message.
func (c *Client) handleMessage(msg protocol.Inbound) {
	switch m := msg.(type) {
	case protocol.ResultEvent:
		sub := m.Submission
		// The connection's handshake identity wins over payload fields,
		// when present.
		if c.userID != "" && c.username != "" {
			sub.UserID = c.userID
			sub.Username = c.username
		}
		stats, err := c.service.SubmitResult(sub)
		if err != nil {
			// Dropped silently; already logged by the service.
			return
		}
		c.sendUserStats(stats)

	case protocol.LeaderboardRequest:
		c.sendLeaderboard(c.service.Leaderboard())

	case protocol.UserStatsRequest:
		stats, ok := c.service.UserStats(m.UserID)
		if !ok {
			// No records for this user: no reply at all.
			return
		}
		c.sendUserStats(stats)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// sendLeaderboard queues a leaderboard snapshot for this connection only.
func (c *Client) sendLeaderboard(entries []domain.UserAggregate) {
	frame, err := protocol.MarshalLeaderboard(entries)
	if err != nil {
		c.logger.Error("failed to marshal leaderboard", "error", err)
		return
	}
	c.queue(frame)
}

// sendUserStats queues a user-stats update for this connection only.
func (c *Client) sendUserStats(stats domain.UserAggregate) {
	frame, err := protocol.MarshalUserStats(stats)
	if err != nil {
		c.logger.Error("failed to marshal user stats", "error", err)
		return
	}
	c.queue(frame)
}

func (c *Client) queue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.logger.Warn("client buffer full, dropping frame", "client_id", c.id)
	}
}

// ServeWs upgrades an HTTP request and wires the connection into the hub.
// Identity travels as userId and username query parameters; connections
// without identity are accepted read-only.
func ServeWs(hub *Hub, svc *service.LeaderboardService, logger *slog.Logger, w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	username := r.URL.Query().Get("username")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	svc.RegisterConnection(userID, username)

	client := NewClient(hub, svc, conn, userID, username, logger)
	hub.Register(client)

	// Start client goroutines
	go client.writePump()
	go client.readPump()

	logger.Info("user connected", "client_id", client.id, "user_id", userID, "username", username)
}

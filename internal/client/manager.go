package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/speedtype/arena/internal/domain"
	"github.com/speedtype/arena/internal/protocol"
)

// Config holds connection-manager settings.
type Config struct {
	ServerURL        string
	ReconnectMinWait time.Duration
	ReconnectMaxWait time.Duration
}

// Manager owns at most one connection to the leaderboard service, keyed by
// the (userId, username) identity. It reconnects automatically with
// exponential backoff and drops sends while disconnected.
type Manager struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	userID    string
	username  string
	cancel    context.CancelFunc

	onLeaderboard func([]domain.UserAggregate)
	onUserStats   func(domain.UserAggregate)

	cfg    Config
	logger *slog.Logger
}

// NewManager creates a disconnected manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if cfg.ReconnectMinWait == 0 {
		cfg.ReconnectMinWait = time.Second
	}
	if cfg.ReconnectMaxWait == 0 {
		cfg.ReconnectMaxWait = 30 * time.Second
	}
	return &Manager{cfg: cfg, logger: logger}
}

// OnLeaderboard registers the leaderboard-update subscriber.
func (m *Manager) OnLeaderboard(fn func([]domain.UserAggregate)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLeaderboard = fn
}

// OnUserStats registers the user-stats-update subscriber.
func (m *Manager) OnUserStats(fn func(domain.UserAggregate)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUserStats = fn
}

// Connect opens a connection for the given identity. Connecting again with
// the same identity is a no-op; a changed identity tears the old connection
// down and redials.
func (m *Manager) Connect(userID, username string) {
	m.mu.Lock()
	if m.cancel != nil && m.userID == userID && m.username == username {
		m.mu.Unlock()
		return
	}
	if m.cancel != nil {
		m.teardownLocked()
	}
	m.userID = userID
	m.username = username

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.mu.Unlock()

	go m.runLoop(ctx, userID, username)
}

// Close releases the connection.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
}

// teardownLocked cancels the run loop and closes the socket. Callers hold
// the mutex.
func (m *Manager) teardownLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connected = false
}

// runLoop dials and reads until the context is cancelled, redialing with
// exponential backoff after transport errors.
func (m *Manager) runLoop(ctx context.Context, userID, username string) {
	wait := m.cfg.ReconnectMinWait
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := m.dial(ctx, userID, username)
		if err != nil {
			m.logger.Warn("dial failed, retrying", "error", err, "wait", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			wait *= 2
			if wait > m.cfg.ReconnectMaxWait {
				wait = m.cfg.ReconnectMaxWait
			}
			continue
		}

		m.mu.Lock()
		m.conn = conn
		m.connected = true
		m.mu.Unlock()
		m.logger.Info("connected", "user_id", userID, "username", username)
		wait = m.cfg.ReconnectMinWait

		m.readFrames(ctx, conn)

		m.mu.Lock()
		m.connected = false
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()
		conn.Close()
		m.logger.Info("disconnected", "user_id", userID)
	}
}

// dial opens the websocket with identity query parameters.
func (m *Manager) dial(ctx context.Context, userID, username string) (*websocket.Conn, error) {
	u, err := url.Parse(m.cfg.ServerURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("userId", userID)
	q.Set("username", username)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// readFrames consumes server frames until the connection breaks.
func (m *Manager) readFrames(ctx context.Context, conn *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			return
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		m.dispatch(raw)
	}
}

// dispatch decodes one server frame and forwards it to the subscribers.
func (m *Manager) dispatch(raw []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		m.logger.Warn("invalid server frame", "error", err)
		return
	}

	m.mu.Lock()
	onLeaderboard := m.onLeaderboard
	onUserStats := m.onUserStats
	m.mu.Unlock()

	switch env.Event {
	case protocol.EventLeaderboardUpdate:
		var entries []domain.UserAggregate
		if err := json.Unmarshal(env.Data, &entries); err != nil {
			m.logger.Warn("invalid leaderboard payload", "error", err)
			return
		}
		if onLeaderboard != nil {
			onLeaderboard(entries)
		}

	case protocol.EventUserStatsUpdate:
		var stats domain.UserAggregate
		if err := json.Unmarshal(env.Data, &stats); err != nil {
			m.logger.Warn("invalid user-stats payload", "error", err)
			return
		}
		if onUserStats != nil {
			onUserStats(stats)
		}

	default:
		m.logger.Debug("ignoring unknown server event", "event", env.Event)
	}
}

// IsConnected reports transport state.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// SendResult emits a round result. Dropped silently while disconnected.
func (m *Manager) SendResult(sub domain.ResultSubmission) {
	m.send(protocol.EventSpeedTestResult, sub)
}

// RequestLeaderboard asks for the current snapshot.
func (m *Manager) RequestLeaderboard() {
	m.send(protocol.EventRequestLeaderboard, nil)
}

// RequestUserStats asks for one user's aggregate.
func (m *Manager) RequestUserStats(userID string) {
	m.send(protocol.EventRequestUserStats, protocol.UserStatsRequest{UserID: userID})
}

func (m *Manager) send(event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected || m.conn == nil {
		m.logger.Debug("not connected, dropping send", "event", event)
		return
	}

	frame, err := protocol.Marshal(event, payload)
	if err != nil {
		m.logger.Error("failed to marshal frame", "event", event, "error", err)
		return
	}
	m.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := m.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		m.logger.Warn("write failed", "event", event, "error", err)
	}
}

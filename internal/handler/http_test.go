package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedtype/arena/internal/domain"
	"github.com/speedtype/arena/internal/protocol"
	"github.com/speedtype/arena/internal/service"
	"github.com/speedtype/arena/internal/store"
	ws "github.com/speedtype/arena/internal/websocket"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.New(clockwork.NewRealClock(), logger)

	hub := ws.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := service.NewLeaderboardService(st, logger)
	svc.SetHub(hub)

	srv := httptest.NewServer(NewHandler(svc, hub, logger).Router())
	t.Cleanup(srv.Close)
	return srv, st
}

func dialWs(t *testing.T, srv *httptest.Server, userID, username string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse("ws" + strings.TrimPrefix(srv.URL, "http") + "/ws")
	require.NoError(t, err)
	q := u.Query()
	if userID != "" {
		q.Set("userId", userID)
		q.Set("username", username)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	frame, err := protocol.Marshal(event, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

// readEvents reads n frames and indexes them by event name.
func readEvents(t *testing.T, conn *websocket.Conn, n int) map[string]json.RawMessage {
	t.Helper()
	events := make(map[string]json.RawMessage, n)
	for i := 0; i < n; i++ {
		env := readEnvelope(t, conn)
		events[env.Event] = env.Data
	}
	return events
}

func resultPayload(userID, username string, wpm, accuracy, totalErrors int, elapsed float64) domain.ResultSubmission {
	return domain.ResultSubmission{
		UserID:      userID,
		Username:    username,
		WPM:         wpm,
		Accuracy:    accuracy,
		TotalWords:  10,
		TotalErrors: totalErrors,
		TimeElapsed: elapsed,
		SentenceID:  1,
		Streak:      1,
	}
}

func TestColdStartSingleUser(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := dialWs(t, srv, "u1", "Alice")

	send(t, alice, protocol.EventRequestLeaderboard, nil)
	env := readEnvelope(t, alice)
	require.Equal(t, protocol.EventLeaderboardUpdate, env.Event)
	var board []domain.UserAggregate
	require.NoError(t, json.Unmarshal(env.Data, &board))
	assert.Empty(t, board)

	send(t, alice, protocol.EventSpeedTestResult, resultPayload("u1", "Alice", 60, 95, 0, 10))

	// the accepted result yields both a broadcast and a personal reply
	events := readEvents(t, alice, 2)
	require.Contains(t, events, protocol.EventLeaderboardUpdate)
	require.Contains(t, events, protocol.EventUserStatsUpdate)

	require.NoError(t, json.Unmarshal(events[protocol.EventLeaderboardUpdate], &board))
	require.Len(t, board, 1)
	assert.Equal(t, "u1", board[0].UserID)
	assert.Equal(t, "Alice", board[0].Username)
	assert.Equal(t, 60.0, board[0].AverageWpm)
	assert.Equal(t, 95.0, board[0].AverageAccuracy)
	assert.Equal(t, 1, board[0].TotalTests)
	assert.Equal(t, 60, board[0].BestWpm)
	assert.Equal(t, 95, board[0].BestAccuracy)
}

func TestTwoUsersRankingBroadcast(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := dialWs(t, srv, "u1", "Alice")
	bob := dialWs(t, srv, "u2", "Bob")

	// a served request proves bob's registration completed, so he will see
	// broadcasts triggered by alice
	send(t, bob, protocol.EventRequestLeaderboard, nil)
	readEnvelope(t, bob)

	send(t, alice, protocol.EventSpeedTestResult, resultPayload("u1", "Alice", 60, 95, 0, 10))
	readEvents(t, alice, 2)
	// bob sees the broadcast triggered by alice's result
	env := readEnvelope(t, bob)
	require.Equal(t, protocol.EventLeaderboardUpdate, env.Event)

	send(t, bob, protocol.EventSpeedTestResult, resultPayload("u2", "Bob", 80, 90, 1, 7.5))
	events := readEvents(t, bob, 2)

	var board []domain.UserAggregate
	require.NoError(t, json.Unmarshal(events[protocol.EventLeaderboardUpdate], &board))
	require.Len(t, board, 2)
	assert.Equal(t, "Bob", board[0].Username)
	assert.Equal(t, 80.0, board[0].AverageWpm)
	assert.Equal(t, "Alice", board[1].Username)

	// alice receives the same snapshot
	env = readEnvelope(t, alice)
	require.Equal(t, protocol.EventLeaderboardUpdate, env.Event)
	var aliceView []domain.UserAggregate
	require.NoError(t, json.Unmarshal(env.Data, &aliceView))
	assert.Equal(t, board, aliceView)
}

func TestHandshakeIdentityStampsResults(t *testing.T) {
	srv, st := newTestServer(t)
	alice := dialWs(t, srv, "u1", "Alice")

	// payload claims a different identity; the connection's handshake wins
	send(t, alice, protocol.EventSpeedTestResult, resultPayload("someone-else", "Mallory", 60, 95, 0, 10))
	readEvents(t, alice, 2)

	_, ok := st.UserStats("someone-else")
	assert.False(t, ok)
	stats, ok := st.UserStats("u1")
	require.True(t, ok)
	assert.Equal(t, "Alice", stats.Username)
}

func TestMalformedResultDroppedSilently(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := dialWs(t, srv, "u1", "Alice")

	// accuracy out of range: dropped, no reply of any kind
	send(t, alice, protocol.EventSpeedTestResult, resultPayload("u1", "Alice", 60, 250, 0, 10))
	// unknown events are dropped too
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"event":"bogus"}`)))

	// the connection is still alive and serves requests
	send(t, alice, protocol.EventRequestLeaderboard, nil)
	env := readEnvelope(t, alice)
	require.Equal(t, protocol.EventLeaderboardUpdate, env.Event)
	var board []domain.UserAggregate
	require.NoError(t, json.Unmarshal(env.Data, &board))
	assert.Empty(t, board)
}

func TestUserStatsRequestForUnknownUserGetsNoReply(t *testing.T) {
	srv, _ := newTestServer(t)
	alice := dialWs(t, srv, "u1", "Alice")

	send(t, alice, protocol.EventRequestUserStats, protocol.UserStatsRequest{UserID: "ghost"})
	// absence of a reply: the next frame answers the follow-up request
	send(t, alice, protocol.EventRequestLeaderboard, nil)
	env := readEnvelope(t, alice)
	assert.Equal(t, protocol.EventLeaderboardUpdate, env.Event)
}

func TestAnonymousConnectionIsReadOnly(t *testing.T) {
	srv, st := newTestServer(t)
	watcher := dialWs(t, srv, "", "")

	send(t, watcher, protocol.EventRequestLeaderboard, nil)
	env := readEnvelope(t, watcher)
	assert.Equal(t, protocol.EventLeaderboardUpdate, env.Event)
	assert.Equal(t, 0, st.UserCount())
}

func TestRestEndpoints(t *testing.T) {
	srv, st := newTestServer(t)
	st.AppendResult(domain.ResultSubmission{
		UserID: "u1", Username: "Alice", WPM: 60, Accuracy: 95,
		TotalWords: 10, TimeElapsed: 10, SentenceID: 1, Streak: 1,
	})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/leaderboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    []domain.UserAggregate `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Alice", body.Data[0].Username)

	resp, err = http.Get(srv.URL + "/api/v1/users/nobody/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

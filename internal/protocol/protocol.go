package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/speedtype/arena/internal/domain"
)

// Event names carried on the wire. The set is closed: envelopes with any
// other name are rejected at decode time.
const (
	EventSpeedTestResult    = "speed-test-result"
	EventRequestLeaderboard = "request-leaderboard"
	EventRequestUserStats   = "request-user-stats"
	EventLeaderboardUpdate  = "leaderboard-update"
	EventUserStatsUpdate    = "user-stats-update"
)

// Envelope frames every message as a named event with a JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound is a decoded client-to-server message, one of ResultEvent,
// LeaderboardRequest or UserStatsRequest.
type Inbound interface{ inbound() }

// ResultEvent carries a finished round from a client.
type ResultEvent struct {
	Submission domain.ResultSubmission
}

// LeaderboardRequest asks for the current leaderboard snapshot.
type LeaderboardRequest struct{}

// UserStatsRequest asks for the aggregate of a single user.
type UserStatsRequest struct {
	UserID string `json:"userId"`
}

func (ResultEvent) inbound()        {}
func (LeaderboardRequest) inbound() {}
func (UserStatsRequest) inbound()   {}

// DecodeInbound parses a client frame into its typed variant.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parsing envelope: %w", err)
	}

	switch env.Event {
	case EventSpeedTestResult:
		var sub domain.ResultSubmission
		if err := json.Unmarshal(env.Data, &sub); err != nil {
			return nil, fmt.Errorf("parsing result payload: %w", err)
		}
		return ResultEvent{Submission: sub}, nil

	case EventRequestLeaderboard:
		return LeaderboardRequest{}, nil

	case EventRequestUserStats:
		var req UserStatsRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return nil, fmt.Errorf("parsing user-stats request: %w", err)
		}
		return req, nil

	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, env.Event)
	}
}

// Marshal frames a payload under an event name.
func Marshal(event string, payload any) ([]byte, error) {
	env := Envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s payload: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// MarshalLeaderboard frames a leaderboard snapshot for broadcast.
func MarshalLeaderboard(entries []domain.UserAggregate) ([]byte, error) {
	return Marshal(EventLeaderboardUpdate, entries)
}

// MarshalUserStats frames a single user's aggregate.
func MarshalUserStats(stats domain.UserAggregate) ([]byte, error) {
	return Marshal(EventUserStatsUpdate, stats)
}

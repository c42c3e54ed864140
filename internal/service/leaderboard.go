package service

import (
	"log/slog"

	"github.com/speedtype/arena/internal/domain"
	"github.com/speedtype/arena/internal/store"
)

// Broadcaster pushes leaderboard snapshots to every connected client.
type Broadcaster interface {
	BroadcastLeaderboard(entries []domain.UserAggregate)
}

// LeaderboardService provides business logic for contest operations
type LeaderboardService struct {
	store  *store.Store
	hub    Broadcaster
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(st *store.Store, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  st,
		logger: logger,
	}
}

// SetHub attaches the broadcast hub. Without a hub, accepted results are
// appended but not pushed.
func (s *LeaderboardService) SetHub(hub Broadcaster) {
	s.hub = hub
}

// RegisterConnection registers the user behind a new connection. Both
// identity fields must be present; otherwise the connection stays anonymous
// and registration is skipped.
func (s *LeaderboardService) RegisterConnection(userID, username string) {
	if userID == "" || username == "" {
		return
	}
	s.store.RegisterUser(userID, username)
}

// SubmitResult validates and appends one round result, then broadcasts the
// refreshed leaderboard. It returns the submitting user's updated aggregate
// for the user-stats reply to the originator.
func (s *LeaderboardService) SubmitResult(sub domain.ResultSubmission) (domain.UserAggregate, error) {
	if err := sub.Validate(); err != nil {
		s.logger.Warn("dropping malformed result",
			"user_id", sub.UserID,
			"wpm", sub.WPM,
			"accuracy", sub.Accuracy,
			"error", err,
		)
		return domain.UserAggregate{}, err
	}

	rec := s.store.AppendResult(sub)
	s.logger.Info("result recorded",
		"record_id", rec.ID,
		"username", rec.Username,
		"wpm", rec.WPM,
		"accuracy", rec.Accuracy,
		"streak", rec.Streak,
	)

	if s.hub != nil {
		s.hub.BroadcastLeaderboard(s.store.Leaderboard())
	}

	stats, _ := s.store.UserStats(sub.UserID)
	return stats, nil
}

// Leaderboard returns the current top-10 snapshot.
func (s *LeaderboardService) Leaderboard() []domain.UserAggregate {
	return s.store.Leaderboard()
}

// UserStats returns the aggregate for one user; false when the user has no
// records, in which case no reply is sent at all.
func (s *LeaderboardService) UserStats(userID string) (domain.UserAggregate, bool) {
	return s.store.UserStats(userID)
}

package store

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/speedtype/arena/internal/domain"
)

// MaxLeaderboardEntries bounds the broadcast leaderboard.
const MaxLeaderboardEntries = 10

// Store holds the authoritative in-memory state: the user registry and the
// append-only result log. Aggregates are recomputed from the log on every
// read so they can never drift from it.
type Store struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	records []domain.ResultRecord

	// userOrder tracks first-insertion order of userIds in the result log,
	// which breaks average-WPM ties deterministically.
	userOrder []string
	seen      map[string]bool

	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates an empty store.
func New(clock clockwork.Clock, logger *slog.Logger) *Store {
	return &Store{
		users:  make(map[string]domain.User),
		seen:   make(map[string]bool),
		clock:  clock,
		logger: logger,
	}
}

// RegisterUser records a user on first sight. Re-registration with the same
// id is a no-op; the original CreatedAt is preserved.
func (s *Store) RegisterUser(userID, username string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		return u
	}
	u := domain.User{
		ID:        userID,
		Username:  username,
		CreatedAt: s.clock.Now(),
	}
	s.users[userID] = u
	s.logger.Info("user registered", "user_id", userID, "username", username)
	return u
}

// GetUser returns the registered user for an id.
func (s *Store) GetUser(userID string) (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

// AppendResult assigns identity and timestamp to a validated submission and
// appends it to the log.
func (s *Store) AppendResult(sub domain.ResultSubmission) domain.ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := domain.ResultRecord{
		ID:          uuid.New().String(),
		UserID:      sub.UserID,
		Username:    sub.Username,
		WPM:         sub.WPM,
		Accuracy:    sub.Accuracy,
		TotalWords:  sub.TotalWords,
		TotalErrors: sub.TotalErrors,
		TimeElapsed: sub.TimeElapsed,
		SentenceID:  sub.SentenceID,
		Streak:      sub.Streak,
		CreatedAt:   s.clock.Now(),
	}
	s.records = append(s.records, rec)

	if !s.seen[rec.UserID] {
		s.seen[rec.UserID] = true
		s.userOrder = append(s.userOrder, rec.UserID)
	}
	return rec
}

// Leaderboard recomputes the top aggregates from the full log: group records
// by user in first-insertion order, sort by average WPM descending. The sort
// is stable, so ties keep insertion order.
func (s *Store) Leaderboard() []domain.UserAggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := make(map[string]*domain.UserAggregate, len(s.userOrder))
	for i := range s.records {
		rec := &s.records[i]
		agg, ok := byUser[rec.UserID]
		if !ok {
			agg = &domain.UserAggregate{UserID: rec.UserID, Username: rec.Username}
			byUser[rec.UserID] = agg
		}
		accumulate(agg, rec)
	}

	entries := make([]domain.UserAggregate, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		entries = append(entries, *byUser[id])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AverageWpm > entries[j].AverageWpm
	})

	if len(entries) > MaxLeaderboardEntries {
		entries = entries[:MaxLeaderboardEntries]
	}
	return entries
}

// UserStats aggregates a single user's records. The second return is false
// when the user has no records.
func (s *Store) UserStats(userID string) (domain.UserAggregate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := domain.UserAggregate{UserID: userID}
	found := false
	for i := range s.records {
		rec := &s.records[i]
		if rec.UserID != userID {
			continue
		}
		if !found {
			agg.Username = rec.Username
			found = true
		}
		accumulate(&agg, rec)
	}
	return agg, found
}

// accumulate folds one record into a running aggregate.
func accumulate(agg *domain.UserAggregate, rec *domain.ResultRecord) {
	n := float64(agg.TotalTests)
	agg.AverageWpm = (agg.AverageWpm*n + float64(rec.WPM)) / (n + 1)
	agg.AverageAccuracy = (agg.AverageAccuracy*n + float64(rec.Accuracy)) / (n + 1)
	agg.TotalTests++
	if rec.WPM > agg.BestWpm {
		agg.BestWpm = rec.WPM
	}
	if rec.Accuracy > agg.BestAccuracy {
		agg.BestAccuracy = rec.Accuracy
	}
	if rec.CreatedAt.After(agg.LastTestDate) {
		agg.LastTestDate = rec.CreatedAt
	}
}

// UserCount returns the number of registered users.
func (s *Store) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// ResultCount returns the size of the result log.
func (s *Store) ResultCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

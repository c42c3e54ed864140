package domain

import (
	"time"
)

// ResultSubmission represents one finished round as emitted by a client.
// The server assigns the record identity and timestamp on acceptance.
type ResultSubmission struct {
	UserID      string  `json:"userId"`
	Username    string  `json:"username"`
	WPM         int     `json:"wpm"`
	Accuracy    int     `json:"accuracy"`
	TotalWords  int     `json:"totalWords"`
	TotalErrors int     `json:"totalErrors"`
	TimeElapsed float64 `json:"timeElapsed"`
	SentenceID  int     `json:"sentenceId"`
	Streak      int     `json:"streak"`
}

// Validate checks a submission against the accepted value ranges.
// Submissions that fail validation are dropped, never answered.
func (s *ResultSubmission) Validate() error {
	if s.UserID == "" || s.Username == "" {
		return ErrInvalidSubmission
	}
	if s.WPM < 0 || s.Streak < 0 {
		return ErrInvalidSubmission
	}
	if s.Accuracy < 0 || s.Accuracy > 100 {
		return ErrInvalidSubmission
	}
	if s.TotalWords <= 0 {
		return ErrInvalidSubmission
	}
	if s.TotalErrors < 0 || s.TotalErrors > s.TotalWords {
		return ErrInvalidSubmission
	}
	if s.TimeElapsed <= 0 {
		return ErrInvalidSubmission
	}
	return nil
}

// ResultRecord is an accepted submission in the append-only result log.
// Records are immutable once appended.
type ResultRecord struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	WPM         int       `json:"wpm"`
	Accuracy    int       `json:"accuracy"`
	TotalWords  int       `json:"totalWords"`
	TotalErrors int       `json:"totalErrors"`
	TimeElapsed float64   `json:"timeElapsed"`
	SentenceID  int       `json:"sentenceId"`
	Streak      int       `json:"streak"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UserAggregate is the per-user derived view over the result log. Averages
// are real numbers and transmitted unrounded; clients format for display.
type UserAggregate struct {
	UserID          string    `json:"userId"`
	Username        string    `json:"username"`
	AverageWpm      float64   `json:"averageWpm"`
	AverageAccuracy float64   `json:"averageAccuracy"`
	TotalTests      int       `json:"totalTests"`
	BestWpm         int       `json:"bestWpm"`
	BestAccuracy    int       `json:"bestAccuracy"`
	LastTestDate    time.Time `json:"lastTestDate"`
}

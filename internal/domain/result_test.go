package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSubmission() ResultSubmission {
	return ResultSubmission{
		UserID:      "u1",
		Username:    "Alice",
		WPM:         60,
		Accuracy:    95,
		TotalWords:  10,
		TotalErrors: 0,
		TimeElapsed: 10,
		SentenceID:  1,
		Streak:      1,
	}
}

func TestValidateAcceptsWellFormed(t *testing.T) {
	sub := validSubmission()
	assert.NoError(t, sub.Validate())
}

func TestValidateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ResultSubmission)
	}{
		{"missing user id", func(s *ResultSubmission) { s.UserID = "" }},
		{"missing username", func(s *ResultSubmission) { s.Username = "" }},
		{"negative wpm", func(s *ResultSubmission) { s.WPM = -1 }},
		{"accuracy below range", func(s *ResultSubmission) { s.Accuracy = -5 }},
		{"accuracy above range", func(s *ResultSubmission) { s.Accuracy = 101 }},
		{"zero words", func(s *ResultSubmission) { s.TotalWords = 0 }},
		{"negative errors", func(s *ResultSubmission) { s.TotalErrors = -1 }},
		{"errors exceed words", func(s *ResultSubmission) { s.TotalErrors = 11 }},
		{"zero elapsed", func(s *ResultSubmission) { s.TimeElapsed = 0 }},
		{"negative streak", func(s *ResultSubmission) { s.Streak = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)
			assert.ErrorIs(t, sub.Validate(), ErrInvalidSubmission)
		})
	}
}

package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/speedtype/arena/internal/corpus"
	"github.com/speedtype/arena/internal/domain"
)

// ErrNoUsername is returned by Start when no username has been set. The
// caller surfaces it to the user; no state transition happens.
var ErrNoUsername = errors.New("username required before starting a test")

// State is the round lifecycle state.
type State int

const (
	// StateIdle means no test is in progress.
	StateIdle State = iota
	// StateActive means a round is running and input is accepted.
	StateActive
	// StateBreak means the engine waits between rounds; input is rejected.
	StateBreak
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateBreak:
		return "break"
	default:
		return "unknown"
	}
}

// Sender emits round results over the connection. Emission is skipped when
// the transport is down; the round cycle continues regardless.
type Sender interface {
	IsConnected() bool
	SendResult(sub domain.ResultSubmission)
}

// Config holds the round parameters, fixed at engine construction.
type Config struct {
	RoundLength time.Duration
	BreakLength time.Duration
}

// SessionStats are the display values shown during a session. WPM and
// accuracy use pairwise smoothing (round of the mean of previous and
// current), which intentionally differs from the server's true means.
type SessionStats struct {
	WPM      int
	Accuracy int
	Streak   int
}

// Snapshot is a point-in-time view of the engine for rendering.
type Snapshot struct {
	State    State
	Timer    int
	Sentence string
	Typed    string
	Stats    SessionStats
}

// Engine drives the repeating round cycle for one user: sentence selection,
// countdown, input capture, end-of-round detection, metric computation and
// result emission. All transitions happen inside the mutex; the ticker and
// input callbacks only feed events in.
type Engine struct {
	mu sync.Mutex

	state      State
	timer      int
	sentence   string
	sentenceID int
	typed      string
	startTime  time.Time
	stats      SessionStats

	userID   string
	username string

	cfg    Config
	corpus *corpus.Corpus
	sender Sender
	clock  clockwork.Clock
	logger *slog.Logger
}

// New creates an idle engine.
func New(cfg Config, c *corpus.Corpus, sender Sender, clock clockwork.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		state:  StateIdle,
		timer:  int(cfg.RoundLength.Seconds()),
		cfg:    cfg,
		corpus: c,
		sender: sender,
		clock:  clock,
		logger: logger,
	}
}

// SetIdentity sets the user the engine emits results for.
func (e *Engine) SetIdentity(userID, username string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.userID = userID
	e.username = username
}

// Run feeds 1 Hz ticks into the engine until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := e.clock.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			e.Tick()
		}
	}
}

// Start begins a test. It fails without a username and is a no-op unless
// the engine is idle.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.username == "" {
		return ErrNoUsername
	}
	if e.state != StateIdle {
		return nil
	}

	e.sentenceID, e.sentence = e.corpus.Pick()
	e.beginRound()
	e.logger.Info("test started", "username", e.username, "sentence_id", e.sentenceID)
	return nil
}

// Stop aborts the test from any state: timer reset, typed text cleared,
// session stats zeroed. Nothing is emitted.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = StateIdle
	e.timer = int(e.cfg.RoundLength.Seconds())
	e.typed = ""
	e.stats = SessionStats{}
	e.logger.Info("test stopped")
}

// HandleInput replaces the typed text. Input is accepted only while a round
// is active; it ends the round when the text matches the target or its last
// character is a period.
func (e *Engine) HandleInput(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateActive {
		return
	}
	e.typed = text

	if strings.TrimSpace(text) == strings.TrimSpace(e.sentence) || strings.HasSuffix(text, ".") {
		e.endRound(text)
	}
}

// Tick advances the countdown by one second. An active round ends when the
// countdown reaches zero; a break transitions back to active.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateActive:
		e.timer--
		if e.timer <= 0 {
			e.endRound(e.typed)
		}
	case StateBreak:
		e.timer--
		if e.timer <= 0 {
			e.beginRound()
		}
	}
}

// Snapshot returns the current view for rendering.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		State:    e.state,
		Timer:    e.timer,
		Sentence: e.sentence,
		Typed:    e.typed,
		Stats:    e.stats,
	}
}

// beginRound arms a fresh round against the already-chosen sentence.
// Callers hold the mutex.
func (e *Engine) beginRound() {
	e.state = StateActive
	e.timer = int(e.cfg.RoundLength.Seconds())
	e.typed = ""
	e.startTime = e.clock.Now()
}

// endRound computes metrics for the finished round, updates session stats,
// emits the result when connected and enters the break. Callers hold the
// mutex.
func (e *Engine) endRound(text string) {
	elapsed := e.clock.Now().Sub(e.startTime).Seconds()
	totalWords := WordCount(e.sentence)
	errs := CountErrors(e.sentence, text)
	wpm := ComputeWPM(totalWords, elapsed)
	accuracy := ComputeAccuracy(totalWords, errs)

	streak := 0
	if errs == 0 {
		streak = e.stats.Streak + 1
	}
	e.stats = SessionStats{
		WPM:      smooth(e.stats.WPM, wpm),
		Accuracy: smooth(e.stats.Accuracy, accuracy),
		Streak:   streak,
	}

	if e.sender != nil && e.sender.IsConnected() && e.username != "" {
		e.sender.SendResult(domain.ResultSubmission{
			UserID:      e.userID,
			Username:    e.username,
			WPM:         wpm,
			Accuracy:    accuracy,
			TotalWords:  totalWords,
			TotalErrors: errs,
			TimeElapsed: elapsed,
			SentenceID:  e.sentenceID,
			Streak:      streak,
		})
	} else {
		e.logger.Debug("offline, skipping result emission")
	}

	e.logger.Info("round finished",
		"wpm", wpm,
		"accuracy", accuracy,
		"errors", errs,
		"streak", streak,
	)

	// The next sentence is drawn now so it can be shown during the break.
	e.sentenceID, e.sentence = e.corpus.Pick()
	e.state = StateBreak
	e.timer = int(e.cfg.BreakLength.Seconds())
	e.typed = ""
}

// smooth applies the session display rule: the first value is taken as-is,
// later values are the rounded mean of previous and current.
func smooth(prev, current int) int {
	if prev == 0 {
		return current
	}
	return int(math.Round(float64(prev+current) / 2))
}

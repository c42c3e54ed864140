package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/speedtype/arena/internal/client"
	"github.com/speedtype/arena/internal/domain"
)

var typistPrefixes = []string{
	"Phoenix", "Shadow", "Thunder", "Storm", "Blaze", "Ninja", "Dragon", "Wolf", "Hawk", "Viper",
	"Ghost", "Titan", "Frost", "Cyber", "Nova", "Raven", "Omega", "Alpha", "Delta", "Sigma",
	"Ace", "Bolt", "Crash", "Dash", "Edge", "Flash", "Glitch", "Haze", "Ion", "Jade",
	"Knight", "Luna", "Mystic", "Neon", "Orion", "Pulse", "Quantum", "Rebel", "Spark", "Turbo",
}

func typistName(idx int) string {
	prefixIdx := idx % len(typistPrefixes)
	suffix := idx/len(typistPrefixes) + 1
	return fmt.Sprintf("%s%d", typistPrefixes[prefixIdx], suffix)
}

// typist simulates one participant: a skill level around which round
// results fluctuate, and a running zero-error streak.
type typist struct {
	manager  *client.Manager
	userID   string
	username string
	skillWPM int
	streak   int
	rng      *rand.Rand
}

func (t *typist) emitRound() {
	totalWords := t.rng.Intn(8) + 5
	wpm := t.skillWPM + t.rng.Intn(21) - 10
	if wpm < 5 {
		wpm = 5
	}
	timeElapsed := float64(totalWords) / float64(wpm) * 60

	errs := 0
	if t.rng.Intn(100) < 40 {
		errs = t.rng.Intn(totalWords/2 + 1)
	}
	accuracy := int(math.Round(float64(totalWords-errs) / float64(totalWords) * 100))

	if errs == 0 {
		t.streak++
	} else {
		t.streak = 0
	}

	t.manager.SendResult(domain.ResultSubmission{
		UserID:      t.userID,
		Username:    t.username,
		WPM:         wpm,
		Accuracy:    accuracy,
		TotalWords:  totalWords,
		TotalErrors: errs,
		TimeElapsed: timeElapsed,
		SentenceID:  t.rng.Intn(10) + 1,
		Streak:      t.streak,
	})
}

func main() {
	serverURL := flag.String("server", "ws://localhost:3000/ws", "WebSocket endpoint of the leaderboard service")
	typists := flag.Int("typists", 50, "Number of simulated typists")
	rate := flag.Duration("interval", 2*time.Second, "Interval between rounds per typist")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fmt.Println("speedtype load generator")
	fmt.Printf("  server:   %s\n", *serverURL)
	fmt.Printf("  typists:  %d\n", *typists)
	fmt.Printf("  interval: %s\n", *rate)
	fmt.Println()

	var sent atomic.Int64
	stop := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < *typists; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(idx)))
			manager := client.NewManager(client.Config{ServerURL: *serverURL}, logger)
			username := typistName(idx)
			userID := uuid.New().String()
			manager.Connect(userID, username)
			defer manager.Close()

			t := &typist{
				manager:  manager,
				userID:   userID,
				username: username,
				skillWPM: rng.Intn(80) + 25,
				rng:      rng,
			}

			ticker := time.NewTicker(*rate + time.Duration(rng.Intn(500))*time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					t.emitRound()
					sent.Add(1)
				}
			}
		}(i)
	}

	// Progress reporting
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fmt.Printf("results sent: %d\n", sent.Load())
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if *duration > 0 {
		select {
		case <-quit:
		case <-time.After(*duration):
		}
	} else {
		<-quit
	}

	close(stop)
	wg.Wait()
	fmt.Printf("done, results sent: %d\n", sent.Load())
}

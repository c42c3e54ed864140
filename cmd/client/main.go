package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/speedtype/arena/internal/client"
	"github.com/speedtype/arena/internal/config"
	"github.com/speedtype/arena/internal/corpus"
	"github.com/speedtype/arena/internal/domain"
	"github.com/speedtype/arena/internal/engine"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	corpusPath := flag.String("corpus", "", "Sentence corpus file (one sentence per line)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		cfg = config.DefaultConfig()
	}
	if *corpusPath == "" {
		*corpusPath = cfg.Corpus.Path
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var sentences *corpus.Corpus
	if *corpusPath != "" {
		sentences, err = corpus.Load(*corpusPath, rng)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load corpus: %v\n", err)
			os.Exit(1)
		}
	} else {
		sentences = corpus.Default(rng)
	}

	identity, err := client.LoadIdentity(cfg.Client.StateFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load identity: %v\n", err)
		os.Exit(1)
	}

	stdin := bufio.NewScanner(os.Stdin)
	for identity.Username == "" {
		fmt.Print("Enter your username: ")
		if !stdin.Scan() {
			return
		}
		name := strings.TrimSpace(stdin.Text())
		if name == "" {
			fmt.Println("Please provide username.")
			continue
		}
		identity.Username = name
		if err := client.SaveIdentity(cfg.Client.StateFile, identity); err != nil {
			fmt.Fprintf(os.Stderr, "failed to save identity: %v\n", err)
		}
	}

	manager := client.NewManager(client.Config{
		ServerURL:        cfg.Client.ServerURL,
		ReconnectMinWait: cfg.Client.ReconnectMinWait,
		ReconnectMaxWait: cfg.Client.ReconnectMaxWait,
	}, logger)
	manager.OnLeaderboard(printLeaderboard)
	manager.OnUserStats(printUserStats)
	manager.Connect(identity.UserID, identity.Username)
	defer manager.Close()

	eng := engine.New(engine.Config{
		RoundLength: cfg.Engine.RoundLength,
		BreakLength: cfg.Engine.BreakLength,
	}, sentences, manager, clockwork.NewRealClock(), logger)
	eng.SetIdentity(identity.UserID, identity.Username)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go eng.Run(ctx)

	fmt.Printf("Welcome, %s. Commands: /start /stop /board /stats /quit\n", identity.Username)
	fmt.Println("Rounds end on complete sentence, typing . or timer running out")

	for {
		snap := eng.Snapshot()
		switch snap.State {
		case engine.StateActive:
			fmt.Printf("[%2ds] %s\n> ", snap.Timer, snap.Sentence)
		default:
			fmt.Print("> ")
		}

		if !stdin.Scan() {
			return
		}
		line := stdin.Text()

		switch strings.TrimSpace(line) {
		case "/quit":
			return
		case "/start":
			if err := eng.Start(); err != nil {
				fmt.Println("Error:", err)
			}
		case "/stop":
			eng.Stop()
			fmt.Println("Test stopped.")
		case "/board":
			manager.RequestLeaderboard()
		case "/stats":
			manager.RequestUserStats(identity.UserID)
		default:
			eng.HandleInput(line)
			s := eng.Snapshot().Stats
			fmt.Printf("WPM: %d | Accuracy: %d%% | Streak: %d | %s\n",
				s.WPM, s.Accuracy, s.Streak, connIndicator(manager.IsConnected()))
		}
	}
}

func connIndicator(connected bool) string {
	if connected {
		return "connected"
	}
	return "disconnected"
}

func printLeaderboard(entries []domain.UserAggregate) {
	fmt.Println("\n--- Leaderboard ---")
	if len(entries) == 0 {
		fmt.Println("(no results yet)")
	}
	for i, e := range entries {
		fmt.Printf("%2d. %-16s avg %.1f wpm  acc %.1f%%  best %d  tests %d\n",
			i+1, e.Username, e.AverageWpm, e.AverageAccuracy, e.BestWpm, e.TotalTests)
	}
	fmt.Println("-------------------")
}

func printUserStats(stats domain.UserAggregate) {
	fmt.Printf("\nYour stats: avg %.1f wpm, acc %.1f%%, best %d wpm / %d%%, %d tests\n",
		stats.AverageWpm, stats.AverageAccuracy, stats.BestWpm, stats.BestAccuracy, stats.TotalTests)
}

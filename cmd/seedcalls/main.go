// Command seedcalls populates a data directory with synthetic call
// history so dashboards and quality analysis can be exercised without
// live Twilio traffic.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tavolo/tavolo/internal/calls"
	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/database/models"
	"github.com/tavolo/tavolo/internal/quality"
)

// scenario is a canned call shape with a transcript template.
type scenario struct {
	name             string
	userLines        []string
	agentLines       []string
	tools            []string
	bookingCompleted bool
	intentFulfilled  bool
	hungUpEarly      bool
	durationSec      float64
	latencyMS        float64
	apiErrors        int
}

var scenarios = []scenario{
	{
		name: "smooth booking",
		userLines: []string{
			"Hi, I'd like to book a table for four on Friday at seven",
			"Garcia, G-a-r-c-i-a",
			"Yes, that's right",
		},
		agentLines: []string{
			"Hello! Welcome to Luigi's Italian Restaurant. This is your AI assistant. How can I help you today?",
			"Of course! Can I have a name for the reservation?",
			"So that's a table for four this Friday at 7 PM under Garcia, shall I book it?",
			"Perfect, you're all set! You'll get a confirmation text shortly.",
		},
		tools:            []string{"get_current_date", "check_availability", "create_reservation"},
		bookingCompleted: true,
		intentFulfilled:  true,
		durationSec:      95,
		latencyMS:        1400,
	},
	{
		name: "hours inquiry",
		userLines: []string{
			"What time are you open tonight?",
			"Okay, thank you",
		},
		agentLines: []string{
			"Hello! Welcome to Luigi's Italian Restaurant. This is your AI assistant. How can I help you today?",
			"We seat guests from 5 PM, and our last tables go out before 10. Would you like to reserve one?",
			"You're welcome, see you tonight!",
		},
		intentFulfilled: true,
		durationSec:     40,
		latencyMS:       900,
	},
	{
		name: "confused caller",
		userLines: []string{
			"Hello? Is this the pizza place?",
			"Sorry, what did you say? Can you repeat that?",
			"No, I said SATURDAY, not Sunday",
			"Ugh, never mind",
		},
		agentLines: []string{
			"Hello! Welcome to Luigi's Italian Restaurant. This is your AI assistant. How can I help you today?",
			"This is Luigi's Italian Restaurant. Would you like to make a reservation?",
			"I'd be happy to help with a reservation. What day works for you?",
			"My apologies! A table for Saturday then, for how many people?",
			"I'm sorry about the confusion. Is there anything else I can help with?",
		},
		tools:       []string{"get_current_date"},
		hungUpEarly: true,
		durationSec: 160,
		latencyMS:   4200,
		apiErrors:   1,
	},
	{
		name: "cancellation",
		userLines: []string{
			"I need to cancel my reservation for tonight, it's under Moreau",
			"Yes, cancel it please",
		},
		agentLines: []string{
			"Hello! Welcome to Luigi's Italian Restaurant. This is your AI assistant. How can I help you today?",
			"I found a reservation for Moreau tonight at 8 PM. Shall I cancel it?",
			"Done, your reservation is cancelled. We hope to see you another time!",
		},
		tools:           []string{"get_reservations", "cancel_reservation"},
		intentFulfilled: true,
		durationSec:     70,
		latencyMS:       1100,
	},
	{
		name: "instant hangup",
		userLines: []string{
			"Uh",
		},
		agentLines: []string{
			"Hello! Welcome to Luigi's Italian Restaurant. This is your AI assistant. How can I help you today?",
		},
		hungUpEarly: true,
		durationSec: 12,
		latencyMS:   600,
	},
}

func main() {
	dataDir := flag.String("data-dir", "./data", "data directory holding the database")
	count := flag.Int("calls", 25, "number of synthetic calls to create")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	metricsRepo := database.NewCallMetricsRepository(db)
	qualityRepo := database.NewCallQualityRepository(db)
	turnsRepo := database.NewConversationTurnRepository(db)
	analyzer := quality.NewAnalyzer(metricsRepo, qualityRepo, turnsRepo, nil, logger)

	rng := rand.New(rand.NewSource(*seed))
	ctx := context.Background()

	for i := 0; i < *count; i++ {
		sc := scenarios[rng.Intn(len(scenarios))]
		sid := "CA" + strings.ReplaceAll(uuid.NewString(), "-", "")

		if err := insertCall(ctx, metricsRepo, turnsRepo, rng, sc, sid); err != nil {
			fmt.Fprintf(os.Stderr, "error: seeding call %d: %v\n", i+1, err)
			os.Exit(1)
		}
		if _, err := analyzer.Analyze(ctx, sid, false); err != nil {
			fmt.Fprintf(os.Stderr, "error: scoring call %d: %v\n", i+1, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded %d calls into %s\n", *count, *dataDir)
}

// insertCall writes one scenario as metrics plus transcript, starting
// at a random point in the past week.
func insertCall(ctx context.Context, metricsRepo database.CallMetricsRepository, turnsRepo database.ConversationTurnRepository, rng *rand.Rand, sc scenario, sid string) error {
	start := time.Now().UTC().
		Add(-time.Duration(rng.Intn(7*24)) * time.Hour).
		Add(-time.Duration(rng.Intn(60)) * time.Minute)
	duration := sc.durationSec * (0.8 + rng.Float64()*0.4)
	end := start.Add(time.Duration(duration * float64(time.Second)))

	toolsJSON, err := json.Marshal(sc.tools)
	if err != nil {
		return err
	}

	clarifications := 0
	for _, line := range sc.userLines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "sorry") || strings.Contains(lower, "repeat") {
			clarifications++
		}
	}

	m := &models.CallMetrics{
		CallSID:              sid,
		CallStart:            start,
		CallEnd:              &end,
		TotalDurationSec:     duration,
		UserTurns:            len(sc.userLines),
		AgentTurns:           len(sc.agentLines),
		ClarificationsNeeded: clarifications,
		BookingCompleted:     sc.bookingCompleted,
		IntentFulfilled:      sc.intentFulfilled,
		UserHungUpEarly:      sc.hungUpEarly,
		ToolsCalled:          string(toolsJSON),
		TotalLatencyMS:       sc.latencyMS * (0.8 + rng.Float64()*0.4),
		APIErrors:            sc.apiErrors,
		PromptVersion:        calls.PromptVersionBaseline,
		CallerPhone:          fmt.Sprintf("+1555%07d", rng.Intn(10000000)),
	}
	if err := metricsRepo.Create(ctx, m); err != nil {
		return err
	}

	// Interleave agent and user lines the way a real call alternates.
	turnNumber := 0
	at := start
	writeTurn := func(speaker, text string) error {
		turnNumber++
		at = at.Add(time.Duration(5+rng.Intn(10)) * time.Second)
		return turnsRepo.Create(ctx, &models.ConversationTurn{
			CallSID:    sid,
			TurnNumber: turnNumber,
			Speaker:    speaker,
			Transcript: text,
			Timestamp:  at,
		})
	}
	for i := 0; i < len(sc.agentLines) || i < len(sc.userLines); i++ {
		if i < len(sc.agentLines) {
			if err := writeTurn("agent", sc.agentLines[i]); err != nil {
				return err
			}
		}
		if i < len(sc.userLines) {
			if err := writeTurn("user", sc.userLines[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

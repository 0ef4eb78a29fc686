package calls

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/tavolo/tavolo/internal/database"
)

func TestClarificationDetection(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"A table for four please", 0},
		{"Sorry, can you repeat that?", 1},
		{"WHAT did you say", 1},
		{"I didn't catch the time", 1},
		{"Come again?", 1},
	}
	for _, tt := range tests {
		tr := NewTracker("CA001", "")
		tr.AddUserTurn(tt.text)
		if got := tr.ClarificationsNeeded(); got != tt.want {
			t.Errorf("AddUserTurn(%q) clarifications = %d, want %d", tt.text, got, tt.want)
		}
	}

	// Two triggers in one utterance count once.
	tr := NewTracker("CA001", "")
	tr.AddUserTurn("Sorry, what? Can you repeat that?")
	if got := tr.ClarificationsNeeded(); got != 1 {
		t.Errorf("clarifications = %d, want 1 per turn", got)
	}
}

func TestBookingImpliesIntent(t *testing.T) {
	tr := NewTracker("CA001", "")
	tr.SetBookingCompleted(true)
	if !tr.BookingCompleted() {
		t.Error("BookingCompleted() = false")
	}
}

func TestFinalizePersistsMetricsAndTranscript(t *testing.T) {
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	base := time.Date(2025, 6, 20, 19, 0, 0, 0, time.UTC)
	clock := base
	tr := newTrackerAt("CA001", "+15550001111", func() time.Time {
		clock = clock.Add(15 * time.Second)
		return clock
	})

	tr.AddAgentTurn("Hello! How can I help?")
	tr.AddUserTurn("Table for four tomorrow at 7pm")
	tr.AddAgentTurn("You're booked!")
	tr.AddToolCall("check_availability", 420)
	tr.AddToolCall("create_reservation", 380)
	tr.SetBookingCompleted(true)

	metricsRepo := database.NewCallMetricsRepository(db)
	turnsRepo := database.NewConversationTurnRepository(db)

	m, err := tr.Finalize(ctx, metricsRepo, turnsRepo)
	if err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
	if m.UserTurns != 1 || m.AgentTurns != 2 {
		t.Errorf("turns = %d user / %d agent", m.UserTurns, m.AgentTurns)
	}
	if !m.BookingCompleted || !m.IntentFulfilled {
		t.Errorf("outcome flags = %+v", m)
	}
	if m.TotalLatencyMS != 800 {
		t.Errorf("TotalLatencyMS = %v, want 800", m.TotalLatencyMS)
	}
	if m.TotalDurationSec <= 0 {
		t.Errorf("TotalDurationSec = %v", m.TotalDurationSec)
	}
	if m.PromptVersion != PromptVersionBaseline {
		t.Errorf("PromptVersion = %q", m.PromptVersion)
	}

	var tools []string
	if err := json.Unmarshal([]byte(m.ToolsCalled), &tools); err != nil {
		t.Fatalf("ToolsCalled not JSON: %v", err)
	}
	if len(tools) != 2 || tools[0] != "check_availability" {
		t.Errorf("ToolsCalled = %v", tools)
	}

	stored, err := metricsRepo.GetByCallSID(ctx, "CA001")
	if err != nil {
		t.Fatalf("GetByCallSID() error: %v", err)
	}
	if stored == nil {
		t.Fatal("metrics not persisted")
	}

	turns, err := turnsRepo.ListByCall(ctx, "CA001")
	if err != nil {
		t.Fatalf("ListByCall() error: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("persisted %d turns, want 3", len(turns))
	}
	if turns[0].Speaker != "agent" || turns[1].Speaker != "user" {
		t.Errorf("turn order wrong: %+v", turns)
	}
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore()

	tr := store.Start("CA001", "+15550001111")
	if tr == nil {
		t.Fatal("Start() returned nil")
	}
	if store.Active() != 1 {
		t.Errorf("Active() = %d, want 1", store.Active())
	}
	if got := store.Get("CA001"); got != tr {
		t.Error("Get() returned a different tracker")
	}
	if got := store.Get("CA999"); got != nil {
		t.Error("Get() for unknown call should be nil")
	}

	removed := store.Remove("CA001")
	if removed != tr {
		t.Error("Remove() returned a different tracker")
	}
	if store.Active() != 0 {
		t.Errorf("Active() = %d after Remove, want 0", store.Active())
	}
	if store.Remove("CA001") != nil {
		t.Error("second Remove() should be nil")
	}
}

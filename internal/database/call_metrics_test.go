package database

import (
	"context"
	"testing"
	"time"

	"github.com/tavolo/tavolo/internal/database/models"
)

func TestCallMetricsCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewCallMetricsRepository(db)
	ctx := context.Background()

	end := time.Now().UTC()
	m := &models.CallMetrics{
		CallSID:              "CA001",
		CallStart:            end.Add(-90 * time.Second),
		CallEnd:              &end,
		TotalDurationSec:     90,
		UserTurns:            3,
		AgentTurns:           3,
		ClarificationsNeeded: 1,
		BookingCompleted:     true,
		IntentFulfilled:      true,
		ToolsCalled:          `["get_current_date","check_availability","create_reservation"]`,
		TotalLatencyMS:       1200,
		PromptVersion:        "v1_baseline",
		CallerPhone:          "+15550001111",
	}
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	got, err := repo.GetByCallSID(ctx, "CA001")
	if err != nil {
		t.Fatalf("GetByCallSID() error: %v", err)
	}
	if got == nil {
		t.Fatal("GetByCallSID() returned nil")
	}
	if got.UserTurns != 3 || !got.BookingCompleted || got.TotalLatencyMS != 1200 {
		t.Errorf("GetByCallSID() = %+v", got)
	}
	if got.CallEnd == nil {
		t.Error("CallEnd not persisted")
	}
}

func TestCallMetricsListPendingAnalysis(t *testing.T) {
	db := newTestDB(t)
	metrics := NewCallMetricsRepository(db)
	quality := NewCallQualityRepository(db)
	ctx := context.Background()

	for _, sid := range []string{"CA001", "CA002", "CA003"} {
		m := &models.CallMetrics{CallSID: sid, CallStart: time.Now().UTC(), ToolsCalled: "[]"}
		if err := metrics.Create(ctx, m); err != nil {
			t.Fatalf("Create(%s) error: %v", sid, err)
		}
	}

	// CA001 fully analyzed, CA002 still carrying the judge default score.
	if err := quality.Upsert(ctx, &models.CallQuality{CallSID: "CA001", NaturalnessScore: 88, OverallScore: 90, QualityTier: "Excellent"}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if err := quality.Upsert(ctx, &models.CallQuality{CallSID: "CA002", NaturalnessScore: 75, OverallScore: 70, QualityTier: "Good"}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	pending, err := metrics.ListPendingAnalysis(ctx, 75, 10)
	if err != nil {
		t.Fatalf("ListPendingAnalysis() error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("ListPendingAnalysis() returned %d calls, want 2", len(pending))
	}
	got := map[string]bool{}
	for _, m := range pending {
		got[m.CallSID] = true
	}
	if !got["CA002"] || !got["CA003"] {
		t.Errorf("ListPendingAnalysis() = %v, want CA002 and CA003", got)
	}
}

func TestCallQualityUpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	repo := NewCallQualityRepository(db)
	ctx := context.Background()

	q := &models.CallQuality{
		CallSID:          "CA001",
		EfficiencyScore:  80,
		AccuracyScore:    90,
		HelpfulnessScore: 100,
		NaturalnessScore: 75,
		OverallScore:     85,
		QualityTier:      "Great",
	}
	if err := repo.Upsert(ctx, q); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	q.NaturalnessScore = 92
	q.OverallScore = 91
	q.QualityTier = "Excellent"
	if err := repo.Upsert(ctx, q); err != nil {
		t.Fatalf("second Upsert() error: %v", err)
	}

	got, err := repo.GetByCallSID(ctx, "CA001")
	if err != nil {
		t.Fatalf("GetByCallSID() error: %v", err)
	}
	if got.NaturalnessScore != 92 || got.QualityTier != "Excellent" {
		t.Errorf("GetByCallSID() = %+v, want updated scores", got)
	}

	tiers, err := repo.CountByTier(ctx)
	if err != nil {
		t.Fatalf("CountByTier() error: %v", err)
	}
	if tiers["Excellent"] != 1 || len(tiers) != 1 {
		t.Errorf("CountByTier() = %v, want single Excellent row", tiers)
	}
}

func TestConversationTurnRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationTurnRepository(db)
	ctx := context.Background()

	turns := []models.ConversationTurn{
		{CallSID: "CA001", TurnNumber: 1, Speaker: "agent", Transcript: "Hello! How can I help you today?", Timestamp: time.Now().UTC()},
		{CallSID: "CA001", TurnNumber: 2, Speaker: "user", Transcript: "A table for four tomorrow at 7pm", Timestamp: time.Now().UTC()},
	}
	for i := range turns {
		if err := repo.Create(ctx, &turns[i]); err != nil {
			t.Fatalf("Create() error: %v", err)
		}
	}

	got, err := repo.ListByCall(ctx, "CA001")
	if err != nil {
		t.Fatalf("ListByCall() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByCall() returned %d turns, want 2", len(got))
	}
	if got[0].Speaker != "agent" || got[1].Speaker != "user" {
		t.Errorf("turns out of order: %+v", got)
	}
}

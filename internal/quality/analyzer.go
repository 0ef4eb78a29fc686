// Package quality scores finished calls on five dimensions. Three are
// computed from the stored metrics and transcript, two by an LLM judge.
package quality

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/database/models"
	"github.com/tavolo/tavolo/internal/llm"
)

// Quality tiers by overall score.
const (
	TierExcellent = "Excellent" // >= 90
	TierGreat     = "Great"     // >= 75
	TierGood      = "Good"      // >= 60
	TierFair      = "Fair"      // >= 40
	TierPoor      = "Poor"
)

// Dimension weights. Accuracy dominates: getting the booking details
// right matters more than anything else on a reservation line.
const (
	weightAccuracy        = 0.30
	weightHelpfulness     = 0.25
	weightEfficiency      = 0.20
	weightNaturalness     = 0.15
	weightProfessionalism = 0.10
)

// User phrases that signal the agent got something wrong. Substring
// matched on the lowercased transcript.
var correctionKeywords = []string{
	"no", "actually", "i said", "that's wrong",
	"you mean", "not", "correction", "mistake",
	"i meant", "that's not right",
}

// User phrases that confirm the agent read details back correctly.
var confirmationKeywords = []string{
	"yes that's right", "correct", "exactly",
	"yes", "perfect", "that's it",
}

// TranscriptJudge is the LLM scoring interface. *llm.Judge satisfies
// it.
type TranscriptJudge interface {
	ScoreNaturalness(ctx context.Context, transcript string) (float64, error)
	ScoreProfessionalism(ctx context.Context, transcript string) (float64, error)
}

// Analyzer computes and stores call quality scores.
type Analyzer struct {
	metrics database.CallMetricsRepository
	quality database.CallQualityRepository
	turns   database.ConversationTurnRepository
	judge   TranscriptJudge
	logger  *slog.Logger
	now     func() time.Time
}

// NewAnalyzer builds an Analyzer. judge may be nil, in which case the
// AI dimensions always get the default score.
func NewAnalyzer(metrics database.CallMetricsRepository, quality database.CallQualityRepository, turns database.ConversationTurnRepository, judge TranscriptJudge, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		metrics: metrics,
		quality: quality,
		turns:   turns,
		judge:   judge,
		logger:  logger,
		now:     time.Now,
	}
}

// Analyze scores one call and upserts the result. With useAI false the
// naturalness and professionalism dimensions get the default score, to
// be filled in by the batch worker later.
func (a *Analyzer) Analyze(ctx context.Context, callSID string, useAI bool) (*models.CallQuality, error) {
	m, err := a.metrics.GetByCallSID(ctx, callSID)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("no metrics for call %s", callSID)
	}

	turns, err := a.turns.ListByCall(ctx, callSID)
	if err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}

	q := &models.CallQuality{
		CallSID:              callSID,
		EfficiencyScore:      efficiencyScore(m),
		AccuracyScore:        accuracyScore(turns),
		HelpfulnessScore:     helpfulnessScore(m),
		NaturalnessScore:     llm.DefaultScore,
		ProfessionalismScore: llm.DefaultScore,
		AnalyzedAt:           a.now().UTC(),
	}

	if useAI && a.judge != nil && len(turns) > 0 {
		transcript := renderTranscript(turns)
		if score, err := a.judge.ScoreNaturalness(ctx, transcript); err == nil {
			q.NaturalnessScore = score
		} else {
			a.logger.Warn("naturalness judge failed", "call_sid", callSID, "error", err)
		}
		if score, err := a.judge.ScoreProfessionalism(ctx, transcript); err == nil {
			q.ProfessionalismScore = score
		} else {
			a.logger.Warn("professionalism judge failed", "call_sid", callSID, "error", err)
		}
	}

	q.OverallScore, q.QualityTier = overallScore(q)

	if err := a.quality.Upsert(ctx, q); err != nil {
		return nil, fmt.Errorf("save quality: %w", err)
	}
	return q, nil
}

// AnalyzePending scores calls that have no quality record yet or whose
// AI dimensions still carry the default. Returns the number analyzed.
func (a *Analyzer) AnalyzePending(ctx context.Context, limit int) (int, error) {
	pending, err := a.metrics.ListPendingAnalysis(ctx, llm.DefaultScore, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending calls: %w", err)
	}

	analyzed := 0
	for _, m := range pending {
		q, err := a.Analyze(ctx, m.CallSID, true)
		if err != nil {
			a.logger.Error("call analysis failed", "call_sid", m.CallSID, "error", err)
			continue
		}
		a.logger.Info("call analyzed",
			"call_sid", m.CallSID,
			"tier", q.QualityTier,
			"overall", q.OverallScore)
		analyzed++
	}
	return analyzed, nil
}

// efficiencyScore rewards fast, direct conversations. Ideal is three to
// five user turns, under two minutes, no clarifications and under three
// seconds of tool latency.
func efficiencyScore(m *models.CallMetrics) float64 {
	score := 100.0

	if m.UserTurns > 5 {
		score -= float64(m.UserTurns-5) * 5
	}
	if m.TotalDurationSec > 120 {
		score -= (m.TotalDurationSec - 120) / 10
	}
	score -= float64(m.ClarificationsNeeded) * 10
	if m.TotalLatencyMS > 3000 {
		score -= (m.TotalLatencyMS - 3000) / 100
	}

	return clamp(score)
}

// accuracyScore counts corrections against confirmations in the user's
// turns. No transcript means no evidence either way, so the default.
func accuracyScore(turns []models.ConversationTurn) float64 {
	var userTurns []string
	for _, t := range turns {
		if t.Speaker == "user" {
			userTurns = append(userTurns, strings.ToLower(t.Transcript))
		}
	}
	if len(userTurns) == 0 {
		return llm.DefaultScore
	}

	score := 100.0

	corrections := 0
	for _, text := range userTurns {
		for _, kw := range correctionKeywords {
			if strings.Contains(text, kw) {
				corrections++
				break
			}
		}
	}
	score -= float64(corrections) * 15

	confirmations := 0
	for _, text := range userTurns {
		for _, kw := range confirmationKeywords {
			if strings.Contains(text, kw) {
				confirmations++
				break
			}
		}
	}
	bonus := float64(confirmations) * 5
	if bonus > 20 {
		bonus = 20
	}
	score += bonus

	return clamp(score)
}

// helpfulnessScore is outcome based: a booking is full marks, an early
// hangup is zero.
func helpfulnessScore(m *models.CallMetrics) float64 {
	switch {
	case m.BookingCompleted:
		return 100
	case m.UserHungUpEarly:
		return 0
	case m.TotalDurationSec > 0 && m.TotalDurationSec < 30:
		return 20
	case m.IntentFulfilled:
		return 60
	default:
		return 50
	}
}

func overallScore(q *models.CallQuality) (float64, string) {
	overall := q.AccuracyScore*weightAccuracy +
		q.HelpfulnessScore*weightHelpfulness +
		q.EfficiencyScore*weightEfficiency +
		q.NaturalnessScore*weightNaturalness +
		q.ProfessionalismScore*weightProfessionalism

	switch {
	case overall >= 90:
		return overall, TierExcellent
	case overall >= 75:
		return overall, TierGreat
	case overall >= 60:
		return overall, TierGood
	case overall >= 40:
		return overall, TierFair
	default:
		return overall, TierPoor
	}
}

func renderTranscript(turns []models.ConversationTurn) string {
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(capitalize(t.Speaker))
		b.WriteString(": ")
		b.WriteString(t.Transcript)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tavolo/tavolo/internal/database/models"
)

// callJSON is the API shape of one call's metrics, with quality scores
// attached when analysis has run.
type callJSON struct {
	CallSID              string     `json:"call_sid"`
	CallStart            time.Time  `json:"call_start"`
	CallEnd              *time.Time `json:"call_end,omitempty"`
	TotalDurationSec     float64    `json:"total_duration_sec"`
	UserTurns            int        `json:"user_turns"`
	AgentTurns           int        `json:"agent_turns"`
	ClarificationsNeeded int        `json:"clarifications_needed"`
	BookingCompleted     bool       `json:"booking_completed"`
	IntentFulfilled      bool       `json:"intent_fulfilled"`
	UserHungUpEarly      bool       `json:"user_hung_up_early"`
	ToolsCalled          []string   `json:"tools_called"`
	TotalLatencyMS       float64    `json:"total_latency_ms"`
	APIErrors            int        `json:"api_errors"`
	PromptVersion        string     `json:"prompt_version"`
	CallerPhone          string     `json:"caller_phone,omitempty"`

	Quality *qualityJSON `json:"quality,omitempty"`
}

// qualityJSON is the API shape of the five-dimension quality scores.
type qualityJSON struct {
	EfficiencyScore      float64   `json:"efficiency_score"`
	AccuracyScore        float64   `json:"accuracy_score"`
	HelpfulnessScore     float64   `json:"helpfulness_score"`
	NaturalnessScore     float64   `json:"naturalness_score"`
	ProfessionalismScore float64   `json:"professionalism_score"`
	OverallScore         float64   `json:"overall_score"`
	QualityTier          string    `json:"quality_tier"`
	AnalyzedAt           time.Time `json:"analyzed_at"`
}

func toCallJSON(m *models.CallMetrics) callJSON {
	out := callJSON{
		CallSID:              m.CallSID,
		CallStart:            m.CallStart,
		CallEnd:              m.CallEnd,
		TotalDurationSec:     m.TotalDurationSec,
		UserTurns:            m.UserTurns,
		AgentTurns:           m.AgentTurns,
		ClarificationsNeeded: m.ClarificationsNeeded,
		BookingCompleted:     m.BookingCompleted,
		IntentFulfilled:      m.IntentFulfilled,
		UserHungUpEarly:      m.UserHungUpEarly,
		TotalLatencyMS:       m.TotalLatencyMS,
		APIErrors:            m.APIErrors,
		PromptVersion:        m.PromptVersion,
		CallerPhone:          m.CallerPhone,
	}
	if m.ToolsCalled != "" {
		if err := json.Unmarshal([]byte(m.ToolsCalled), &out.ToolsCalled); err != nil {
			slog.Warn("malformed tools_called json", "call_sid", m.CallSID, "error", err)
		}
	}
	if out.ToolsCalled == nil {
		out.ToolsCalled = []string{}
	}
	return out
}

func toQualityJSON(q *models.CallQuality) *qualityJSON {
	return &qualityJSON{
		EfficiencyScore:      q.EfficiencyScore,
		AccuracyScore:        q.AccuracyScore,
		HelpfulnessScore:     q.HelpfulnessScore,
		NaturalnessScore:     q.NaturalnessScore,
		ProfessionalismScore: q.ProfessionalismScore,
		OverallScore:         q.OverallScore,
		QualityTier:          q.QualityTier,
		AnalyzedAt:           q.AnalyzedAt,
	}
}

// handleListCalls returns recorded calls, newest first, with
// ?limit=&offset= paging.
func (s *Server) handleListCalls(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	list, total, err := s.callMetrics.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("failed to list calls", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list calls")
		return
	}

	calls := make([]callJSON, 0, len(list))
	for i := range list {
		c := toCallJSON(&list[i])
		if q, err := s.callQuality.GetByCallSID(r.Context(), list[i].CallSID); err == nil && q != nil {
			c.Quality = toQualityJSON(q)
		}
		calls = append(calls, c)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"calls":  calls,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// handleGetCall returns one call's metrics and quality scores.
func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	callSID := chi.URLParam(r, "callSID")

	m, err := s.callMetrics.GetByCallSID(r.Context(), callSID)
	if err != nil {
		slog.Error("failed to get call", "call_sid", callSID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get call")
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}

	c := toCallJSON(m)
	if q, err := s.callQuality.GetByCallSID(r.Context(), callSID); err == nil && q != nil {
		c.Quality = toQualityJSON(q)
	}
	writeJSON(w, http.StatusOK, c)
}

// turnJSON is one transcript line.
type turnJSON struct {
	TurnNumber int       `json:"turn_number"`
	Speaker    string    `json:"speaker"`
	Transcript string    `json:"transcript"`
	Timestamp  time.Time `json:"timestamp"`
}

// handleGetTranscript returns a call's transcript in turn order.
func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	callSID := chi.URLParam(r, "callSID")

	turns, err := s.turns.ListByCall(r.Context(), callSID)
	if err != nil {
		slog.Error("failed to get transcript", "call_sid", callSID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get transcript")
		return
	}

	out := make([]turnJSON, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnJSON{
			TurnNumber: t.TurnNumber,
			Speaker:    t.Speaker,
			Transcript: t.Transcript,
			Timestamp:  t.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"call_sid": callSID,
		"turns":    out,
	})
}

// handleAnalyzeCall re-runs quality analysis for one call.
// ?ai=true includes the model-judged dimensions.
func (s *Server) handleAnalyzeCall(w http.ResponseWriter, r *http.Request) {
	callSID := chi.URLParam(r, "callSID")
	useAI := r.URL.Query().Get("ai") == "true"

	q, err := s.analyzer.Analyze(r.Context(), callSID, useAI)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toQualityJSON(q))
}

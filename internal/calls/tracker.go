// Package calls tracks live phone calls: turn counts, clarifications,
// tool usage and outcomes, persisted when the call ends.
package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/database/models"
)

// clarificationPhrases mark a user turn as asking the agent to repeat
// itself. Matched as substrings of the lowercased transcript.
var clarificationPhrases = []string{
	"sorry", "pardon", "what", "repeat", "didn't catch",
	"can you say", "speak up", "come again",
}

// PromptVersionBaseline tags calls served by the current system prompt,
// for comparing prompt revisions later.
const PromptVersionBaseline = "v1_baseline"

type turn struct {
	speaker    string
	transcript string
	at         time.Time
}

// Tracker accumulates the metrics of one call. Not safe for concurrent
// use; webhook handlers for one call arrive sequentially.
type Tracker struct {
	callSID     string
	callerPhone string
	callStart   time.Time

	turns                []turn
	userTurns            int
	agentTurns           int
	clarificationsNeeded int

	bookingCompleted bool
	intentFulfilled  bool
	userHungUpEarly  bool

	toolsCalled    []string
	totalLatencyMS float64
	apiErrors      int

	promptVersion string
	now           func() time.Time
}

// NewTracker starts tracking a call.
func NewTracker(callSID, callerPhone string) *Tracker {
	return newTrackerAt(callSID, callerPhone, time.Now)
}

func newTrackerAt(callSID, callerPhone string, now func() time.Time) *Tracker {
	return &Tracker{
		callSID:       callSID,
		callerPhone:   callerPhone,
		callStart:     now().UTC(),
		toolsCalled:   []string{},
		promptVersion: PromptVersionBaseline,
		now:           now,
	}
}

// AddUserTurn records a caller utterance and counts it as a
// clarification when it sounds like one.
func (t *Tracker) AddUserTurn(text string) {
	t.userTurns++
	t.turns = append(t.turns, turn{speaker: "user", transcript: text, at: t.now().UTC()})

	lower := strings.ToLower(text)
	for _, phrase := range clarificationPhrases {
		if strings.Contains(lower, phrase) {
			t.clarificationsNeeded++
			break
		}
	}
}

// AddAgentTurn records an agent utterance.
func (t *Tracker) AddAgentTurn(text string) {
	t.agentTurns++
	t.turns = append(t.turns, turn{speaker: "agent", transcript: text, at: t.now().UTC()})
}

// AddToolCall records one executed tool and its latency.
func (t *Tracker) AddToolCall(toolName string, latencyMS float64) {
	t.toolsCalled = append(t.toolsCalled, toolName)
	t.totalLatencyMS += latencyMS
}

// AddAPIErrors bumps the model API error count.
func (t *Tracker) AddAPIErrors(n int) {
	t.apiErrors += n
}

// SetBookingCompleted marks the call's booking outcome. A completed
// booking always fulfills the caller's intent.
func (t *Tracker) SetBookingCompleted(completed bool) {
	t.bookingCompleted = completed
	if completed {
		t.intentFulfilled = true
	}
}

// SetIntentFulfilled marks that the caller got what they came for even
// without a new booking, a lookup or cancellation for instance.
func (t *Tracker) SetIntentFulfilled(fulfilled bool) {
	if fulfilled {
		t.intentFulfilled = true
	}
}

// SetUserHungUpEarly marks that the caller dropped before the agent
// finished.
func (t *Tracker) SetUserHungUpEarly(hungUp bool) {
	t.userHungUpEarly = hungUp
}

// ClarificationsNeeded returns the running clarification count.
func (t *Tracker) ClarificationsNeeded() int { return t.clarificationsNeeded }

// UserTurns returns the running user turn count.
func (t *Tracker) UserTurns() int { return t.userTurns }

// BookingCompleted reports the booking outcome so far.
func (t *Tracker) BookingCompleted() bool { return t.bookingCompleted }

// Finalize persists the call's metrics and transcript. Returns the
// stored metrics row.
func (t *Tracker) Finalize(ctx context.Context, metrics database.CallMetricsRepository, turns database.ConversationTurnRepository) (*models.CallMetrics, error) {
	end := t.now().UTC()

	tools, err := json.Marshal(t.toolsCalled)
	if err != nil {
		return nil, fmt.Errorf("marshal tools: %w", err)
	}

	m := &models.CallMetrics{
		CallSID:              t.callSID,
		CallStart:            t.callStart,
		CallEnd:              &end,
		TotalDurationSec:     end.Sub(t.callStart).Seconds(),
		UserTurns:            t.userTurns,
		AgentTurns:           t.agentTurns,
		ClarificationsNeeded: t.clarificationsNeeded,
		BookingCompleted:     t.bookingCompleted,
		IntentFulfilled:      t.intentFulfilled,
		UserHungUpEarly:      t.userHungUpEarly,
		ToolsCalled:          string(tools),
		TotalLatencyMS:       t.totalLatencyMS,
		APIErrors:            t.apiErrors,
		PromptVersion:        t.promptVersion,
		CallerPhone:          t.callerPhone,
	}
	if err := metrics.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("save call metrics: %w", err)
	}

	for i, tr := range t.turns {
		row := &models.ConversationTurn{
			CallSID:    t.callSID,
			TurnNumber: i + 1,
			Speaker:    tr.speaker,
			Transcript: tr.transcript,
			Timestamp:  tr.at,
		}
		if err := turns.Create(ctx, row); err != nil {
			return nil, fmt.Errorf("save turn %d: %w", i+1, err)
		}
	}

	return m, nil
}

// Store holds the trackers of calls currently in progress.
type Store struct {
	mu       sync.Mutex
	trackers map[string]*Tracker
}

// NewStore builds an empty Store.
func NewStore() *Store {
	return &Store{trackers: make(map[string]*Tracker)}
}

// Start begins tracking a call, replacing any stale tracker for the
// same SID.
func (s *Store) Start(callSID, callerPhone string) *Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := NewTracker(callSID, callerPhone)
	s.trackers[callSID] = t
	return t
}

// Get returns the tracker for an active call, or nil.
func (s *Store) Get(callSID string) *Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackers[callSID]
}

// Remove forgets a call's tracker and returns it, or nil when the call
// was never tracked.
func (s *Store) Remove(callSID string) *Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.trackers[callSID]
	delete(s.trackers, callSID)
	return t
}

// Active returns the number of calls currently tracked.
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trackers)
}

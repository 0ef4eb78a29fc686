package api

import (
	"log/slog"
	"net/http"

	"github.com/tavolo/tavolo/internal/sounds"
)

// Spoken prompts for the Twilio voice flow.
const (
	callGreeting = "Hello! Welcome to Luigi's Italian Restaurant. This is your AI assistant. How can I help you today?"
	noInputText  = "I didn't hear anything. Goodbye!"
	callGoodbye  = "Thank you for calling Luigi's! Goodbye!"
)

// handleVoice answers a new inbound call: start tracking, open a
// conversation and greet the caller inside a speech Gather.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	callSID := r.PostFormValue("CallSid")
	if callSID == "" {
		callSID = "unknown"
	}
	callerPhone := r.PostFormValue("From")

	slog.Info("incoming call", "call_sid", callSID, "from", callerPhone)

	tracker := s.calls.Start(callSID, callerPhone)
	tracker.AddAgentTurn(callGreeting)
	s.agent.StartConversation(callSID, callerPhone)

	writeTwiML(w, twimlResponse{Verbs: []any{
		speechGather("/process-speech", "", callGreeting),
		say(noInputText),
	}})
}

// handleProcessSpeech runs one conversation turn: transcribed speech in,
// agent reply out. The typing sound plays inside the next Gather to
// cover model latency, and the trailing Say ends the call when the
// caller stays silent.
func (s *Server) handleProcessSpeech(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	callSID := r.PostFormValue("CallSid")
	if callSID == "" {
		callSID = "unknown"
	}
	userSpeech := r.PostFormValue("SpeechResult")

	slog.Info("user speech", "call_sid", callSID, "speech", userSpeech)

	tracker := s.calls.Get(callSID)
	if tracker == nil {
		// Webhook arrived without a preceding /voice, e.g. after a restart.
		tracker = s.calls.Start(callSID, r.PostFormValue("From"))
	}
	tracker.AddUserTurn(userSpeech)

	result := s.agent.Respond(r.Context(), callSID, userSpeech)

	tracker.AddAgentTurn(result.Reply)
	if n := len(result.ToolsCalled); n > 0 {
		// Distribute the turn's total tool latency evenly.
		per := result.ToolLatencyMS / float64(n)
		for _, name := range result.ToolsCalled {
			tracker.AddToolCall(name, per)
		}
	}
	tracker.AddAPIErrors(result.APIErrors)
	if result.BookingCompleted {
		tracker.SetBookingCompleted(true)
	}
	if result.IntentFulfilled {
		tracker.SetIntentFulfilled(true)
	}

	typingSoundURL := s.cfg.BaseURL + "/static/sounds/" + sounds.TypingSound

	writeTwiML(w, twimlResponse{Verbs: []any{
		say(result.Reply),
		speechGather("/process-speech", typingSoundURL, ""),
		say(callGoodbye),
	}})
}

// handleCallStatus finalizes a call when Twilio reports it over:
// persist the metrics and transcript, drop in-memory state and run the
// heuristic quality pass. AI scoring is left to the batch worker.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	callSID := r.PostFormValue("CallSid")
	callStatus := r.PostFormValue("CallStatus")

	slog.Info("call status", "call_sid", callSID, "status", callStatus)

	switch callStatus {
	case "completed", "busy", "failed", "no-answer", "canceled":
	default:
		// Intermediate status, nothing to finalize yet.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.agent.EndConversation(callSID)

	tracker := s.calls.Remove(callSID)
	if tracker == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Anything other than a clean completion counts as the caller
	// abandoning the call.
	if callStatus != "completed" {
		tracker.SetUserHungUpEarly(true)
	}

	metrics, err := tracker.Finalize(r.Context(), s.callMetrics, s.turns)
	if err != nil {
		slog.Error("failed to finalize call", "call_sid", callSID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to finalize call")
		return
	}

	if _, err := s.analyzer.Analyze(r.Context(), metrics.CallSID, false); err != nil {
		slog.Error("heuristic quality pass failed", "call_sid", callSID, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

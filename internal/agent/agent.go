// Package agent runs the phone conversation: it keeps per-call history,
// asks the model for the next reply and executes the reservation tools
// the model requests, chaining tool calls until the model produces
// speech.
package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tavolo/tavolo/internal/booking"
	"github.com/tavolo/tavolo/internal/llm"
)

// maxToolRounds bounds tool chaining in a single turn. Three rounds
// cover the longest real chain, get_current_date into
// check_availability into create_reservation.
const maxToolRounds = 3

// conversation is the in-memory state of one active call.
type conversation struct {
	callerPhone string
	history     []openai.ChatCompletionMessage
}

// Result is what one user utterance produced, with the measurements the
// call tracker wants.
type Result struct {
	Reply            string
	ToolsCalled      []string
	ToolLatencyMS    float64
	APIErrors        int
	BookingCompleted bool
	IntentFulfilled  bool
}

// Agent answers caller speech. Safe for concurrent calls with distinct
// call SIDs.
type Agent struct {
	llm        *llm.Client
	dispatcher *dispatcher
	tools      []openai.Tool
	logger     *slog.Logger

	mu            sync.Mutex
	conversations map[string]*conversation
}

// New builds an Agent over the model client and booking service.
func New(client *llm.Client, svc *booking.Service, logger *slog.Logger) *Agent {
	return &Agent{
		llm:           client,
		dispatcher:    newDispatcher(svc, logger),
		tools:         toolDefinitions(),
		logger:        logger,
		conversations: make(map[string]*conversation),
	}
}

// StartConversation registers a new call.
func (a *Agent) StartConversation(callSID, callerPhone string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conversations[callSID] = &conversation{callerPhone: callerPhone}
}

// EndConversation drops the call's history.
func (a *Agent) EndConversation(callSID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.conversations, callSID)
}

// ActiveConversations returns the number of calls currently tracked.
func (a *Agent) ActiveConversations() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.conversations)
}

// Respond handles one transcribed utterance and returns the agent's
// spoken reply. Tool calls requested by the model run against the
// booking service, their results are fed back, and the loop repeats
// until the model answers in text or the round limit trips.
func (a *Agent) Respond(ctx context.Context, callSID, userSpeech string) *Result {
	a.mu.Lock()
	conv, ok := a.conversations[callSID]
	if !ok {
		// Mid-call restart or a webhook race. Start fresh rather
		// than dropping the caller.
		conv = &conversation{}
		a.conversations[callSID] = conv
	}
	a.mu.Unlock()

	conv.history = append(conv.history, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userSpeech,
	})

	result := &Result{}
	for round := 0; round <= maxToolRounds; round++ {
		comp, err := a.llm.Complete(ctx, conv.history, a.tools)
		if err != nil {
			a.logger.Error("completion failed", "call_sid", callSID, "error", err)
			result.APIErrors++
			result.Reply = llm.FallbackReply
			return result
		}

		if !comp.WantsTools {
			result.Reply = comp.Message.Content
			conv.history = append(conv.history, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: comp.Message.Content,
			})
			return result
		}

		conv.history = append(conv.history, comp.Message)
		for _, call := range comp.Message.ToolCalls {
			a.runTool(ctx, conv, call, callSID, result)
		}
	}

	// The model kept chaining past the round limit.
	a.logger.Warn("tool round limit reached", "call_sid", callSID)
	result.Reply = "I'm sorry, I had trouble with that. Could you try again?"
	return result
}

func (a *Agent) runTool(ctx context.Context, conv *conversation, call openai.ToolCall, callSID string, result *Result) {
	a.logger.Info("tool call",
		"call_sid", callSID,
		"tool", call.Function.Name,
		"arguments", call.Function.Arguments)

	start := time.Now()
	out, outcome, err := a.dispatcher.execute(ctx, call, conv.callerPhone, callSID)
	result.ToolLatencyMS += float64(time.Since(start)) / float64(time.Millisecond)
	result.ToolsCalled = append(result.ToolsCalled, call.Function.Name)

	if err != nil {
		a.logger.Error("tool failed", "call_sid", callSID, "tool", call.Function.Name, "error", err)
		out = `{"success": false, "error": "tool execution failed"}`
	}
	if outcome.BookingCompleted {
		result.BookingCompleted = true
	}
	if outcome.IntentFulfilled {
		result.IntentFulfilled = true
	}

	conv.history = append(conv.history, openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		ToolCallID: call.ID,
		Content:    out,
	})
}

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tavolo/tavolo/internal/booking"
	"github.com/tavolo/tavolo/internal/database"
	"github.com/tavolo/tavolo/internal/database/models"
	"github.com/tavolo/tavolo/internal/llm"
)

type scriptedAPI struct {
	responses []openai.ChatCompletionResponse
	err       error
	requests  []openai.ChatCompletionRequest
}

func (s *scriptedAPI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	idx := len(s.requests) - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func textTurn(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
	}
}

func toolTurn(id, name, args string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:       id,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: name, Arguments: args},
				}},
			},
			FinishReason: openai.FinishReasonToolCalls,
		}},
	}
}

func newTestAgent(t *testing.T, api llm.ChatCompleter) (*Agent, *database.DB) {
	t.Helper()
	db, err := database.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := booking.NewService(
		database.NewReservationRepository(db),
		database.NewDiningTableRepository(db),
		nil, 17, 22, logger,
	)
	client := llm.NewClientWithAPI(api, "gpt-4o", 150)
	return New(client, svc, logger), db
}

func TestRespondPlainReply(t *testing.T) {
	api := &scriptedAPI{responses: []openai.ChatCompletionResponse{
		textTurn("Of course! For how many people?"),
	}}
	agent, _ := newTestAgent(t, api)
	agent.StartConversation("CA001", "+15550001111")

	result := agent.Respond(context.Background(), "CA001", "I'd like a table")
	if result.Reply != "Of course! For how many people?" {
		t.Errorf("Reply = %q", result.Reply)
	}
	if len(result.ToolsCalled) != 0 || result.BookingCompleted {
		t.Errorf("unexpected side effects: %+v", result)
	}

	// History carries over to the next turn: system + user + assistant
	// + user on the second request.
	agent.Respond(context.Background(), "CA001", "Four people")
	last := api.requests[len(api.requests)-1]
	if len(last.Messages) != 4 {
		t.Errorf("second request has %d messages, want 4", len(last.Messages))
	}
}

func TestRespondToolChainBooksTable(t *testing.T) {
	api := &scriptedAPI{responses: []openai.ChatCompletionResponse{
		toolTurn("call_1", toolGetCurrentDate, `{}`),
		toolTurn("call_2", toolCheckAvailability, `{"party_size":4,"date":"2025-06-20","time":"19:00"}`),
		toolTurn("call_3", toolCreateReservation, `{"name":"Garcia","party_size":4,"date":"2025-06-20","time":"19:00"}`),
		textTurn("You're all set for tomorrow at 7 PM!"),
	}}
	agent, db := newTestAgent(t, api)
	agent.StartConversation("CA002", "+15550001111")

	result := agent.Respond(context.Background(), "CA002", "Book me a table for four tomorrow at 7pm, name is Garcia")
	if result.Reply != "You're all set for tomorrow at 7 PM!" {
		t.Errorf("Reply = %q", result.Reply)
	}
	if len(result.ToolsCalled) != 3 {
		t.Fatalf("ToolsCalled = %v, want 3 tools", result.ToolsCalled)
	}
	if !result.BookingCompleted || !result.IntentFulfilled {
		t.Errorf("booking flags not set: %+v", result)
	}

	// The reservation exists and carries the caller identity the model
	// never saw.
	found, err := database.NewReservationRepository(db).List(context.Background(), database.ReservationListFilter{Date: "2025-06-20"})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("got %d reservations, want 1", len(found))
	}
	if found[0].Phone != "+15550001111" || found[0].CallSID != "CA002" {
		t.Errorf("caller identity not injected: %+v", found[0])
	}
	if found[0].Status != models.ReservationConfirmed {
		t.Errorf("status = %q", found[0].Status)
	}

	// Tool results flowed back as tool-role messages.
	last := api.requests[len(api.requests)-1]
	toolMsgs := 0
	for _, m := range last.Messages {
		if m.Role == openai.ChatMessageRoleTool {
			toolMsgs++
		}
	}
	if toolMsgs != 3 {
		t.Errorf("final request carries %d tool messages, want 3", toolMsgs)
	}
}

func TestRespondToolRoundLimit(t *testing.T) {
	api := &scriptedAPI{responses: []openai.ChatCompletionResponse{
		toolTurn("call_x", toolGetCurrentDate, `{}`),
	}}
	agent, _ := newTestAgent(t, api)
	agent.StartConversation("CA003", "")

	result := agent.Respond(context.Background(), "CA003", "hello")
	if result.Reply == "" {
		t.Fatal("expected an apology reply")
	}
	if len(result.ToolsCalled) != maxToolRounds+1 {
		t.Errorf("ToolsCalled = %d, want %d", len(result.ToolsCalled), maxToolRounds+1)
	}
}

func TestRespondAPIFailure(t *testing.T) {
	api := &scriptedAPI{err: errors.New("connection refused")}
	agent, _ := newTestAgent(t, api)
	agent.StartConversation("CA004", "")

	result := agent.Respond(context.Background(), "CA004", "hello")
	if result.Reply != llm.FallbackReply {
		t.Errorf("Reply = %q, want fallback", result.Reply)
	}
	if result.APIErrors != 1 {
		t.Errorf("APIErrors = %d, want 1", result.APIErrors)
	}
}

func TestRespondUnknownCallStartsFresh(t *testing.T) {
	api := &scriptedAPI{responses: []openai.ChatCompletionResponse{textTurn("Hi!")}}
	agent, _ := newTestAgent(t, api)

	result := agent.Respond(context.Background(), "CA999", "hello")
	if result.Reply != "Hi!" {
		t.Errorf("Reply = %q", result.Reply)
	}
	if agent.ActiveConversations() != 1 {
		t.Errorf("ActiveConversations() = %d, want 1", agent.ActiveConversations())
	}
}

func TestEndConversation(t *testing.T) {
	api := &scriptedAPI{responses: []openai.ChatCompletionResponse{textTurn("Hi!")}}
	agent, _ := newTestAgent(t, api)
	agent.StartConversation("CA005", "")
	agent.EndConversation("CA005")
	if agent.ActiveConversations() != 0 {
		t.Errorf("ActiveConversations() = %d, want 0", agent.ActiveConversations())
	}
}

func TestDispatcherCancelUnknownName(t *testing.T) {
	agent, _ := newTestAgent(t, &scriptedAPI{responses: []openai.ChatCompletionResponse{textTurn("")}})

	call := openai.ToolCall{
		ID:       "call_1",
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: toolCancelReservation, Arguments: `{"name":"Nobody"}`},
	}
	out, outcome, err := agent.dispatcher.execute(context.Background(), call, "", "CA006")
	if err != nil {
		t.Fatalf("execute() error: %v", err)
	}
	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("bad tool output %q: %v", out, err)
	}
	if payload.Success || payload.Error == "" {
		t.Errorf("payload = %+v, want failure with reason", payload)
	}
	if outcome.IntentFulfilled {
		t.Error("IntentFulfilled set on failed cancellation")
	}
}

func TestDispatcherUnknownTool(t *testing.T) {
	agent, _ := newTestAgent(t, &scriptedAPI{responses: []openai.ChatCompletionResponse{textTurn("")}})

	call := openai.ToolCall{
		ID:       "call_1",
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: "order_pizza", Arguments: `{}`},
	}
	if _, _, err := agent.dispatcher.execute(context.Background(), call, "", "CA007"); err == nil {
		t.Fatal("expected an error for an unknown tool")
	}
}

// Package llm wraps the OpenAI chat completion API for the phone agent
// and the conversation quality judge.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// FallbackReply is spoken when the model cannot be reached. Short and
// recoverable, the caller is mid phone call.
const FallbackReply = "I'm sorry, I'm having trouble thinking right now. Could you repeat that?"

// SystemPrompt steers the agent. Responses must stay short because they
// are read out over the phone.
const SystemPrompt = `You are a friendly AI assistant for Luigi's Italian Restaurant.

Your job is to help customers make reservations over the phone.

Guidelines:
- Be warm, friendly, and professional
- Keep responses SHORT (1-2 sentences) - this is a phone call
- Ask for: party size, date, time, and name
- Confirm all details before finalizing
- If asked about menu or hours, politely say you can transfer them to the restaurant

Remember: Keep responses brief and conversational. You're speaking, not writing.`

// ChatCompleter is the slice of the OpenAI client this package needs.
// *openai.Client satisfies it.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client produces agent turns for an ongoing phone conversation.
type Client struct {
	api       ChatCompleter
	model     string
	maxTokens int
	system    string
}

// NewClient builds a Client against the real OpenAI API.
func NewClient(apiKey, model string, maxTokens int) *Client {
	return NewClientWithAPI(openai.NewClient(apiKey), model, maxTokens)
}

// NewClientWithAPI builds a Client over any ChatCompleter.
func NewClientWithAPI(api ChatCompleter, model string, maxTokens int) *Client {
	return &Client{
		api:       api,
		model:     model,
		maxTokens: maxTokens,
		system:    SystemPrompt,
	}
}

// Completion is one assistant turn. When WantsTools is set the message
// carries tool calls that must be executed and fed back.
type Completion struct {
	Message    openai.ChatCompletionMessage
	WantsTools bool
}

// Complete sends the conversation so far, with the agent's tools, and
// returns the next assistant turn. The system prompt is prepended on
// every request; history holds only user, assistant and tool messages.
func (c *Client) Complete(ctx context.Context, history []openai.ChatCompletionMessage, tools []openai.Tool) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: c.system,
	})
	messages = append(messages, history...)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
		Tools:     tools,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	return &Completion{
		Message:    choice.Message,
		WantsTools: choice.FinishReason == openai.FinishReasonToolCalls || len(choice.Message.ToolCalls) > 0,
	}, nil
}

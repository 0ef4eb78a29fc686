package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultScore stands in for the AI-judged dimensions when no judge ran
// or the judge failed. Batch analysis later replaces it.
const DefaultScore = 75.0

const naturalnessCriteria = `1. Greeting appropriateness (5-20 words, friendly not overly formal)
2. Natural language (sounds human, not robotic or scripted)
3. Smooth topic transitions (not abrupt)
4. Appropriate pacing (not too fast or slow)
5. Natural acknowledgments (uses "great", "perfect", etc naturally)`

const professionalismCriteria = `1. Courteous language (uses "please", "thank you", not demanding)
2. Appropriate formality (not too casual, not too stiff)
3. Clear communication (complete sentences, good grammar)
4. Handles issues gracefully (stays calm, doesn't blame)
5. No slang or inappropriate language`

// Judge scores call transcripts on the subjective quality dimensions
// with a small LLM call per dimension.
type Judge struct {
	api   ChatCompleter
	model string
}

// NewJudge builds a Judge against the real OpenAI API.
func NewJudge(apiKey, model string) *Judge {
	return NewJudgeWithAPI(openai.NewClient(apiKey), model)
}

// NewJudgeWithAPI builds a Judge over any ChatCompleter.
func NewJudgeWithAPI(api ChatCompleter, model string) *Judge {
	return &Judge{api: api, model: model}
}

// ScoreNaturalness rates how human the conversation sounds, 0-100.
func (j *Judge) ScoreNaturalness(ctx context.Context, transcript string) (float64, error) {
	return j.score(ctx, "NATURALNESS", naturalnessCriteria, transcript)
}

// ScoreProfessionalism rates tone and courtesy, 0-100.
func (j *Judge) ScoreProfessionalism(ctx context.Context, transcript string) (float64, error) {
	return j.score(ctx, "PROFESSIONALISM", professionalismCriteria, transcript)
}

func (j *Judge) score(ctx context.Context, dimension, criteria, transcript string) (float64, error) {
	prompt := fmt.Sprintf(`You are a conversation quality expert analyzing phone calls.

Rate this conversation for %s (0-100):

%s

Criteria:
%s

Return ONLY a JSON object with this exact format:
{"score": 85, "reasoning": "brief explanation"}`, dimension, transcript, criteria)

	resp, err := j.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     j.model,
		MaxTokens: 200,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("judge completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return 0, fmt.Errorf("judge completion returned no choices")
	}

	return parseScore(resp.Choices[0].Message.Content)
}

// parseScore extracts the score from the judge's reply, tolerating
// markdown code fences around the JSON.
func parseScore(reply string) (float64, error) {
	cleaned := strings.ReplaceAll(reply, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	var payload struct {
		Score     *float64 `json:"score"`
		Reasoning string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return 0, fmt.Errorf("parse judge reply %q: %w", reply, err)
	}
	if payload.Score == nil {
		return DefaultScore, nil
	}
	score := *payload.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}

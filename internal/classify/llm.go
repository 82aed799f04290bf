package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"
)

// maxTicketChars bounds the ticket text sent to the model.
// Rough estimate: 1 token is about 4 characters.
const maxTicketChars = 8000

// LLM classifies tickets the rule table could not, using a small
// JSON-mode chat completion.
type LLM struct {
	client *openai.Client
	model  openai.ChatModel
}

// NewLLM creates an LLM classifier with the given OpenAI client.
func NewLLM(client *openai.Client) *LLM {
	return &LLM{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// llmResponse is the shape the prompt asks the model to produce.
type llmResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// Classify asks the model for an intent. The model never grants
// automation: an LLM-derived intent always requires human review.
func (l *LLM) Classify(ctx context.Context, text string) (*Result, error) {
	if len(text) > maxTicketChars {
		text = text[:maxTicketChars]
	}

	prompt := fmt.Sprintf(`You are an IT support triage assistant. Classify the following ticket into exactly one of these intents:
PASSWORD_RESET, SYSTEM_RESTART, VPN_ACCESS, BACKUP_VERIFICATION, SOFTWARE_INSTALLATION, PRINTER_ISSUE, EMAIL_ISSUE, NETWORK_CONNECTIVITY, UNKNOWN

Ticket:
%s

Respond in JSON format:
{"intent": "PASSWORD_RESET", "confidence": 0.0, "reasoning": "one short sentence"}`, text)

	resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       l.model,
		Temperature: openai.Float(0),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: "json_object",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	intent := Intent(parsed.Intent)
	if !knownIntent(intent) {
		intent = IntentUnknown
	}
	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	reasoning := parsed.Reasoning
	if reasoning == "" {
		reasoning = "LLM classification."
	}

	return &Result{
		Intent:        intent,
		Confidence:    confidence,
		IsAutomatable: false,
		Reasoning:     reasoning,
	}, nil
}

func knownIntent(intent Intent) bool {
	if intent == IntentUnknown {
		return true
	}
	for _, r := range rules {
		if r.intent == intent {
			return true
		}
	}
	return false
}

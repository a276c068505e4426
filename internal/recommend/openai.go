package recommend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"recovery-engine/internal/logger"
)

// OpenAIAugmenter enriches recommendations through the OpenAI chat API.
// Output is parsed and validated; callers fall back to rules on any error.
type OpenAIAugmenter struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewOpenAIAugmenter creates an augmenter around an existing client. Model
// defaults to gpt-4o-mini when empty.
func NewOpenAIAugmenter(client *openai.Client, model string) *OpenAIAugmenter {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAugmenter{
		client: client,
		model:  model,
		log:    logger.WithComponent("recommendation-augmenter"),
	}
}

// Augment asks the model for recommendations and re-validates the result
// structurally. Returned recommendations always carry the standard
// disclaimer regardless of what the model produced.
func (a *OpenAIAugmenter) Augment(ctx context.Context, input Input) ([]Recommendation, error) {
	const op = "Augment"

	prompt := buildPrompt(input)

	a.log.Debug().
		Str("client", input.ClientName).
		Int("days_past_due", input.DaysPastDue).
		Msg("Requesting augmented recommendations")

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are an accounts-receivable analyst. You produce cautious, " +
					"non-directive collection suggestions phrased with words like 'could', " +
					"'consider' and 'might'. You respond only with a JSON array, no prose.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
		MaxTokens:   1200,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: chat completion failed: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: no response choices from model", op)
	}

	raw := stripFences(resp.Choices[0].Message.Content)

	var items []wireRecommendation
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		a.log.Warn().
			Err(err).
			Str("client", input.ClientName).
			Msg("Model response was not a parseable recommendation array")
		return nil, fmt.Errorf("%s: unparseable model response: %w", op, err)
	}

	recs := validateItems(items)
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoValidRecommendations)
	}

	a.log.Debug().
		Str("client", input.ClientName).
		Int("raw_items", len(items)).
		Int("valid_items", len(recs)).
		Msg("Validated augmented recommendations")

	return recs, nil
}

// buildPrompt renders a bounded prompt from the analysis input. Only the
// fields below are ever sent; amounts are formatted, not raw records.
func buildPrompt(input Input) string {
	return fmt.Sprintf(`Suggest collection recommendations for this receivable situation:

CLIENT CONTEXT:
- Client: %s
- Payment score (0-100): %d
- Average days to payment: %.0f
- Late-payment rate: %.0f%%
- Current invoice: %s, %d days past due
- Total outstanding across invoices: %s

Respond with a JSON array of at most 4 objects, each shaped exactly as:
{
  "type": "collection_strategy" | "payment_terms" | "client_risk" | "cash_flow",
  "title": "...",
  "description": "...",
  "priority": "low" | "medium" | "high" | "critical",
  "actions": ["...", "..."],
  "reasoning": "...",
  "confidence": 0.0
}

Phrase every suggestion non-directively ("could", "consider", "might").`,
		input.ClientName,
		input.ClientScore,
		input.AvgDaysToPayment,
		input.LatePaymentRate*100,
		formatAmount(input.InvoiceAmount),
		input.DaysPastDue,
		formatAmount(input.TotalOutstanding))
}

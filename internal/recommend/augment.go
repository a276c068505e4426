package recommend

import (
	"context"
	"errors"
	"strings"
)

// Augmenter is the capability port for language-model enrichment. Exactly
// one method; implementations are treated as untrusted text generators and
// every result is re-validated before use. Callers always keep the
// rule-based path as fallback.
type Augmenter interface {
	Augment(ctx context.Context, input Input) ([]Recommendation, error)
}

// ErrNoValidRecommendations is returned when a model response parses but
// yields zero items that survive validation.
var ErrNoValidRecommendations = errors.New("model output contained no valid recommendations")

// Validation caps applied to model output. Rule-based output is built
// within these bounds by construction.
const (
	maxTitleLen       = 120
	maxDescriptionLen = 1000
	maxReasoningLen   = 1000
	maxActions        = 10
	maxActionLen      = 200
)

// wireRecommendation is the loose shape accepted from the model before
// validation. Field types are primitives only; anything else fails decode.
type wireRecommendation struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Actions     []string `json:"actions"`
	Reasoning   string   `json:"reasoning"`
	Confidence  float64  `json:"confidence"`
}

// validateItems converts wire items into Recommendations, dropping items
// without a usable title or description, defaulting unknown enums, and
// clamping or truncating everything else. The disclaimer and educational
// flag are forced on: the model is never trusted to carry them.
func validateItems(items []wireRecommendation) []Recommendation {
	var out []Recommendation
	for _, item := range items {
		title := truncate(strings.TrimSpace(item.Title), maxTitleLen)
		description := truncate(strings.TrimSpace(item.Description), maxDescriptionLen)
		if title == "" || description == "" {
			continue
		}

		recType := RecType(item.Type)
		if !validRecType(recType) {
			recType = TypeCollectionStrategy
		}
		priority := Priority(item.Priority)
		if !validPriority(priority) {
			priority = PriorityMedium
		}

		confidence := item.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}

		actions := make([]string, 0, len(item.Actions))
		for _, a := range item.Actions {
			a = truncate(strings.TrimSpace(a), maxActionLen)
			if a == "" {
				continue
			}
			actions = append(actions, a)
			if len(actions) == maxActions {
				break
			}
		}

		out = append(out, Recommendation{
			Type:          recType,
			Title:         title,
			Description:   description,
			Priority:      priority,
			Actions:       actions,
			Reasoning:     truncate(strings.TrimSpace(item.Reasoning), maxReasoningLen),
			Confidence:    confidence,
			Disclaimer:    disclaimer,
			IsEducational: true,
		})
	}
	return out
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"recovery-engine/internal/engine"
	"recovery-engine/internal/logger"
)

// All rule templates are phrased non-directively (could / consider /
// might). The engine suggests; it never instructs.
const disclaimer = "Educational estimate derived from payment history. " +
	"Outcomes are probabilistic, not guaranteed, and this is not financial or legal advice."

// Engine produces recommendations. The rule-based path has no external
// dependency and never fails; the optional augmenter is consulted first
// when configured and the rules serve as its fallback.
type Engine struct {
	thresholds engine.Thresholds
	augmenter  Augmenter
	timeout    time.Duration
	log        zerolog.Logger
}

// NewEngine creates a rule-only engine.
func NewEngine(thresholds engine.Thresholds) *Engine {
	return &Engine{
		thresholds: thresholds,
		timeout:    15 * time.Second,
		log:        logger.WithComponent("recommendation-engine"),
	}
}

// WithAugmenter attaches a language-model augmenter. The augmenter is an
// enhancement: any error, timeout, or empty result falls back to the
// rule-based path.
func (e *Engine) WithAugmenter(a Augmenter) *Engine {
	e.augmenter = a
	return e
}

// Generate returns recommendations for the input, preferring the
// augmenter when one is configured and its output survives validation.
func (e *Engine) Generate(ctx context.Context, input Input) []Recommendation {
	if e.augmenter == nil {
		return e.RuleBased(input)
	}

	augCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	recs, err := e.augmenter.Augment(augCtx, input)
	if err != nil || len(recs) == 0 {
		e.log.Warn().
			Err(err).
			Str("client", input.ClientName).
			Msg("Augmenter unavailable or returned nothing usable, using rule-based recommendations")
		return e.RuleBased(input)
	}

	e.log.Debug().
		Str("client", input.ClientName).
		Int("recommendations", len(recs)).
		Msg("Using augmented recommendations")
	return recs
}

// RuleBased evaluates the deterministic branches. It is a total function:
// every input yields zero or more recommendations and no error.
func (e *Engine) RuleBased(input Input) []Recommendation {
	var recs []Recommendation

	if r, ok := e.overdueBranch(input); ok {
		recs = append(recs, r)
	}
	if r, ok := e.clientRiskBranch(input); ok {
		recs = append(recs, r)
	}
	if r, ok := e.slowPayerBranch(input); ok {
		recs = append(recs, r)
	}
	if r, ok := e.concentrationBranch(input); ok {
		recs = append(recs, r)
	}

	return recs
}

// overdueBranch escalates tone with the number of days past due.
func (e *Engine) overdueBranch(input Input) (Recommendation, bool) {
	d := input.DaysPastDue
	switch {
	case d >= 1 && d <= 7:
		return Recommendation{
			Type:     TypeCollectionStrategy,
			Title:    "Friendly payment reminder",
			Priority: PriorityMedium,
			Description: fmt.Sprintf("The invoice for %s is %d days past due. "+
				"A light-touch reminder could resolve this before it escalates; many short delays are oversights.",
				input.ClientName, d),
			Actions: []string{
				"Consider sending a friendly reminder referencing the original invoice",
				"A payment-link resend might remove friction for the payer",
			},
			Reasoning:     fmt.Sprintf("Invoices 1-7 days past due recover well with gentle outreach (client score %d).", input.ClientScore),
			Confidence:    0.85,
			Disclaimer:    disclaimer,
			IsEducational: true,
		}, true
	case d >= 8 && d <= 30:
		return Recommendation{
			Type:     TypeCollectionStrategy,
			Title:    "Escalate to direct follow-up",
			Priority: PriorityHigh,
			Description: fmt.Sprintf("The invoice for %s is %d days past due. "+
				"A phone follow-up could surface a dispute or cash problem that written reminders miss.",
				input.ClientName, d),
			Actions: []string{
				"Consider a phone call to the accounts-payable contact",
				"A second written notice with a clear settlement date might help",
				"Offering a short payment plan could keep the relationship intact",
			},
			Reasoning:     fmt.Sprintf("At %d days past due, passive reminders lose effectiveness; direct contact recovers more.", d),
			Confidence:    0.75,
			Disclaimer:    disclaimer,
			IsEducational: true,
		}, true
	case d > 30:
		return Recommendation{
			Type:     TypeCollectionStrategy,
			Title:    "Formal escalation review",
			Priority: PriorityCritical,
			Description: fmt.Sprintf("The invoice for %s is %d days past due. "+
				"A final notice could be appropriate, and a collection-agency review might be worth considering if it goes unanswered.",
				input.ClientName, d),
			Actions: []string{
				"Consider issuing a formal final notice with a response deadline",
				"A collection-agency or legal review could be evaluated for this balance",
				"Pausing further work or deliveries for this client might limit exposure",
				"A structured payment plan could still recover part of the balance",
			},
			Reasoning:     fmt.Sprintf("Recovery likelihood declines sharply past 30 days; this invoice is at %d days.", d),
			Confidence:    0.7,
			Disclaimer:    disclaimer,
			IsEducational: true,
		}, true
	}
	return Recommendation{}, false
}

// clientRiskBranch flags customers whose score puts them in the critical band.
func (e *Engine) clientRiskBranch(input Input) (Recommendation, bool) {
	if input.ClientScore >= e.thresholds.HighRiskScore {
		return Recommendation{}, false
	}
	return Recommendation{
		Type:     TypeClientRisk,
		Title:    "Review payment terms for this client",
		Priority: PriorityHigh,
		Description: fmt.Sprintf("%s has a payment score of %d and a late-payment rate of %.0f%%. "+
			"It could be worth a review of the payment terms extended to this client.",
			input.ClientName, input.ClientScore, input.LatePaymentRate*100),
		Actions: []string{
			"Consider shorter terms or deposits for future work",
			"Credit-limit caps might reduce exposure to this client",
			"A direct conversation about payment expectations could reset the pattern",
		},
		Reasoning:     fmt.Sprintf("A score below %d with %.0f%% late payments indicates persistent payment risk.", e.thresholds.HighRiskScore, input.LatePaymentRate*100),
		Confidence:    0.8,
		Disclaimer:    disclaimer,
		IsEducational: true,
	}, true
}

// slowPayerBranch suggests early-payment incentives for chronically slow payers.
func (e *Engine) slowPayerBranch(input Input) (Recommendation, bool) {
	if input.AvgDaysToPayment <= e.thresholds.SlowPaymentDays {
		return Recommendation{}, false
	}
	return Recommendation{
		Type:     TypePaymentTerms,
		Title:    "Early-payment discount could speed collection",
		Priority: PriorityMedium,
		Description: fmt.Sprintf("%s takes %.0f days on average to pay. "+
			"A small early-payment discount might pull payments forward at a known cost.",
			input.ClientName, input.AvgDaysToPayment),
		Actions: []string{
			"Consider a 1-2% discount for payment within 10 days",
			"Milestone-based invoicing could shrink each outstanding balance",
		},
		Reasoning:     fmt.Sprintf("Average days-to-payment of %.0f exceeds the %.0f-day slow-payer threshold.", input.AvgDaysToPayment, e.thresholds.SlowPaymentDays),
		Confidence:    0.7,
		Disclaimer:    disclaimer,
		IsEducational: true,
	}, true
}

// concentrationBranch flags a large outstanding balance concentrated in
// one client.
func (e *Engine) concentrationBranch(input Input) (Recommendation, bool) {
	if input.TotalOutstanding <= e.thresholds.ConcentrationLimit {
		return Recommendation{}, false
	}
	return Recommendation{
		Type:     TypeCashFlow,
		Title:    "Concentration risk in outstanding receivables",
		Priority: PriorityHigh,
		Description: fmt.Sprintf("%s carries %s in outstanding invoices, a concentration risk to cash flow. "+
			"Spreading exposure or accelerating collection here could matter more than any single invoice.",
			input.ClientName, formatAmount(input.TotalOutstanding)),
		Actions: []string{
			"Consider prioritizing collection activity on this client's balances",
			"Progress billing might keep future exposure smaller",
			"A cash-flow buffer could cushion a delayed settlement of this balance",
		},
		Reasoning:     fmt.Sprintf("Outstanding balance %s exceeds the %s concentration threshold.", formatAmount(input.TotalOutstanding), formatAmount(e.thresholds.ConcentrationLimit)),
		Confidence:    0.75,
		Disclaimer:    disclaimer,
		IsEducational: true,
	}, true
}

// formatAmount renders a smallest-unit amount with two decimals.
func formatAmount(v int64) string {
	return fmt.Sprintf("%.2f", float64(v)/100)
}

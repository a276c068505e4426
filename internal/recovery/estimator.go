// Package recovery estimates per-invoice recovery likelihood and the
// expected payment date from the customer's payment score.
package recovery

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"recovery-engine/internal/engine"
	"recovery-engine/internal/logger"
)

// Estimator derives recovery figures for a single outstanding invoice.
type Estimator struct {
	thresholds engine.Thresholds
	log        zerolog.Logger
}

// NewEstimator creates an estimator with the given numeric policy.
func NewEstimator(thresholds engine.Thresholds) *Estimator {
	return &Estimator{
		thresholds: thresholds,
		log:        logger.WithComponent("recovery-estimator"),
	}
}

// Likelihood estimates the probability that the invoice amount will be
// collected. The base rate is the customer score, decayed exponentially
// for each day past due and penalized for invoice size; the penalties
// compound when both size bands are crossed. The result is clamped so it
// is never zero and never certainty.
func (e *Estimator) Likelihood(amount int64, daysPastDue int, customerScore int) float64 {
	t := e.thresholds

	likelihood := float64(customerScore) / 100

	if daysPastDue > 0 {
		likelihood *= math.Exp(-t.DecayRate * float64(daysPastDue))
	}

	if amount > t.LargeInvoice {
		likelihood *= t.LargePenalty
	}
	if amount > t.VeryLargeInvoice {
		likelihood *= t.VeryLargePenalty
	}

	return engine.Clamp(likelihood, t.MinLikelihood, t.MaxLikelihood)
}

// PredictPaymentDate estimates when the customer will actually pay an
// invoice due on dueDate, given their average days-to-payment and score.
// Good customers are assumed to pay near term regardless of their average;
// weak customers stretch their own average further out.
func (e *Estimator) PredictPaymentDate(dueDate time.Time, avgDaysToPayment float64, customerScore int) time.Time {
	t := e.thresholds

	var days float64
	switch {
	case customerScore >= t.LowRiskScore:
		days = math.Min(avgDaysToPayment, t.GoodPayerMaxDays)
	case customerScore >= t.MediumRiskScore:
		days = avgDaysToPayment
	case customerScore >= t.HighRiskScore:
		days = avgDaysToPayment * t.SlowPayerMultiplier
	default:
		days = avgDaysToPayment*t.PoorPayerMultiplier + t.PoorPayerExtraDays
	}

	return dueDate.AddDate(0, 0, int(math.Round(days)))
}

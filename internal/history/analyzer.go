// Package history turns a customer's invoice/payment records into a
// 0-100 payment-behavior score and the derived payment profile.
package history

import (
	"math"

	"github.com/rs/zerolog"

	"recovery-engine/internal/engine"
	"recovery-engine/internal/logger"
	"recovery-engine/pkg/models"
)

// Analyzer computes payment scores from settled payment history.
type Analyzer struct {
	thresholds engine.Thresholds
	log        zerolog.Logger
}

// NewAnalyzer creates an analyzer with the given numeric policy.
func NewAnalyzer(thresholds engine.Thresholds) *Analyzer {
	return &Analyzer{
		thresholds: thresholds,
		log:        logger.WithComponent("history-analyzer"),
	}
}

// Score combines four weighted factors over the settled records of a
// customer's history: on-time rate, average-lateness penalty, recent
// behavior, and payment consistency. Customers with no usable history get
// the neutral score rather than a penalty. The result is always in [0, 100].
func (a *Analyzer) Score(records []models.PaymentRecord) int {
	settled := settledOnly(records)
	if len(settled) == 0 {
		return a.thresholds.NeutralScore
	}

	t := a.thresholds
	raw := onTimeRate(settled)*100*t.WeightOnTime +
		a.latenessFactor(settled)*t.WeightLateness +
		a.recencyFactor(settled)*t.WeightRecency +
		a.consistencyFactor(settled)*t.WeightConsistency

	score := engine.ClampScore(raw)

	a.log.Debug().
		Int("settled_records", len(settled)).
		Int("score", score).
		Msg("Computed payment score")

	return score
}

// RiskLevel maps a payment score onto the four risk bands.
func (a *Analyzer) RiskLevel(score int) models.RiskLevel {
	t := a.thresholds
	switch {
	case score >= t.LowRiskScore:
		return models.RiskLow
	case score >= t.MediumRiskScore:
		return models.RiskMedium
	case score >= t.HighRiskScore:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// Profile computes the full derived payment profile for a history.
func (a *Analyzer) Profile(records []models.PaymentRecord) models.PaymentProfile {
	score := a.Score(records)
	settled := settledOnly(records)
	onTime := onTimeRate(settled)

	return models.PaymentProfile{
		Score:            score,
		RiskLevel:        a.RiskLevel(score),
		AvgDaysToPayment: AvgDaysToPayment(records),
		OnTimeRate:       onTime,
		LatePaymentRate:  1 - onTime,
		SettledRecords:   len(settled),
	}
}

// AvgDaysToPayment is the mean signed days-to-pay over settled records,
// zero when the customer has never settled an invoice.
func AvgDaysToPayment(records []models.PaymentRecord) float64 {
	settled := settledOnly(records)
	if len(settled) == 0 {
		return 0
	}
	var sum float64
	for _, r := range settled {
		sum += float64(r.DaysLate)
	}
	return sum / float64(len(settled))
}

// latenessFactor penalizes the average days late over late payments only.
// A customer with no late payments keeps the full factor.
func (a *Analyzer) latenessFactor(settled []models.PaymentRecord) float64 {
	var sum, n float64
	for _, r := range settled {
		if r.DaysLate > 0 {
			sum += float64(r.DaysLate)
			n++
		}
	}
	if n == 0 {
		return 100
	}
	avg := sum / n
	return math.Max(0, 100-avg*a.thresholds.LatenessPenaltyPts)
}

// recencyFactor weights the most recent settled records so that behavioral
// improvement or decline moves the score faster than a flat average would.
func (a *Analyzer) recencyFactor(settled []models.PaymentRecord) float64 {
	window := a.thresholds.RecencyWindow
	if len(settled) < window {
		window = len(settled)
	}
	// History is ordered oldest-first; the window is the tail.
	recent := settled[len(settled)-window:]
	return onTimeRate(recent) * 100
}

// consistencyFactor penalizes variance in signed days-to-pay across all
// settled records.
func (a *Analyzer) consistencyFactor(settled []models.PaymentRecord) float64 {
	if len(settled) < 2 {
		return 100
	}
	var sum float64
	for _, r := range settled {
		sum += float64(r.DaysLate)
	}
	mean := sum / float64(len(settled))

	var variance float64
	for _, r := range settled {
		d := float64(r.DaysLate) - mean
		variance += d * d
	}
	stdDev := math.Sqrt(variance / float64(len(settled)))
	return math.Max(0, 100-stdDev*a.thresholds.ConsistencyPenalty)
}

func onTimeRate(settled []models.PaymentRecord) float64 {
	if len(settled) == 0 {
		return 0
	}
	var onTime float64
	for _, r := range settled {
		if r.DaysLate <= 0 {
			onTime++
		}
	}
	return onTime / float64(len(settled))
}

func settledOnly(records []models.PaymentRecord) []models.PaymentRecord {
	out := make([]models.PaymentRecord, 0, len(records))
	for _, r := range records {
		if r.Settled() {
			out = append(out, r)
		}
	}
	return out
}

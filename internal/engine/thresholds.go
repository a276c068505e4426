// Package engine holds the numeric policy shared by the analysis
// components. All tunable constants live in one Thresholds value passed
// into each component, so tenants with different policies can run
// side by side without shared mutable state.
package engine

import "math"

// Thresholds collects every tunable constant of the risk and recovery
// pipeline. Zero values are not meaningful; start from DefaultThresholds
// and override individual fields.
type Thresholds struct {
	// Payment score factors. Weights sum to 1.
	NeutralScore       int     // score assigned to customers with no history
	WeightOnTime       float64 // on-time-rate factor weight
	WeightLateness     float64 // average-lateness-penalty factor weight
	WeightRecency      float64 // recent-behavior factor weight
	WeightConsistency  float64 // payment-variance factor weight
	LatenessPenaltyPts float64 // penalty points per average day late
	ConsistencyPenalty float64 // penalty points per day of std deviation
	RecencyWindow      int     // settled records considered "recent"

	// Risk bands over the 0-100 score.
	LowRiskScore    int
	MediumRiskScore int
	HighRiskScore   int

	// Recovery likelihood.
	DecayRate        float64 // exponential decay per day past due
	LargeInvoice     int64   // smallest-unit amount where the first size penalty applies
	VeryLargeInvoice int64   // smallest-unit amount where the second size penalty applies
	LargePenalty     float64 // multiplier over LargeInvoice
	VeryLargePenalty float64 // multiplier over VeryLargeInvoice, compounds with LargePenalty
	MinLikelihood    float64 // floor: never zero chance
	MaxLikelihood    float64 // ceiling: never certainty

	// Payment date prediction.
	GoodPayerMaxDays    float64 // cap on predicted days for top-band customers
	SlowPayerMultiplier float64 // avg-days multiplier for the 40-59 band
	PoorPayerMultiplier float64 // avg-days multiplier below 40
	PoorPayerExtraDays  float64 // flat addition below 40

	// Forecast buckets.
	HighBucket        float64 // likelihood at or above which inflow is high confidence
	MediumBucket      float64 // likelihood at or above which inflow is medium confidence
	HighWeight        float64 // confidence weight of the high bucket
	MediumWeight      float64
	LowWeight         float64
	DefaultLikelihood float64 // likelihood assumed for unscored invoices

	// Recommendation rules.
	SlowPaymentDays    float64 // average days-to-payment above which a discount is suggested
	ConcentrationLimit int64   // total outstanding (smallest units) triggering concentration risk

	// Plan economics.
	SuccessFeeRate float64

	// Cash squeeze detection.
	SqueezeWindowDays int     // width of the due-date clustering window
	SqueezeShareRatio float64 // window share of total outstanding that flags a cluster
	SqueezeCoverRatio float64 // expected-inflow coverage below which the cluster alerts
}

// DefaultThresholds returns the stock policy. Amount bands are in the
// smallest currency unit: 1_000_000 is 10,000.00 in a two-decimal currency.
func DefaultThresholds() Thresholds {
	return Thresholds{
		NeutralScore:       50,
		WeightOnTime:       0.40,
		WeightLateness:     0.30,
		WeightRecency:      0.20,
		WeightConsistency:  0.10,
		LatenessPenaltyPts: 2,
		ConsistencyPenalty: 5,
		RecencyWindow:      3,

		LowRiskScore:    80,
		MediumRiskScore: 60,
		HighRiskScore:   40,

		DecayRate:        0.02,
		LargeInvoice:     1_000_000,
		VeryLargeInvoice: 5_000_000,
		LargePenalty:     0.90,
		VeryLargePenalty: 0.85,
		MinLikelihood:    0.05,
		MaxLikelihood:    0.99,

		GoodPayerMaxDays:    5,
		SlowPayerMultiplier: 1.3,
		PoorPayerMultiplier: 1.5,
		PoorPayerExtraDays:  14,

		HighBucket:        0.8,
		MediumBucket:      0.5,
		HighWeight:        0.9,
		MediumWeight:      0.6,
		LowWeight:         0.3,
		DefaultLikelihood: 0.5,

		SlowPaymentDays:    45,
		ConcentrationLimit: 5_000_000,

		SuccessFeeRate: 0.08,

		SqueezeWindowDays: 14,
		SqueezeShareRatio: 0.4,
		SqueezeCoverRatio: 0.6,
	}
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampScore rounds and bounds a raw score to the 0-100 scale.
func ClampScore(raw float64) int {
	return int(Clamp(math.Round(raw), 0, 100))
}

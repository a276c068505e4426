// Package forecast aggregates per-invoice recovery-weighted amounts into
// confidence-tiered cash-inflow projections and receivables health figures.
package forecast

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"recovery-engine/internal/engine"
	"recovery-engine/internal/logger"
	"recovery-engine/pkg/models"
)

// InflowProjection splits the expected inflow for one horizon into
// confidence buckets. Total is always the exact sum of the three buckets.
type InflowProjection struct {
	DaysAhead        int     `json:"daysAhead"`
	Total            int64   `json:"total"`
	HighConfidence   int64   `json:"highConfidence"`
	MediumConfidence int64   `json:"mediumConfidence"`
	LowConfidence    int64   `json:"lowConfidence"`
	Confidence       float64 `json:"confidence"`
}

// Forecast holds the standard 30/60/90-day projections.
type Forecast struct {
	Day30       InflowProjection `json:"day30"`
	Day60       InflowProjection `json:"day60"`
	Day90       InflowProjection `json:"day90"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// Engine computes inflow projections and organization-level health figures.
type Engine struct {
	thresholds engine.Thresholds
	now        func() time.Time
	log        zerolog.Logger
}

// NewEngine creates a forecast engine with the given policy. A nil clock
// defaults to time.Now.
func NewEngine(thresholds engine.Thresholds, clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		thresholds: thresholds,
		now:        clock,
		log:        logger.WithComponent("forecast-engine"),
	}
}

// Inflow projects expected cash inflow from open invoices due within
// daysAhead days, bucketed by recovery likelihood. Invoices with no
// likelihood estimate are assumed at the default rate.
func (e *Engine) Inflow(invoices []models.Invoice, daysAhead int) InflowProjection {
	t := e.thresholds
	horizon := e.now().AddDate(0, 0, daysAhead)

	p := InflowProjection{DaysAhead: daysAhead}
	for _, inv := range invoices {
		if !inv.IsOpen() || inv.DueDate.After(horizon) {
			continue
		}

		likelihood := t.DefaultLikelihood
		if inv.RecoveryLikelihood != nil {
			likelihood = *inv.RecoveryLikelihood
		}

		expected := int64(math.Round(float64(inv.Outstanding()) * likelihood))
		switch {
		case likelihood >= t.HighBucket:
			p.HighConfidence += expected
		case likelihood >= t.MediumBucket:
			p.MediumConfidence += expected
		default:
			p.LowConfidence += expected
		}
	}

	p.Total = p.HighConfidence + p.MediumConfidence + p.LowConfidence
	p.Confidence = e.projectionConfidence(p)
	return p
}

// Generate wraps Inflow for the standard 30/60/90-day horizons.
func (e *Engine) Generate(invoices []models.Invoice) Forecast {
	f := Forecast{
		Day30:       e.Inflow(invoices, 30),
		Day60:       e.Inflow(invoices, 60),
		Day90:       e.Inflow(invoices, 90),
		GeneratedAt: e.now(),
	}

	e.log.Info().
		Int("invoices", len(invoices)).
		Int64("day30_total", f.Day30.Total).
		Int64("day90_total", f.Day90.Total).
		Msg("Generated inflow forecast")

	return f
}

// projectionConfidence is the bucket-weighted average confidence of a
// projection, zero when there is no projected inflow at all.
func (e *Engine) projectionConfidence(p InflowProjection) float64 {
	if p.Total == 0 {
		return 0
	}
	t := e.thresholds
	weighted := float64(p.HighConfidence)*t.HighWeight +
		float64(p.MediumConfidence)*t.MediumWeight +
		float64(p.LowConfidence)*t.LowWeight
	return weighted / float64(p.Total)
}

// HealthScore is a 0-100 composite of the organization's receivables
// posture: overdue ratio (40%), days sales outstanding (30%), and the
// 30-day cash-flow trend (30%).
func (e *Engine) HealthScore(totalReceivables, overdueReceivables int64, avgDaysOutstanding float64, netCashFlow30d int64) int {
	overdue := overdueComponent(totalReceivables, overdueReceivables)
	dso := dsoComponent(avgDaysOutstanding)
	trend := cashFlowComponent(totalReceivables, netCashFlow30d)

	raw := overdue*0.4 + dso*0.3 + trend*0.3
	return engine.ClampScore(raw)
}

func overdueComponent(total, overdue int64) float64 {
	if total <= 0 {
		return 100
	}
	ratio := float64(overdue) / float64(total)
	return math.Max(0, 100-ratio*200)
}

// dsoComponent steps down as average days outstanding grows.
func dsoComponent(avgDays float64) float64 {
	switch {
	case avgDays <= 30:
		return 100
	case avgDays <= 45:
		return 80
	case avgDays <= 60:
		return 60
	case avgDays <= 90:
		return 40
	default:
		return 20
	}
}

// cashFlowComponent is piecewise linear around a neutral 60: positive net
// flow scales toward 100, negative flow scales toward 0, both relative to
// the receivables base.
func cashFlowComponent(totalReceivables, netCashFlow30d int64) float64 {
	const neutral = 60
	if netCashFlow30d == 0 || totalReceivables <= 0 {
		return neutral
	}
	share := engine.Clamp01(math.Abs(float64(netCashFlow30d)) / float64(totalReceivables))
	if netCashFlow30d > 0 {
		return neutral + (100-neutral)*share
	}
	return neutral - neutral*share
}

// Runway returns the days of cash left at the current burn rate. A nil
// result means the organization is not burning cash and has no runway
// risk; zero means cash is already exhausted.
func (e *Engine) Runway(cashOnHand, avgMonthlyBurn int64) *int {
	if avgMonthlyBurn <= 0 {
		return nil
	}
	if cashOnHand <= 0 {
		zero := 0
		return &zero
	}
	days := int(math.Round(float64(cashOnHand) / (float64(avgMonthlyBurn) / 30)))
	return &days
}

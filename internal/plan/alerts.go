package plan

import (
	"fmt"
	"math"
	"sort"
	"time"

	"recovery-engine/internal/engine"
	"recovery-engine/pkg/models"
)

// detectCashSqueezes slides a fixed window over open-invoice due dates
// and alerts where a cluster of amounts comes due that the
// likelihood-weighted expected inflow does not cover. Windows that fire
// are skipped past so overlapping clusters produce one alert each.
func detectCashSqueezes(invoices []models.Invoice, now time.Time, t engine.Thresholds) []CashSqueezeAlert {
	open := make([]models.Invoice, 0, len(invoices))
	var totalOutstanding int64
	for _, inv := range invoices {
		if inv.IsOpen() && inv.DueDate.After(now) {
			open = append(open, inv)
			totalOutstanding += inv.Outstanding()
		}
	}
	if len(open) < 2 || totalOutstanding == 0 {
		return nil
	}

	sort.Slice(open, func(i, j int) bool { return open[i].DueDate.Before(open[j].DueDate) })

	window := time.Duration(t.SqueezeWindowDays) * 24 * time.Hour

	var alerts []CashSqueezeAlert
	for i := 0; i < len(open); {
		start := open[i].DueDate
		end := start.Add(window)

		var amountDue, expected int64
		count := 0
		j := i
		for ; j < len(open) && !open[j].DueDate.After(end); j++ {
			out := open[j].Outstanding()
			amountDue += out

			likelihood := t.DefaultLikelihood
			if open[j].RecoveryLikelihood != nil {
				likelihood = *open[j].RecoveryLikelihood
			}
			expected += int64(math.Round(float64(out) * likelihood))
			count++
		}

		share := float64(amountDue) / float64(totalOutstanding)
		coverage := 1.0
		if amountDue > 0 {
			coverage = float64(expected) / float64(amountDue)
		}

		if count >= 2 && share >= t.SqueezeShareRatio && coverage < t.SqueezeCoverRatio {
			severity := "warning"
			if share >= 0.6 {
				severity = "critical"
			}
			alerts = append(alerts, CashSqueezeAlert{
				WindowStart:    start,
				WindowEnd:      end,
				InvoiceCount:   count,
				AmountDue:      amountDue,
				ExpectedInflow: expected,
				Severity:       severity,
				Message: fmt.Sprintf("%d invoices totaling %s come due between %s and %s, but expected inflow is only %s (%.0f%% coverage).",
					count, formatMoney(amountDue),
					start.Format("Jan 2"), end.Format("Jan 2"),
					formatMoney(expected), coverage*100),
			})
			i = j // skip past this cluster
			continue
		}
		i++
	}

	return alerts
}

// deriveProactiveMeasures groups invoice actions by shared risk factor
// into batched interventions.
func deriveProactiveMeasures(actions []InvoiceAction, customers map[string]models.Customer, profiles map[string]models.PaymentProfile, invoiceCustomer map[string]string, t engine.Thresholds) []ProactiveMeasure {
	var measures []ProactiveMeasure

	// Batch 1: high and critical risk invoices get a coordinated
	// payment-plan outreach rather than one-off escalations.
	var atRisk []string
	for _, ia := range actions {
		if ia.Analysis.RiskLevel == models.RiskHigh || ia.Analysis.RiskLevel == models.RiskCritical {
			atRisk = append(atRisk, ia.InvoiceID)
		}
	}
	if len(atRisk) >= 3 {
		measures = append(measures, ProactiveMeasure{
			Type:        "payment_plan_outreach",
			Title:       "Coordinated outreach to at-risk balances",
			Description: fmt.Sprintf("%d invoices sit with high- or critical-risk clients. A single coordinated outreach wave with payment-plan options could recover more than piecemeal escalation.", len(atRisk)),
			InvoiceIDs:  atRisk,
			Priority:    "high",
		})
	}

	// Batch 2: invoices belonging to chronically slow payers are
	// candidates for an early-payment discount campaign.
	var slow []string
	for _, ia := range actions {
		custID := invoiceCustomer[ia.InvoiceID]
		if p, ok := profiles[custID]; ok && p.AvgDaysToPayment > t.SlowPaymentDays {
			slow = append(slow, ia.InvoiceID)
		}
	}
	if len(slow) >= 3 {
		measures = append(measures, ProactiveMeasure{
			Type:        "early_payment_discounts",
			Title:       "Early-payment discount campaign for slow payers",
			Description: fmt.Sprintf("%d invoices belong to clients averaging more than %.0f days to pay. Offering a small early-payment discount across the batch could pull this cash forward.", len(slow), t.SlowPaymentDays),
			InvoiceIDs:  slow,
			Priority:    "medium",
		})
	}

	// Batch 3: a single client holding an outsized share of the
	// outstanding book gets an exposure review.
	byCustomer := make(map[string]int64)
	byCustomerIDs := make(map[string][]string)
	for _, ia := range actions {
		custID := invoiceCustomer[ia.InvoiceID]
		byCustomer[custID] += ia.Analysis.AmountDue
		byCustomerIDs[custID] = append(byCustomerIDs[custID], ia.InvoiceID)
	}
	for custID, total := range byCustomer {
		if total <= t.ConcentrationLimit {
			continue
		}
		name := custID
		if c, ok := customers[custID]; ok && c.Name != "" {
			name = c.Name
		}
		measures = append(measures, ProactiveMeasure{
			Type:        "exposure_review",
			Title:       fmt.Sprintf("Exposure review: %s", name),
			Description: fmt.Sprintf("%s holds %s in open invoices, above the concentration threshold. Reviewing credit terms and collection priority for this client could reduce cash-flow risk.", name, formatMoney(total)),
			InvoiceIDs:  byCustomerIDs[custID],
			Priority:    "high",
		})
	}

	// Deterministic ordering for reviewers and tests.
	sort.Slice(measures, func(i, j int) bool {
		if measures[i].Type != measures[j].Type {
			return measures[i].Type < measures[j].Type
		}
		return measures[i].Title < measures[j].Title
	})
	return measures
}

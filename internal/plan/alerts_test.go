package plan

import (
	"strings"
	"testing"

	"recovery-engine/internal/engine"
	"recovery-engine/pkg/models"
)

func futureInvoice(id string, amount int64, dueInDays int, recoveryLikelihood float64) models.Invoice {
	l := recoveryLikelihood
	return models.Invoice{
		ID:                 id,
		CustomerID:         "cust-" + id,
		Amount:             amount,
		DueDate:            testNow.AddDate(0, 0, dueInDays),
		Status:             models.StatusSent,
		RecoveryLikelihood: &l,
	}
}

func TestDetectCashSqueezes_FlagsUncoveredCluster(t *testing.T) {
	thresholds := engine.DefaultThresholds()

	// Two weak invoices cluster inside one window; a healthy one sits far out.
	invoices := []models.Invoice{
		futureInvoice("a", 300_000, 5, 0.2),
		futureInvoice("b", 300_000, 10, 0.2),
		futureInvoice("c", 200_000, 60, 0.9),
	}

	alerts := detectCashSqueezes(invoices, testNow, thresholds)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	a := alerts[0]
	if a.InvoiceCount != 2 {
		t.Errorf("alert covers %d invoices, want 2", a.InvoiceCount)
	}
	if a.AmountDue != 600_000 {
		t.Errorf("amount due = %d, want 600000", a.AmountDue)
	}
	if a.ExpectedInflow != 120_000 {
		t.Errorf("expected inflow = %d, want 120000", a.ExpectedInflow)
	}
	// The cluster holds 75% of outstanding: critical, not a warning.
	if a.Severity != "critical" {
		t.Errorf("severity = %s, want critical", a.Severity)
	}
	if a.Message == "" {
		t.Error("alert has no message")
	}
}

func TestDetectCashSqueezes_WarningBelowCriticalShare(t *testing.T) {
	thresholds := engine.DefaultThresholds()

	invoices := []models.Invoice{
		futureInvoice("a", 200_000, 5, 0.2),
		futureInvoice("b", 200_000, 10, 0.2),
		futureInvoice("c", 400_000, 60, 0.9),
	}

	alerts := detectCashSqueezes(invoices, testNow, thresholds)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Severity != "warning" {
		t.Errorf("severity = %s, want warning for a half-share cluster", alerts[0].Severity)
	}
}

func TestDetectCashSqueezes_CoveredClusterStaysQuiet(t *testing.T) {
	thresholds := engine.DefaultThresholds()

	invoices := []models.Invoice{
		futureInvoice("a", 300_000, 5, 0.9),
		futureInvoice("b", 300_000, 10, 0.9),
	}
	if alerts := detectCashSqueezes(invoices, testNow, thresholds); len(alerts) != 0 {
		t.Errorf("well-covered cluster produced alerts: %+v", alerts)
	}
}

func TestDetectCashSqueezes_IgnoresPastDueAndClosed(t *testing.T) {
	thresholds := engine.DefaultThresholds()

	overdue := futureInvoice("a", 300_000, -5, 0.2)
	paid := futureInvoice("b", 300_000, 5, 0.2)
	paid.Status = models.StatusPaid

	if alerts := detectCashSqueezes([]models.Invoice{overdue, paid}, testNow, thresholds); len(alerts) != 0 {
		t.Errorf("expected no alerts without future-due open invoices, got %+v", alerts)
	}
}

func measureAction(invoiceID, customerID string, risk models.RiskLevel, amountDue int64) InvoiceAction {
	return InvoiceAction{
		InvoiceID: invoiceID,
		Analysis: InvoiceAnalysis{
			RiskLevel: risk,
			AmountDue: amountDue,
		},
	}
}

func TestDeriveProactiveMeasures(t *testing.T) {
	thresholds := engine.DefaultThresholds()

	actions := []InvoiceAction{
		measureAction("inv-1", "cust-risky", models.RiskCritical, 2_000_000),
		measureAction("inv-2", "cust-risky", models.RiskHigh, 2_000_000),
		measureAction("inv-3", "cust-risky", models.RiskHigh, 2_000_000),
		measureAction("inv-4", "cust-slow", models.RiskMedium, 100_000),
		measureAction("inv-5", "cust-slow", models.RiskMedium, 100_000),
		measureAction("inv-6", "cust-slow", models.RiskMedium, 100_000),
	}
	invoiceCustomer := map[string]string{
		"inv-1": "cust-risky", "inv-2": "cust-risky", "inv-3": "cust-risky",
		"inv-4": "cust-slow", "inv-5": "cust-slow", "inv-6": "cust-slow",
	}
	customers := map[string]models.Customer{
		"cust-risky": {ID: "cust-risky", Name: "Trouble LLC"},
		"cust-slow":  {ID: "cust-slow", Name: "Slow Co"},
	}
	profiles := map[string]models.PaymentProfile{
		"cust-risky": {Score: 20, AvgDaysToPayment: 30},
		"cust-slow":  {Score: 65, AvgDaysToPayment: 60},
	}

	measures := deriveProactiveMeasures(actions, customers, profiles, invoiceCustomer, thresholds)
	if len(measures) != 3 {
		t.Fatalf("expected 3 measures, got %d: %+v", len(measures), measures)
	}

	// Sorted by type: discounts, exposure review, payment-plan outreach.
	if measures[0].Type != "early_payment_discounts" {
		t.Errorf("measure 0 type = %s, want early_payment_discounts", measures[0].Type)
	}
	if len(measures[0].InvoiceIDs) != 3 {
		t.Errorf("discount campaign covers %d invoices, want 3", len(measures[0].InvoiceIDs))
	}

	if measures[1].Type != "exposure_review" {
		t.Errorf("measure 1 type = %s, want exposure_review", measures[1].Type)
	}
	if !strings.Contains(measures[1].Title, "Trouble LLC") {
		t.Errorf("exposure review names %q, want the customer name", measures[1].Title)
	}

	if measures[2].Type != "payment_plan_outreach" {
		t.Errorf("measure 2 type = %s, want payment_plan_outreach", measures[2].Type)
	}
	if len(measures[2].InvoiceIDs) != 3 {
		t.Errorf("outreach covers %d invoices, want 3", len(measures[2].InvoiceIDs))
	}
}

func TestDeriveProactiveMeasures_BelowBatchSize(t *testing.T) {
	thresholds := engine.DefaultThresholds()

	actions := []InvoiceAction{
		measureAction("inv-1", "cust-risky", models.RiskCritical, 100_000),
		measureAction("inv-2", "cust-risky", models.RiskHigh, 100_000),
	}
	invoiceCustomer := map[string]string{"inv-1": "cust-risky", "inv-2": "cust-risky"}
	profiles := map[string]models.PaymentProfile{"cust-risky": {Score: 20, AvgDaysToPayment: 30}}

	measures := deriveProactiveMeasures(actions, nil, profiles, invoiceCustomer, thresholds)
	if len(measures) != 0 {
		t.Errorf("two at-risk invoices under modest exposure: expected no measures, got %+v", measures)
	}
}

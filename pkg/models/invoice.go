package models

import "time"

// InvoiceStatus is the lifecycle status of an invoice as reported by the
// host application's billing layer.
type InvoiceStatus string

const (
	StatusDraft      InvoiceStatus = "draft"
	StatusSent       InvoiceStatus = "sent"
	StatusViewed     InvoiceStatus = "viewed"
	StatusPartial    InvoiceStatus = "partial"
	StatusPaid       InvoiceStatus = "paid"
	StatusOverdue    InvoiceStatus = "overdue"
	StatusWrittenOff InvoiceStatus = "written_off"
)

// RiskLevel classifies a customer's payment behavior.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Invoice is a receivable as read from the host store. The engine only
// reads invoices; RiskLevel and RecoveryLikelihood are derived during an
// analysis run and are not persisted unless the host chooses to.
type Invoice struct {
	ID             string
	OrganizationID string
	CustomerID     string
	ClientName     string

	// Amounts (smallest currency unit to avoid float issues)
	Amount     int64
	AmountPaid int64

	IssueDate time.Time
	DueDate   time.Time

	Status      InvoiceStatus
	DaysOverdue int

	// Derived fields, nil/empty until an analysis run fills them in.
	RecoveryLikelihood *float64
	RiskLevel          RiskLevel
}

// Outstanding returns the unpaid remainder. Overpaid invoices report zero
// rather than a negative amount.
func (inv Invoice) Outstanding() int64 {
	if inv.AmountPaid >= inv.Amount {
		return 0
	}
	return inv.Amount - inv.AmountPaid
}

// IsOpen reports whether the invoice can still produce an inflow.
func (inv Invoice) IsOpen() bool {
	return inv.Status != StatusPaid && inv.Status != StatusWrittenOff
}

// IsOverdue reports whether the invoice is past due and unpaid.
func (inv Invoice) IsOverdue() bool {
	return inv.IsOpen() && inv.DaysOverdue > 0
}

package models

import "time"

// PaymentRecord is one settled-or-outstanding invoice observation from a
// customer's payment history. Records are immutable once the underlying
// invoice settles.
type PaymentRecord struct {
	InvoiceID string
	Amount    int64 // smallest currency unit
	DueDate   time.Time
	PaidDate  *time.Time // nil while unpaid

	// DaysLate is signed: negative means the customer paid early.
	DaysLate int
}

// Settled reports whether the record has a payment date.
func (r PaymentRecord) Settled() bool {
	return r.PaidDate != nil
}

// OnTime reports whether a settled record was paid at or before term.
func (r PaymentRecord) OnTime() bool {
	return r.Settled() && r.DaysLate <= 0
}

// Customer is a payer as read from the host store, with its full payment
// history ordered oldest-first.
type Customer struct {
	ID             string
	OrganizationID string
	Name           string
	History        []PaymentRecord
}

// PaymentProfile is derived from a customer's history on demand. It is
// never stored independently of the history it was computed from.
type PaymentProfile struct {
	Score            int // 0-100
	RiskLevel        RiskLevel
	AvgDaysToPayment float64
	OnTimeRate       float64 // 0-1 over settled records
	LatePaymentRate  float64 // 0-1 over settled records
	SettledRecords   int
}

// Package plan orchestrates a full analysis run over an organization's
// open invoices and manages the resulting action plan through its
// generate, review and approval lifecycle.
package plan

import (
	"time"

	"github.com/google/uuid"

	"recovery-engine/internal/forecast"
	"recovery-engine/pkg/models"
)

// PlanStatus is the lifecycle state of an action plan.
type PlanStatus string

const (
	PlanDraft    PlanStatus = "draft"    // just generated, not persisted
	PlanPending  PlanStatus = "pending"  // persisted, awaiting review
	PlanApproved PlanStatus = "approved" // subset of actions activated
	PlanExpired  PlanStatus = "expired"  // superseded by a newer analysis
)

// ActionType is the delivery channel of a scheduled collection action.
type ActionType string

const (
	ActionEmail         ActionType = "email"
	ActionSMS           ActionType = "sms"
	ActionCall          ActionType = "call"
	ActionDiscountOffer ActionType = "discount_offer"
	ActionPaymentPlan   ActionType = "payment_plan"
)

// ActionStatus tracks a scheduled action through execution (execution
// itself is owned by the host's delivery system).
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionSent      ActionStatus = "sent"
	ActionCompleted ActionStatus = "completed"
	ActionCancelled ActionStatus = "cancelled"
)

// ActionPlan is the reviewable, approvable output of one analysis run.
// A plan is a snapshot: nothing downstream mutates the invoices or
// profiles it was computed from.
type ActionPlan struct {
	ID             uuid.UUID  `json:"id"`
	OrganizationID string     `json:"organizationId"`
	Status         PlanStatus `json:"status"`
	GeneratedAt    time.Time  `json:"generatedAt"`

	TotalInvoicesAnalyzed int   `json:"totalInvoicesAnalyzed"`
	TotalAmountAtRisk     int64 `json:"totalAmountAtRisk"`
	ProjectedRecovery     int64 `json:"projectedRecovery"`
	ProjectedSuccessFee   int64 `json:"projectedSuccessFee"`

	InvoiceActions    []InvoiceAction    `json:"invoiceActions"`
	CashSqueezeAlerts []CashSqueezeAlert `json:"cashSqueezeAlerts"`
	ProactiveMeasures []ProactiveMeasure `json:"proactiveMeasures"`

	Forecast    forecast.Forecast `json:"forecast"`
	HealthScore int               `json:"healthScore"`
}

// InvoiceIDs returns the ids of all invoices covered by the plan.
func (p *ActionPlan) InvoiceIDs() []string {
	ids := make([]string, 0, len(p.InvoiceActions))
	for _, ia := range p.InvoiceActions {
		ids = append(ids, ia.InvoiceID)
	}
	return ids
}

// InvoiceAction bundles the analysis of one invoice with its recommended
// scheduled actions.
type InvoiceAction struct {
	InvoiceID string            `json:"invoiceId"`
	Analysis  InvoiceAnalysis   `json:"analysis"`
	Actions   []ScheduledAction `json:"actions"`
	Status    ActionStatus      `json:"status"`
}

// InvoiceAnalysis is the per-invoice risk picture shown to the reviewer.
type InvoiceAnalysis struct {
	ClientName           string           `json:"clientName"`
	AmountDue            int64            `json:"amountDue"`
	DaysOverdue          int              `json:"daysOverdue"`
	RiskLevel            models.RiskLevel `json:"riskLevel"`
	RecoveryLikelihood   float64          `json:"recoveryLikelihood"`
	UrgencyScore         int              `json:"urgencyScore"`
	PredictedPaymentDate time.Time        `json:"predictedPaymentDate"`
	RecommendedActions   []string         `json:"recommendedActions"`
}

// ScheduledAction is one concrete collection step awaiting execution.
type ScheduledAction struct {
	ID           uuid.UUID     `json:"id"`
	Type         ActionType    `json:"type"`
	ScheduledFor time.Time     `json:"scheduledFor"`
	Status       ActionStatus  `json:"status"`
	Content      ActionContent `json:"content"`
	Incentive    *Incentive    `json:"incentive,omitempty"`
}

// ActionContent is the draft message body for communication actions.
type ActionContent struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body"`
}

// Incentive parametrizes discount and payment-plan actions.
type Incentive struct {
	Type              string  `json:"type"` // "discount" or "payment_plan"
	DiscountPercent   float64 `json:"discountPercent,omitempty"`
	PaymentPlanMonths int     `json:"paymentPlanMonths,omitempty"`
}

// CashSqueezeAlert warns that open invoices cluster near a future date
// where projected inflows may not cover the amount coming due.
type CashSqueezeAlert struct {
	WindowStart    time.Time `json:"windowStart"`
	WindowEnd      time.Time `json:"windowEnd"`
	InvoiceCount   int       `json:"invoiceCount"`
	AmountDue      int64     `json:"amountDue"`
	ExpectedInflow int64     `json:"expectedInflow"`
	Severity       string    `json:"severity"` // "warning" or "critical"
	Message        string    `json:"message"`
}

// ProactiveMeasure is a batched intervention across several invoices that
// share a risk factor.
type ProactiveMeasure struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	InvoiceIDs  []string `json:"invoiceIds"`
	Priority    string   `json:"priority"`
}

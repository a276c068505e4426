package plan

import (
	"context"
	"time"

	"github.com/google/uuid"

	"recovery-engine/pkg/models"
)

// Snapshot is the point-in-time view of an organization's receivables an
// analysis run works over. It is fetched once at the start of a run and
// never refreshed mid-run; concurrent mutation of the underlying records
// is tolerated but cannot affect a running analysis.
type Snapshot struct {
	OrganizationID string
	Invoices       []models.Invoice
	Customers      map[string]models.Customer
	TakenAt        time.Time
}

// ReceivablesStore is the read-only port to the host's invoice/customer
// store.
type ReceivablesStore interface {
	// Snapshot bulk-fetches all invoices and customers of an organization.
	Snapshot(ctx context.Context, organizationID string) (*Snapshot, error)
}

// PlanStore persists action plans. State transitions are atomic: a failed
// write never leaves a plan half-transitioned.
type PlanStore interface {
	// Get fetches a plan by id; ErrPlanNotFound when absent.
	Get(ctx context.Context, id uuid.UUID) (*ActionPlan, error)

	// GetPending returns the most recent pending plan for the
	// organization; ErrNoPendingPlan when there is none.
	GetPending(ctx context.Context, organizationID string) (*ActionPlan, error)

	// MarkPending stores the plan as pending and, in the same atomic step,
	// expires any prior pending plan for the organization. Last writer wins.
	MarkPending(ctx context.Context, p *ActionPlan) error

	// Approve replaces the stored plan with the approved version only if
	// the stored plan is still pending; ErrPlanNotPending otherwise.
	Approve(ctx context.Context, p *ActionPlan) error
}

package plan

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// State and lookup errors surfaced by the orchestrator and plan stores.
var (
	// ErrPlanNotFound is returned when a plan id does not exist.
	ErrPlanNotFound = errors.New("action plan not found")

	// ErrNoPendingPlan is returned when an organization has no pending plan.
	ErrNoPendingPlan = errors.New("no pending action plan for organization")

	// ErrPlanNotDraft is returned when persisting a plan that is not a draft.
	ErrPlanNotDraft = errors.New("action plan is not a draft")

	// ErrPlanNotPending is returned when approving a plan that is not
	// pending, including plans that were already approved.
	ErrPlanNotPending = errors.New("action plan is not pending")

	// ErrUnknownInvoice is returned when an approval selects invoice ids
	// outside the plan's invoice actions.
	ErrUnknownInvoice = errors.New("selected invoice is not part of the plan")

	// ErrEmptySelection is returned when an approval selects no invoices.
	ErrEmptySelection = errors.New("approval selects no invoices")
)

// PlanError wraps a plan operation failure with its operation and plan id.
type PlanError struct {
	Op     string
	PlanID uuid.UUID
	Err    error
}

func (e *PlanError) Error() string {
	if e.PlanID == uuid.Nil {
		return fmt.Sprintf("plan: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("plan: %s failed (plan: %s): %v", e.Op, e.PlanID, e.Err)
}

func (e *PlanError) Unwrap() error {
	return e.Err
}

func (e *PlanError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

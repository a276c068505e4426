package plan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"recovery-engine/pkg/models"
)

// MemoryPlanStore is a mutex-guarded in-process PlanStore used by tests
// and snapshot-file CLI runs.
type MemoryPlanStore struct {
	mu    sync.Mutex
	plans map[uuid.UUID]*ActionPlan
}

// NewMemoryPlanStore creates an empty in-memory plan store.
func NewMemoryPlanStore() *MemoryPlanStore {
	return &MemoryPlanStore{
		plans: make(map[uuid.UUID]*ActionPlan),
	}
}

func (s *MemoryPlanStore) Get(_ context.Context, id uuid.UUID) (*ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return clonePlan(p), nil
}

func (s *MemoryPlanStore) GetPending(_ context.Context, organizationID string) (*ActionPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *ActionPlan
	for _, p := range s.plans {
		if p.OrganizationID != organizationID || p.Status != PlanPending {
			continue
		}
		if newest == nil || p.GeneratedAt.After(newest.GeneratedAt) {
			newest = p
		}
	}
	if newest == nil {
		return nil, ErrNoPendingPlan
	}
	return clonePlan(newest), nil
}

func (s *MemoryPlanStore) MarkPending(_ context.Context, p *ActionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Supersede any prior pending plan for the organization in the same
	// critical section, so at most one pending plan exists per org.
	for _, existing := range s.plans {
		if existing.OrganizationID == p.OrganizationID && existing.Status == PlanPending {
			existing.Status = PlanExpired
		}
	}

	stored := clonePlan(p)
	stored.Status = PlanPending
	s.plans[stored.ID] = stored
	return nil
}

func (s *MemoryPlanStore) Approve(_ context.Context, p *ActionPlan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.plans[p.ID]
	if !ok {
		return ErrPlanNotFound
	}
	if existing.Status != PlanPending {
		return ErrPlanNotPending
	}

	stored := clonePlan(p)
	stored.Status = PlanApproved
	s.plans[stored.ID] = stored
	return nil
}

func clonePlan(p *ActionPlan) *ActionPlan {
	c := *p
	c.InvoiceActions = append([]InvoiceAction(nil), p.InvoiceActions...)
	c.CashSqueezeAlerts = append([]CashSqueezeAlert(nil), p.CashSqueezeAlerts...)
	c.ProactiveMeasures = append([]ProactiveMeasure(nil), p.ProactiveMeasures...)
	return &c
}

// MemoryReceivablesStore serves a fixed snapshot, for tests and demos.
type MemoryReceivablesStore struct {
	mu        sync.RWMutex
	invoices  map[string][]models.Invoice
	customers map[string][]models.Customer
}

// NewMemoryReceivablesStore creates an empty in-memory receivables store.
func NewMemoryReceivablesStore() *MemoryReceivablesStore {
	return &MemoryReceivablesStore{
		invoices:  make(map[string][]models.Invoice),
		customers: make(map[string][]models.Customer),
	}
}

// Seed loads invoices and customers for an organization, replacing any
// prior data.
func (s *MemoryReceivablesStore) Seed(organizationID string, invoices []models.Invoice, customers []models.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[organizationID] = append([]models.Invoice(nil), invoices...)
	s.customers[organizationID] = append([]models.Customer(nil), customers...)
}

func (s *MemoryReceivablesStore) Snapshot(_ context.Context, organizationID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &Snapshot{
		OrganizationID: organizationID,
		Invoices:       append([]models.Invoice(nil), s.invoices[organizationID]...),
		Customers:      make(map[string]models.Customer),
		TakenAt:        time.Now(),
	}
	for _, c := range s.customers[organizationID] {
		snap.Customers[c.ID] = c
	}
	return snap, nil
}

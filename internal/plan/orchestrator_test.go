package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"recovery-engine/internal/engine"
	"recovery-engine/pkg/models"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func settled(daysLate int) models.PaymentRecord {
	due := testNow.AddDate(0, -6, 0)
	paid := due.AddDate(0, 0, daysLate)
	return models.PaymentRecord{
		InvoiceID: uuid.NewString(),
		Amount:    100_000,
		DueDate:   due,
		PaidDate:  &paid,
		DaysLate:  daysLate,
	}
}

func testCustomer(id, name string, daysLate ...int) models.Customer {
	history := make([]models.PaymentRecord, 0, len(daysLate))
	for _, d := range daysLate {
		history = append(history, settled(d))
	}
	return models.Customer{ID: id, OrganizationID: "org-1", Name: name, History: history}
}

func testInvoice(id, customerID, clientName string, amount int64, dueInDays int) models.Invoice {
	return models.Invoice{
		ID:         id,
		CustomerID: customerID,
		ClientName: clientName,
		Amount:     amount,
		IssueDate:  testNow.AddDate(0, 0, dueInDays-30),
		DueDate:    testNow.AddDate(0, 0, dueInDays),
		Status:     models.StatusSent,
	}
}

// testOrchestrator builds an orchestrator over seeded memory stores with a
// fixed clock.
func testOrchestrator(invoices []models.Invoice, customers []models.Customer) (*Orchestrator, *MemoryPlanStore) {
	receivables := NewMemoryReceivablesStore()
	receivables.Seed("org-1", invoices, customers)
	plans := NewMemoryPlanStore()
	o := NewOrchestrator(receivables, plans, engine.DefaultThresholds()).
		WithClock(func() time.Time { return testNow })
	return o, plans
}

func standardBook() ([]models.Invoice, []models.Customer) {
	invoices := []models.Invoice{
		testInvoice("inv-current", "cust-good", "Good Co", 150_000, 20),
		testInvoice("inv-late", "cust-good", "Good Co", 200_000, -10),
		testInvoice("inv-very-late", "cust-bad", "Trouble LLC", 300_000, -45),
	}
	customers := []models.Customer{
		testCustomer("cust-good", "Good Co", 0, -1, 0, 0),
		testCustomer("cust-bad", "Trouble LLC", 40, 60, 35, 50),
	}
	return invoices, customers
}

func TestAnalyze_ProducesDraftPlan(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)

	p, err := o.Analyze(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status != PlanDraft {
		t.Errorf("fresh analysis status = %s, want draft", p.Status)
	}
	if p.OrganizationID != "org-1" {
		t.Errorf("organization = %q, want org-1", p.OrganizationID)
	}
	if p.TotalInvoicesAnalyzed != 3 {
		t.Errorf("analyzed %d invoices, want 3", p.TotalInvoicesAnalyzed)
	}
	if len(p.InvoiceActions) != 3 {
		t.Fatalf("expected 3 invoice actions, got %d", len(p.InvoiceActions))
	}

	// Overdue invoices are at risk; the current one from a good payer is not.
	if p.TotalAmountAtRisk != 500_000 {
		t.Errorf("amount at risk = %d, want 500000", p.TotalAmountAtRisk)
	}
	if p.ProjectedRecovery <= 0 || p.ProjectedRecovery > p.TotalAmountAtRisk {
		t.Errorf("projected recovery %d outside (0, %d]", p.ProjectedRecovery, p.TotalAmountAtRisk)
	}
	wantFee := int64(float64(p.ProjectedRecovery)*0.08 + 0.5)
	if diff := p.ProjectedSuccessFee - wantFee; diff < -1 || diff > 1 {
		t.Errorf("success fee = %d, want about %d", p.ProjectedSuccessFee, wantFee)
	}
	if p.HealthScore < 0 || p.HealthScore > 100 {
		t.Errorf("health score %d outside [0,100]", p.HealthScore)
	}
	if !p.Forecast.GeneratedAt.Equal(testNow) {
		t.Errorf("forecast timestamp = %s, want injected clock", p.Forecast.GeneratedAt)
	}
}

func TestAnalyze_OrdersByUrgency(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)

	p, err := o.Analyze(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 1; i < len(p.InvoiceActions); i++ {
		prev, cur := p.InvoiceActions[i-1].Analysis.UrgencyScore, p.InvoiceActions[i].Analysis.UrgencyScore
		if prev < cur {
			t.Errorf("invoice actions not sorted by urgency: %d before %d", prev, cur)
		}
	}
	if p.InvoiceActions[0].InvoiceID != "inv-very-late" {
		t.Errorf("most urgent invoice = %s, want inv-very-late", p.InvoiceActions[0].InvoiceID)
	}
}

func TestAnalyze_SkipsMalformedAndClosedInvoices(t *testing.T) {
	invoices := []models.Invoice{
		testInvoice("inv-ok", "cust-good", "Good Co", 100_000, -5),
		{ID: "", CustomerID: "cust-good", Amount: 100_000, DueDate: testNow},
		{ID: "inv-no-cust", Amount: 100_000, DueDate: testNow},
		{ID: "inv-zero", CustomerID: "cust-good", Amount: 0, DueDate: testNow},
		{ID: "inv-no-due", CustomerID: "cust-good", Amount: 100_000},
		func() models.Invoice {
			inv := testInvoice("inv-paid", "cust-good", "Good Co", 100_000, -5)
			inv.Status = models.StatusPaid
			return inv
		}(),
	}
	customers := []models.Customer{testCustomer("cust-good", "Good Co", 0, 0)}
	o, _ := testOrchestrator(invoices, customers)

	p, err := o.Analyze(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TotalInvoicesAnalyzed != 1 {
		t.Errorf("analyzed %d invoices, want only the well-formed open one", p.TotalInvoicesAnalyzed)
	}
	if len(p.InvoiceActions) != 1 || p.InvoiceActions[0].InvoiceID != "inv-ok" {
		t.Errorf("unexpected invoice actions: %+v", p.InvoiceActions)
	}
}

func TestAnalyze_CancelledContextPersistsNothing(t *testing.T) {
	invoices, customers := standardBook()
	o, plans := testOrchestrator(invoices, customers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Analyze(ctx, "org-1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := plans.GetPending(context.Background(), "org-1"); !errors.Is(err, ErrNoPendingPlan) {
		t.Errorf("cancelled run left a pending plan behind: %v", err)
	}
}

func TestAnalyze_UnknownCustomerGetsNeutralProfile(t *testing.T) {
	invoices := []models.Invoice{testInvoice("inv-1", "cust-ghost", "Ghost Inc", 100_000, -3)}
	o, _ := testOrchestrator(invoices, nil)

	p, err := o.Analyze(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.InvoiceActions) != 1 {
		t.Fatalf("expected 1 invoice action, got %d", len(p.InvoiceActions))
	}
	// Neutral score 50 sits in the high-risk band.
	if got := p.InvoiceActions[0].Analysis.RiskLevel; got != models.RiskHigh {
		t.Errorf("no-history customer risk = %s, want high", got)
	}
}

func TestPersist_DraftBecomesPending(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)
	ctx := context.Background()

	p, err := o.Analyze(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, err := o.Persist(ctx, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != p.ID {
		t.Errorf("persisted id %s does not match plan id %s", id, p.ID)
	}
	if p.Status != PlanPending {
		t.Errorf("plan status after persist = %s, want pending", p.Status)
	}

	got, err := o.GetPendingPlan(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("pending plan id = %s, want %s", got.ID, p.ID)
	}
}

func TestPersist_RejectsNonDraft(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)
	ctx := context.Background()

	p, err := o.Analyze(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.Persist(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The plan is pending now; persisting it again is a state error.
	if _, err := o.Persist(ctx, p); !errors.Is(err, ErrPlanNotDraft) {
		t.Errorf("expected ErrPlanNotDraft, got %v", err)
	}
}

func TestPersist_SupersedesPriorPending(t *testing.T) {
	invoices, customers := standardBook()
	o, plans := testOrchestrator(invoices, customers)
	ctx := context.Background()

	first, err := o.Analyze(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.Persist(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := o.Analyze(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.Persist(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pending, err := o.GetPendingPlan(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pending.ID != second.ID {
		t.Errorf("pending plan = %s, want the newer %s", pending.ID, second.ID)
	}

	stored, err := plans.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != PlanExpired {
		t.Errorf("superseded plan status = %s, want expired", stored.Status)
	}
}

func pendingPlan(t *testing.T, o *Orchestrator) *ActionPlan {
	t.Helper()
	ctx := context.Background()
	p, err := o.Analyze(ctx, "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := o.Persist(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return p
}

func TestApprove_KeepsOnlySelectedActions(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)
	ctx := context.Background()

	p := pendingPlan(t, o)

	approved, err := o.Approve(ctx, p.ID, []string{"inv-very-late"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != PlanApproved {
		t.Errorf("approved plan status = %s, want approved", approved.Status)
	}
	if len(approved.InvoiceActions) != 1 || approved.InvoiceActions[0].InvoiceID != "inv-very-late" {
		t.Errorf("unselected actions not dropped: %+v", approved.InvoiceActions)
	}
}

func TestApprove_UnknownInvoiceRejectsWithoutMutation(t *testing.T) {
	invoices, customers := standardBook()
	o, plans := testOrchestrator(invoices, customers)
	ctx := context.Background()

	p := pendingPlan(t, o)

	_, err := o.Approve(ctx, p.ID, []string{"inv-late", "inv-not-in-plan"})
	if !errors.Is(err, ErrUnknownInvoice) {
		t.Fatalf("expected ErrUnknownInvoice, got %v", err)
	}

	stored, err := plans.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != PlanPending {
		t.Errorf("rejected approval mutated status to %s", stored.Status)
	}
	if len(stored.InvoiceActions) != len(p.InvoiceActions) {
		t.Errorf("rejected approval dropped actions: %d, want %d", len(stored.InvoiceActions), len(p.InvoiceActions))
	}
}

func TestApprove_EmptySelectionRejected(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)

	p := pendingPlan(t, o)

	if _, err := o.Approve(context.Background(), p.ID, nil); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("expected ErrEmptySelection, got %v", err)
	}
}

func TestApprove_AlreadyApprovedRejected(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)
	ctx := context.Background()

	p := pendingPlan(t, o)
	if _, err := o.Approve(ctx, p.ID, []string{"inv-late"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := o.Approve(ctx, p.ID, []string{"inv-late"}); !errors.Is(err, ErrPlanNotPending) {
		t.Errorf("expected ErrPlanNotPending, got %v", err)
	}
}

func TestApprove_UnknownPlan(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)

	_, err := o.Approve(context.Background(), uuid.New(), []string{"inv-late"})
	if !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestGetPendingPlan_NoneExists(t *testing.T) {
	invoices, customers := standardBook()
	o, _ := testOrchestrator(invoices, customers)

	_, err := o.GetPendingPlan(context.Background(), "org-1")
	if !errors.Is(err, ErrNoPendingPlan) {
		t.Errorf("expected ErrNoPendingPlan, got %v", err)
	}
}

func TestEffectiveDaysOverdue(t *testing.T) {
	cases := []struct {
		name string
		inv  models.Invoice
		want int
	}{
		{"host-reported value trusted", models.Invoice{DaysOverdue: 12, DueDate: testNow}, 12},
		{"derived from due date", models.Invoice{DueDate: testNow.AddDate(0, 0, -10)}, 10},
		{"not yet due", models.Invoice{DueDate: testNow.AddDate(0, 0, 5)}, 0},
	}
	for _, tc := range cases {
		if got := effectiveDaysOverdue(tc.inv, testNow); got != tc.want {
			t.Errorf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

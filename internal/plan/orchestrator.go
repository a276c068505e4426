package plan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"recovery-engine/internal/engine"
	"recovery-engine/internal/forecast"
	"recovery-engine/internal/history"
	"recovery-engine/internal/logger"
	"recovery-engine/internal/recommend"
	"recovery-engine/internal/recovery"
	"recovery-engine/pkg/models"
)

// Orchestrator runs the full analysis pipeline over an organization's
// receivables and manages the resulting plan lifecycle:
//
//	no plan -> draft (Analyze) -> pending (Persist) -> approved (Approve)
//	                                   \-> expired (superseded by newer Persist)
type Orchestrator struct {
	receivables ReceivablesStore
	plans       PlanStore

	analyzer    *history.Analyzer
	estimator   *recovery.Estimator
	forecaster  *forecast.Engine
	recommender *recommend.Engine
	cache       history.ProfileCache

	thresholds engine.Thresholds
	now        func() time.Time
	workers    int
	log        zerolog.Logger
}

// NewOrchestrator wires the pipeline components over the given stores
// with the shared numeric policy.
func NewOrchestrator(receivables ReceivablesStore, plans PlanStore, thresholds engine.Thresholds) *Orchestrator {
	return &Orchestrator{
		receivables: receivables,
		plans:       plans,
		analyzer:    history.NewAnalyzer(thresholds),
		estimator:   recovery.NewEstimator(thresholds),
		forecaster:  forecast.NewEngine(thresholds, nil),
		recommender: recommend.NewEngine(thresholds),
		thresholds:  thresholds,
		now:         time.Now,
		workers:     4,
		log:         logger.WithComponent("plan-orchestrator"),
	}
}

// WithAugmenter attaches a language-model augmenter to the recommendation
// engine. The rule-based path remains the fallback on every failure.
func (o *Orchestrator) WithAugmenter(a recommend.Augmenter) *Orchestrator {
	o.recommender = o.recommender.WithAugmenter(a)
	return o
}

// WithProfileCache attaches a payment-profile cache.
func (o *Orchestrator) WithProfileCache(c history.ProfileCache) *Orchestrator {
	o.cache = c
	return o
}

// WithClock overrides the time source, for tests.
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.now = clock
	o.forecaster = forecast.NewEngine(o.thresholds, clock)
	return o
}

// invoiceResult is the per-invoice output of the analysis fan-out.
type invoiceResult struct {
	action    InvoiceAction
	annotated models.Invoice
	atRisk    bool
}

// Analyze loads a point-in-time snapshot of the organization's
// receivables, runs the scoring, recovery, forecast and recommendation
// pipeline per open invoice, and assembles a draft plan. Nothing is
// persisted; a cancelled context aborts the run with no side effects.
// Malformed invoices are skipped with a warning, never fatal.
func (o *Orchestrator) Analyze(ctx context.Context, organizationID string) (*ActionPlan, error) {
	const op = "Analyze"
	started := o.now()

	snap, err := o.receivables.Snapshot(ctx, organizationID)
	if err != nil {
		return nil, &PlanError{Op: op, Err: fmt.Errorf("snapshot failed: %w", err)}
	}

	open, customerOutstanding := o.selectOpenInvoices(snap)
	profiles := o.resolveProfiles(ctx, snap, open)

	results := make([]*invoiceResult, len(open))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := o.workers
	if workers > len(open) {
		workers = len(open)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.analyzeInvoice(ctx, open[i], profiles, customerOutstanding)
			}
		}()
	}

dispatch:
	for i := range open {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &PlanError{Op: op, Err: err}
	}

	plan := o.assemblePlan(snap, results, profiles)

	o.log.Info().
		Str("organization_id", organizationID).
		Int("invoices_analyzed", plan.TotalInvoicesAnalyzed).
		Int64("amount_at_risk", plan.TotalAmountAtRisk).
		Int64("projected_recovery", plan.ProjectedRecovery).
		Int("health_score", plan.HealthScore).
		Dur("elapsed", o.now().Sub(started)).
		Msg("Analysis run completed")

	return plan, nil
}

// selectOpenInvoices filters the snapshot to analyzable open invoices,
// skipping malformed records, and totals outstanding per customer.
func (o *Orchestrator) selectOpenInvoices(snap *Snapshot) ([]models.Invoice, map[string]int64) {
	var open []models.Invoice
	outstanding := make(map[string]int64)
	for _, inv := range snap.Invoices {
		if inv.ID == "" || inv.CustomerID == "" || inv.Amount <= 0 || inv.DueDate.IsZero() {
			o.log.Warn().
				Str("invoice_id", inv.ID).
				Str("customer_id", inv.CustomerID).
				Int64("amount", inv.Amount).
				Msg("Skipping malformed invoice")
			continue
		}
		if !inv.IsOpen() {
			continue
		}
		open = append(open, inv)
		outstanding[inv.CustomerID] += inv.Outstanding()
	}
	return open, outstanding
}

// resolveProfiles computes (or fetches cached) payment profiles for every
// customer referenced by an open invoice. Cache failures degrade to
// recomputation.
func (o *Orchestrator) resolveProfiles(ctx context.Context, snap *Snapshot, open []models.Invoice) map[string]models.PaymentProfile {
	profiles := make(map[string]models.PaymentProfile)
	for _, inv := range open {
		if _, done := profiles[inv.CustomerID]; done {
			continue
		}

		if o.cache != nil {
			if p, ok := o.cache.Get(ctx, inv.CustomerID); ok {
				profiles[inv.CustomerID] = p
				continue
			}
		}

		cust := snap.Customers[inv.CustomerID]
		p := o.analyzer.Profile(cust.History)
		profiles[inv.CustomerID] = p

		if o.cache != nil {
			if err := o.cache.Set(ctx, inv.CustomerID, p); err != nil {
				o.log.Warn().
					Err(err).
					Str("customer_id", inv.CustomerID).
					Msg("Profile cache write failed")
			}
		}
	}
	return profiles
}

// analyzeInvoice runs the per-invoice pipeline: likelihood, predicted
// payment date, urgency, recommendations and scheduled actions.
func (o *Orchestrator) analyzeInvoice(ctx context.Context, inv models.Invoice, profiles map[string]models.PaymentProfile, customerOutstanding map[string]int64) *invoiceResult {
	now := o.now()
	profile := profiles[inv.CustomerID]

	daysOverdue := effectiveDaysOverdue(inv, now)
	likelihood := o.estimator.Likelihood(inv.Amount, daysOverdue, profile.Score)
	predicted := o.estimator.PredictPaymentDate(inv.DueDate, profile.AvgDaysToPayment, profile.Score)

	recs := o.recommender.Generate(ctx, recommend.Input{
		ClientName:       inv.ClientName,
		ClientScore:      profile.Score,
		AvgDaysToPayment: profile.AvgDaysToPayment,
		LatePaymentRate:  profile.LatePaymentRate,
		DaysPastDue:      daysOverdue,
		InvoiceAmount:    inv.Amount,
		TotalOutstanding: customerOutstanding[inv.CustomerID],
	})
	recommended := make([]string, 0, len(recs))
	for _, r := range recs {
		recommended = append(recommended, r.Title)
	}

	annotated := inv
	annotated.DaysOverdue = daysOverdue
	annotated.RecoveryLikelihood = &likelihood
	annotated.RiskLevel = profile.RiskLevel

	atRisk := daysOverdue > 0 ||
		profile.RiskLevel == models.RiskHigh ||
		profile.RiskLevel == models.RiskCritical

	return &invoiceResult{
		action: InvoiceAction{
			InvoiceID: inv.ID,
			Analysis: InvoiceAnalysis{
				ClientName:           inv.ClientName,
				AmountDue:            inv.Outstanding(),
				DaysOverdue:          daysOverdue,
				RiskLevel:            profile.RiskLevel,
				RecoveryLikelihood:   likelihood,
				UrgencyScore:         urgencyScore(daysOverdue, profile.RiskLevel, inv.Outstanding(), o.thresholds),
				PredictedPaymentDate: predicted,
				RecommendedActions:   recommended,
			},
			Actions: scheduleActions(annotated, profile.RiskLevel, now, o.thresholds),
			Status:  ActionPending,
		},
		annotated: annotated,
		atRisk:    atRisk,
	}
}

// assemblePlan folds per-invoice results into a draft plan with
// organization-wide totals, forecast, health score, squeeze alerts and
// proactive measures.
func (o *Orchestrator) assemblePlan(snap *Snapshot, results []*invoiceResult, profiles map[string]models.PaymentProfile) *ActionPlan {
	now := o.now()
	t := o.thresholds

	var (
		actions         []InvoiceAction
		annotated       []models.Invoice
		invoiceCustomer = make(map[string]string)
		amountAtRisk    int64
		projected       int64
		totalRecv       int64
		overdueRecv     int64
		ageDays         float64
	)

	for _, r := range results {
		if r == nil {
			continue
		}
		actions = append(actions, r.action)
		annotated = append(annotated, r.annotated)
		invoiceCustomer[r.annotated.ID] = r.annotated.CustomerID

		out := r.annotated.Outstanding()
		totalRecv += out
		ageDays += math.Max(0, now.Sub(r.annotated.IssueDate).Hours()/24)
		if r.annotated.DaysOverdue > 0 {
			overdueRecv += out
		}
		if r.atRisk {
			amountAtRisk += out
			projected += int64(math.Round(float64(out) * (*r.annotated.RecoveryLikelihood)))
		}
	}

	// Most urgent invoices first; stable tie-break for reviewers.
	sort.SliceStable(actions, func(i, j int) bool {
		if actions[i].Analysis.UrgencyScore != actions[j].Analysis.UrgencyScore {
			return actions[i].Analysis.UrgencyScore > actions[j].Analysis.UrgencyScore
		}
		return actions[i].InvoiceID < actions[j].InvoiceID
	})

	avgAge := 0.0
	if len(annotated) > 0 {
		avgAge = ageDays / float64(len(annotated))
	}

	fc := o.forecaster.Generate(annotated)
	// Outflow data is not visible to this engine; the 30-day projected
	// inflow stands in as the cash-flow trend input.
	health := o.forecaster.HealthScore(totalRecv, overdueRecv, avgAge, fc.Day30.Total)

	return &ActionPlan{
		ID:             uuid.New(),
		OrganizationID: snap.OrganizationID,
		Status:         PlanDraft,
		GeneratedAt:    now,

		TotalInvoicesAnalyzed: len(actions),
		TotalAmountAtRisk:     amountAtRisk,
		ProjectedRecovery:     projected,
		ProjectedSuccessFee:   int64(math.Round(float64(projected) * t.SuccessFeeRate)),

		InvoiceActions:    actions,
		CashSqueezeAlerts: detectCashSqueezes(annotated, now, t),
		ProactiveMeasures: deriveProactiveMeasures(actions, snap.Customers, profiles, invoiceCustomer, t),

		Forecast:    fc,
		HealthScore: health,
	}
}

// Persist transitions a draft plan to pending. Any prior pending plan for
// the organization is expired in the same atomic step (last writer wins).
func (o *Orchestrator) Persist(ctx context.Context, p *ActionPlan) (uuid.UUID, error) {
	const op = "Persist"
	if p.Status != PlanDraft {
		return uuid.Nil, &PlanError{Op: op, PlanID: p.ID, Err: ErrPlanNotDraft}
	}
	if err := o.plans.MarkPending(ctx, p); err != nil {
		return uuid.Nil, &PlanError{Op: op, PlanID: p.ID, Err: err}
	}
	p.Status = PlanPending

	o.log.Info().
		Str("organization_id", p.OrganizationID).
		Str("plan_id", p.ID.String()).
		Msg("Plan persisted as pending")
	return p.ID, nil
}

// GetPendingPlan returns the organization's most recent pending plan.
func (o *Orchestrator) GetPendingPlan(ctx context.Context, organizationID string) (*ActionPlan, error) {
	p, err := o.plans.GetPending(ctx, organizationID)
	if err != nil {
		return nil, &PlanError{Op: "GetPendingPlan", Err: err}
	}
	return p, nil
}

// Approve activates the selected subset of a pending plan's invoice
// actions. Unselected invoice actions are discarded, not carried forward.
// Validation failures reject the call without mutating the stored plan,
// and approving an already-approved plan is a state error.
func (o *Orchestrator) Approve(ctx context.Context, planID uuid.UUID, selectedInvoiceIDs []string) (*ActionPlan, error) {
	const op = "Approve"

	p, err := o.plans.Get(ctx, planID)
	if err != nil {
		return nil, &PlanError{Op: op, PlanID: planID, Err: err}
	}
	if p.Status != PlanPending {
		return nil, &PlanError{Op: op, PlanID: planID, Err: ErrPlanNotPending}
	}
	if len(selectedInvoiceIDs) == 0 {
		return nil, &PlanError{Op: op, PlanID: planID, Err: ErrEmptySelection}
	}

	known := make(map[string]bool, len(p.InvoiceActions))
	for _, ia := range p.InvoiceActions {
		known[ia.InvoiceID] = true
	}
	selected := make(map[string]bool, len(selectedInvoiceIDs))
	for _, id := range selectedInvoiceIDs {
		if !known[id] {
			return nil, &PlanError{Op: op, PlanID: planID, Err: fmt.Errorf("%w: %s", ErrUnknownInvoice, id)}
		}
		selected[id] = true
	}

	approved := *p
	approved.Status = PlanApproved
	approved.InvoiceActions = nil
	for _, ia := range p.InvoiceActions {
		if selected[ia.InvoiceID] {
			approved.InvoiceActions = append(approved.InvoiceActions, ia)
		}
	}

	if err := o.plans.Approve(ctx, &approved); err != nil {
		return nil, &PlanError{Op: op, PlanID: planID, Err: err}
	}

	o.log.Info().
		Str("plan_id", planID.String()).
		Int("selected_invoices", len(approved.InvoiceActions)).
		Int("dropped_invoices", len(p.InvoiceActions)-len(approved.InvoiceActions)).
		Msg("Plan approved")

	return &approved, nil
}

// effectiveDaysOverdue trusts a positive DaysOverdue from the host and
// otherwise derives it from the due date. Never negative.
func effectiveDaysOverdue(inv models.Invoice, now time.Time) int {
	if inv.DaysOverdue > 0 {
		return inv.DaysOverdue
	}
	if now.After(inv.DueDate) {
		return int(now.Sub(inv.DueDate).Hours() / 24)
	}
	return 0
}

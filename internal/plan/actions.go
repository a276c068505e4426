package plan

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"recovery-engine/internal/engine"
	"recovery-engine/pkg/models"
)

// urgencyScore ranks an invoice for reviewer attention on a 0-100 scale:
// one point per day overdue (capped), bumped for risk band and size.
func urgencyScore(daysOverdue int, risk models.RiskLevel, outstanding int64, t engine.Thresholds) int {
	score := daysOverdue
	if score > 60 {
		score = 60
	}

	switch risk {
	case models.RiskCritical:
		score += 30
	case models.RiskHigh:
		score += 20
	case models.RiskMedium:
		score += 10
	}

	if outstanding >= t.LargeInvoice {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// scheduleActions derives the concrete collection steps for one invoice.
// Tone escalates with days overdue; incentives appear only for the
// weakest risk bands on long-overdue balances. Execution and delivery are
// owned by the host; these are drafts.
func scheduleActions(inv models.Invoice, risk models.RiskLevel, now time.Time, t engine.Thresholds) []ScheduledAction {
	outstanding := formatMoney(inv.Outstanding())
	daysOverdue := inv.DaysOverdue

	var actions []ScheduledAction
	add := func(a ScheduledAction) {
		a.ID = uuid.New()
		a.Status = ActionPending
		actions = append(actions, a)
	}

	switch {
	case daysOverdue == 0:
		// Not yet overdue: a courtesy note only when the due date is close.
		daysToDue := int(inv.DueDate.Sub(now).Hours() / 24)
		if inv.DueDate.After(now) && daysToDue <= 7 {
			add(ScheduledAction{
				Type:         ActionEmail,
				ScheduledFor: now.AddDate(0, 0, 1),
				Content: ActionContent{
					Subject: fmt.Sprintf("Upcoming invoice %s due %s", inv.ID, inv.DueDate.Format("Jan 2")),
					Body: fmt.Sprintf("Hi %s, a quick note that invoice %s (%s) is due on %s.",
						inv.ClientName, inv.ID, outstanding, inv.DueDate.Format("January 2, 2006")),
				},
			})
		}

	case daysOverdue <= 7:
		add(ScheduledAction{
			Type:         ActionEmail,
			ScheduledFor: now.AddDate(0, 0, 1),
			Content: ActionContent{
				Subject: fmt.Sprintf("Friendly reminder: invoice %s", inv.ID),
				Body: fmt.Sprintf("Hi %s, invoice %s (%s) was due on %s. This may have slipped through; the payment link is in the original invoice.",
					inv.ClientName, inv.ID, outstanding, inv.DueDate.Format("January 2, 2006")),
			},
		})

	case daysOverdue <= 30:
		add(ScheduledAction{
			Type:         ActionEmail,
			ScheduledFor: now.AddDate(0, 0, 1),
			Content: ActionContent{
				Subject: fmt.Sprintf("Second notice: invoice %s is %d days past due", inv.ID, daysOverdue),
				Body: fmt.Sprintf("Hi %s, invoice %s (%s) is now %d days past due. Please get in touch if anything is blocking payment.",
					inv.ClientName, inv.ID, outstanding, daysOverdue),
			},
		})
		add(ScheduledAction{
			Type:         ActionCall,
			ScheduledFor: now.AddDate(0, 0, 3),
			Content: ActionContent{
				Body: fmt.Sprintf("Call %s about invoice %s (%s, %d days past due). Ask whether there is a dispute or a cash issue.",
					inv.ClientName, inv.ID, outstanding, daysOverdue),
			},
		})

	default: // > 30 days
		add(ScheduledAction{
			Type:         ActionEmail,
			ScheduledFor: now.AddDate(0, 0, 1),
			Content: ActionContent{
				Subject: fmt.Sprintf("Final notice: invoice %s", inv.ID),
				Body: fmt.Sprintf("Hi %s, invoice %s (%s) is %d days past due. This is a final notice before the account is reviewed for further steps.",
					inv.ClientName, inv.ID, outstanding, daysOverdue),
			},
		})
		add(ScheduledAction{
			Type:         ActionSMS,
			ScheduledFor: now.AddDate(0, 0, 2),
			Content: ActionContent{
				Body: fmt.Sprintf("Reminder from accounts receivable: invoice %s (%s) is %d days past due. A final notice email was sent.",
					inv.ID, outstanding, daysOverdue),
			},
		})
		add(ScheduledAction{
			Type:         ActionCall,
			ScheduledFor: now.AddDate(0, 0, 3),
			Content: ActionContent{
				Body: fmt.Sprintf("Escalation call to %s about invoice %s (%s). Establish a concrete settlement date.",
					inv.ClientName, inv.ID, outstanding),
			},
		})

		switch risk {
		case models.RiskCritical:
			add(ScheduledAction{
				Type:         ActionPaymentPlan,
				ScheduledFor: now.AddDate(0, 0, 5),
				Content: ActionContent{
					Subject: fmt.Sprintf("Payment plan offer for invoice %s", inv.ID),
					Body: fmt.Sprintf("Offer %s a 3-month installment plan for the outstanding %s.",
						inv.ClientName, outstanding),
				},
				Incentive: &Incentive{Type: "payment_plan", PaymentPlanMonths: 3},
			})
		case models.RiskHigh:
			add(ScheduledAction{
				Type:         ActionDiscountOffer,
				ScheduledFor: now.AddDate(0, 0, 5),
				Content: ActionContent{
					Subject: fmt.Sprintf("Settlement offer for invoice %s", inv.ID),
					Body: fmt.Sprintf("Offer %s a 5%% discount on the outstanding %s for settlement within 7 days.",
						inv.ClientName, outstanding),
				},
				Incentive: &Incentive{Type: "discount", DiscountPercent: 5},
			})
		}
	}

	return actions
}

func formatMoney(v int64) string {
	return fmt.Sprintf("%.2f", float64(v)/100)
}

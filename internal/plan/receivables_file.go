package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"recovery-engine/pkg/models"
)

// FileReceivablesStore loads a snapshot from a JSON file, for local runs
// and demos without a database.
type FileReceivablesStore struct {
	Path string
}

type snapshotFile struct {
	OrganizationID string `json:"organizationId"`
	Invoices       []struct {
		ID          string  `json:"id"`
		CustomerID  string  `json:"customerId"`
		ClientName  string  `json:"clientName"`
		Amount      int64   `json:"amount"`
		AmountPaid  int64   `json:"amountPaid"`
		IssueDate   string  `json:"issueDate"`
		DueDate     string  `json:"dueDate"`
		Status      string  `json:"status"`
		DaysOverdue int     `json:"daysOverdue"`
	} `json:"invoices"`
	Customers []struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		History []struct {
			InvoiceID string  `json:"invoiceId"`
			Amount    int64   `json:"amount"`
			DueDate   string  `json:"dueDate"`
			PaidDate  *string `json:"paidDate"`
			DaysLate  int     `json:"daysLate"`
		} `json:"history"`
	} `json:"customers"`
}

func (s *FileReceivablesStore) Snapshot(_ context.Context, organizationID string) (*Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse snapshot file: %w", err)
	}
	if file.OrganizationID != "" && file.OrganizationID != organizationID {
		return nil, fmt.Errorf("snapshot file is for organization %q, not %q", file.OrganizationID, organizationID)
	}

	snap := &Snapshot{
		OrganizationID: organizationID,
		Customers:      make(map[string]models.Customer),
		TakenAt:        time.Now(),
	}

	for _, raw := range file.Invoices {
		issue, err := parseDate(raw.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: %w", raw.ID, err)
		}
		due, err := parseDate(raw.DueDate)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: %w", raw.ID, err)
		}
		snap.Invoices = append(snap.Invoices, models.Invoice{
			ID:             raw.ID,
			OrganizationID: organizationID,
			CustomerID:     raw.CustomerID,
			ClientName:     raw.ClientName,
			Amount:         raw.Amount,
			AmountPaid:     raw.AmountPaid,
			IssueDate:      issue,
			DueDate:        due,
			Status:         models.InvoiceStatus(raw.Status),
			DaysOverdue:    raw.DaysOverdue,
		})
	}

	for _, rawCust := range file.Customers {
		c := models.Customer{
			ID:             rawCust.ID,
			OrganizationID: organizationID,
			Name:           rawCust.Name,
		}
		for _, rawRec := range rawCust.History {
			due, err := parseDate(rawRec.DueDate)
			if err != nil {
				return nil, fmt.Errorf("customer %s history: %w", rawCust.ID, err)
			}
			rec := models.PaymentRecord{
				InvoiceID: rawRec.InvoiceID,
				Amount:    rawRec.Amount,
				DueDate:   due,
				DaysLate:  rawRec.DaysLate,
			}
			if rawRec.PaidDate != nil {
				paid, err := parseDate(*rawRec.PaidDate)
				if err != nil {
					return nil, fmt.Errorf("customer %s history: %w", rawCust.ID, err)
				}
				rec.PaidDate = &paid
			}
			c.History = append(c.History, rec)
		}
		snap.Customers[c.ID] = c
	}

	return snap, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

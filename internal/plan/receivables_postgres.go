package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"recovery-engine/internal/logger"
	"recovery-engine/pkg/models"
)

// PostgresReceivablesStore bulk-fetches the organization's invoices,
// customers and payment history from the host schema in one pass. The
// three reads form the point-in-time snapshot the analysis works over;
// concurrent writes after the reads are invisible to the run.
type PostgresReceivablesStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresReceivablesStore creates a store over an existing pool.
func NewPostgresReceivablesStore(pool *pgxpool.Pool) *PostgresReceivablesStore {
	return &PostgresReceivablesStore{
		pool: pool,
		log:  logger.WithComponent("receivables-store-postgres"),
	}
}

func (s *PostgresReceivablesStore) Snapshot(ctx context.Context, organizationID string) (*Snapshot, error) {
	snap := &Snapshot{
		OrganizationID: organizationID,
		Customers:      make(map[string]models.Customer),
		TakenAt:        time.Now(),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, customer_id, client_name, amount, amount_paid,
		        issue_date, due_date, status, days_overdue
		 FROM invoices
		 WHERE organization_id = $1`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("fetch invoices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		inv := models.Invoice{OrganizationID: organizationID}
		var status string
		if err := rows.Scan(&inv.ID, &inv.CustomerID, &inv.ClientName,
			&inv.Amount, &inv.AmountPaid, &inv.IssueDate, &inv.DueDate,
			&status, &inv.DaysOverdue); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		inv.Status = models.InvoiceStatus(status)
		snap.Invoices = append(snap.Invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}

	custRows, err := s.pool.Query(ctx,
		`SELECT id, name FROM customers WHERE organization_id = $1`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	defer custRows.Close()
	for custRows.Next() {
		c := models.Customer{OrganizationID: organizationID}
		if err := custRows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		snap.Customers[c.ID] = c
	}
	if err := custRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}

	recRows, err := s.pool.Query(ctx,
		`SELECT customer_id, invoice_id, amount, due_date, paid_date, days_late
		 FROM payment_records
		 WHERE organization_id = $1
		 ORDER BY due_date`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment records: %w", err)
	}
	defer recRows.Close()
	for recRows.Next() {
		var (
			customerID string
			rec        models.PaymentRecord
		)
		if err := recRows.Scan(&customerID, &rec.InvoiceID, &rec.Amount,
			&rec.DueDate, &rec.PaidDate, &rec.DaysLate); err != nil {
			return nil, fmt.Errorf("scan payment record: %w", err)
		}
		c, ok := snap.Customers[customerID]
		if !ok {
			// History without a customer row is still usable.
			c = models.Customer{ID: customerID, OrganizationID: organizationID}
		}
		c.History = append(c.History, rec)
		snap.Customers[customerID] = c
	}
	if err := recRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment records: %w", err)
	}

	s.log.Debug().
		Str("organization_id", organizationID).
		Int("invoices", len(snap.Invoices)).
		Int("customers", len(snap.Customers)).
		Msg("Receivables snapshot loaded")

	return snap, nil
}

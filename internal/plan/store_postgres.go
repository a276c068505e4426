package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"recovery-engine/internal/logger"
)

// PostgresPlanStore persists plans in a single table with the full plan
// as a JSONB document. State transitions are single conditional writes,
// so a plan can never be observed half-transitioned.
//
// Expected schema:
//
//	CREATE TABLE action_plans (
//	    id              UUID PRIMARY KEY,
//	    organization_id TEXT NOT NULL,
//	    status          TEXT NOT NULL,
//	    generated_at    TIMESTAMPTZ NOT NULL,
//	    document        JSONB NOT NULL
//	);
//	CREATE INDEX action_plans_org_status ON action_plans (organization_id, status);
type PostgresPlanStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresPlanStore creates a store over an existing connection pool.
func NewPostgresPlanStore(pool *pgxpool.Pool) *PostgresPlanStore {
	return &PostgresPlanStore{
		pool: pool,
		log:  logger.WithComponent("plan-store-postgres"),
	}
}

func (s *PostgresPlanStore) Get(ctx context.Context, id uuid.UUID) (*ActionPlan, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM action_plans WHERE id = $1`, id,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("fetch plan: %w", err)
	}
	return decodePlan(doc)
}

func (s *PostgresPlanStore) GetPending(ctx context.Context, organizationID string) (*ActionPlan, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT document FROM action_plans
		 WHERE organization_id = $1 AND status = 'pending'
		 ORDER BY generated_at DESC
		 LIMIT 1`, organizationID,
	).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoPendingPlan
		}
		return nil, fmt.Errorf("fetch pending plan: %w", err)
	}
	return decodePlan(doc)
}

// MarkPending expires any prior pending plan for the organization and
// inserts the new one in a single transaction.
func (s *PostgresPlanStore) MarkPending(ctx context.Context, p *ActionPlan) error {
	stored := clonePlan(p)
	stored.Status = PlanPending
	doc, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE action_plans
		 SET status = 'expired',
		     document = jsonb_set(document, '{status}', '"expired"')
		 WHERE organization_id = $1 AND status = 'pending'`,
		stored.OrganizationID,
	)
	if err != nil {
		return fmt.Errorf("expire prior pending plans: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO action_plans (id, organization_id, status, generated_at, document)
		 VALUES ($1, $2, $3, $4, $5)`,
		stored.ID, stored.OrganizationID, stored.Status, stored.GeneratedAt, doc,
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if tag.RowsAffected() > 0 {
		s.log.Info().
			Str("organization_id", stored.OrganizationID).
			Int64("expired_plans", tag.RowsAffected()).
			Msg("Superseded prior pending plan")
	}
	return nil
}

// Approve replaces the stored document only while the row is still
// pending; the WHERE clause is the compare-and-swap.
func (s *PostgresPlanStore) Approve(ctx context.Context, p *ActionPlan) error {
	stored := clonePlan(p)
	stored.Status = PlanApproved
	doc, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE action_plans
		 SET status = 'approved', document = $2
		 WHERE id = $1 AND status = 'pending'`,
		stored.ID, doc,
	)
	if err != nil {
		return fmt.Errorf("approve plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing plan from a lost state race.
		var status string
		err := s.pool.QueryRow(ctx,
			`SELECT status FROM action_plans WHERE id = $1`, stored.ID,
		).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPlanNotFound
		}
		if err != nil {
			return fmt.Errorf("inspect plan status: %w", err)
		}
		return ErrPlanNotPending
	}
	return nil
}

func decodePlan(doc []byte) (*ActionPlan, error) {
	var p ActionPlan
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("decode plan document: %w", err)
	}
	return &p, nil
}

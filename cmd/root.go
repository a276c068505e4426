package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"recovery-engine/internal/config"
	"recovery-engine/internal/history"
	"recovery-engine/internal/logger"
	"recovery-engine/internal/plan"
	"recovery-engine/internal/recommend"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "recovery-engine",
	Short: "Accounts-receivable risk and recovery planning engine",
	Long: `recovery-engine analyzes an organization's invoice and payment
history into a reviewable action plan: payment-behavior scores, per-invoice
recovery estimates, confidence-tiered inflow forecasts and scheduled
collection actions awaiting approval.

All outputs are probabilistic estimates, not financial advice.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildOrchestrator wires the engine from config and command flags: a
// Postgres-backed deployment when a DSN is available, otherwise a JSON
// snapshot file with in-memory plan storage.
func buildOrchestrator(ctx context.Context, cfg *config.Config, snapshotPath, dsn string, augment bool) (*plan.Orchestrator, error) {
	if dsn == "" {
		dsn = cfg.PostgresDSN
	}

	var (
		receivables plan.ReceivablesStore
		plans       plan.PlanStore
	)
	switch {
	case dsn != "":
		pool, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		receivables = plan.NewPostgresReceivablesStore(pool)
		plans = plan.NewPostgresPlanStore(pool)
	case snapshotPath != "":
		receivables = &plan.FileReceivablesStore{Path: snapshotPath}
		plans = plan.NewMemoryPlanStore()
	default:
		return nil, fmt.Errorf("either --snapshot or --dsn (or POSTGRES_DSN) is required")
	}

	o := plan.NewOrchestrator(receivables, plans, cfg.Thresholds)

	if cfg.RedisAddr != "" {
		o = o.WithProfileCache(history.NewRedisProfileCache(cfg.RedisAddr, 15*time.Minute))
	}

	if augment {
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("--augment requires OPENAI_API_KEY")
		}
		client := openai.NewClient(cfg.OpenAIAPIKey)
		o = o.WithAugmenter(recommend.NewOpenAIAugmenter(client, cfg.OpenAIModel))
	}

	return o, nil
}

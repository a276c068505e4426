package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"recovery-engine/internal/config"
	"recovery-engine/internal/logger"
)

var (
	analyzeOrg      string
	analyzeSnapshot string
	analyzeDSN      string
	analyzeAugment  bool
	analyzePersist  bool
	analyzeTimeout  time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run an analysis and print the resulting draft plan",
	Long: `Analyze runs the full pipeline over an organization's open invoices
and prints the resulting draft action plan as JSON. With --persist the
draft is stored as the organization's pending plan, superseding any
prior pending plan.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.WithComponent("analyze")

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), analyzeTimeout)
		defer cancel()

		orchestrator, err := buildOrchestrator(ctx, cfg, analyzeSnapshot, analyzeDSN, analyzeAugment)
		if err != nil {
			return err
		}

		p, err := orchestrator.Analyze(ctx, analyzeOrg)
		if err != nil {
			return err
		}

		if analyzePersist {
			id, err := orchestrator.Persist(ctx, p)
			if err != nil {
				return err
			}
			log.Info().
				Str("plan_id", id.String()).
				Msg("Draft plan persisted as pending")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(p); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOrg, "org", "", "Organization id to analyze (required)")
	analyzeCmd.Flags().StringVar(&analyzeSnapshot, "snapshot", "", "JSON snapshot file of invoices and customers")
	analyzeCmd.Flags().StringVar(&analyzeDSN, "dsn", "", "Postgres DSN (defaults to POSTGRES_DSN)")
	analyzeCmd.Flags().BoolVar(&analyzeAugment, "augment", false, "Enrich recommendations with the language model")
	analyzeCmd.Flags().BoolVar(&analyzePersist, "persist", false, "Persist the draft plan as pending")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "Overall run timeout")
	analyzeCmd.MarkFlagRequired("org")

	rootCmd.AddCommand(analyzeCmd)
}

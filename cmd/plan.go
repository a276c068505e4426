package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"recovery-engine/internal/config"
)

var (
	planOrg      string
	planDSN      string
	planID       string
	planInvoices string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Inspect and approve pending action plans",
}

var planShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the organization's pending plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		orchestrator, err := buildOrchestrator(ctx, cfg, "", planDSN, false)
		if err != nil {
			return err
		}

		p, err := orchestrator.GetPendingPlan(ctx, planOrg)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

var planApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a pending plan for a subset of its invoices",
	Long: `Approve transitions a pending plan to approved, activating the
scheduled actions of the selected invoices. Actions of unselected
invoices are discarded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		id, err := uuid.Parse(planID)
		if err != nil {
			return fmt.Errorf("invalid plan id %q: %w", planID, err)
		}
		var selected []string
		for _, s := range strings.Split(planInvoices, ",") {
			if s = strings.TrimSpace(s); s != "" {
				selected = append(selected, s)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		orchestrator, err := buildOrchestrator(ctx, cfg, "", planDSN, false)
		if err != nil {
			return err
		}

		p, err := orchestrator.Approve(ctx, id, selected)
		if err != nil {
			return err
		}
		return printJSON(p)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	planCmd.PersistentFlags().StringVar(&planDSN, "dsn", "", "Postgres DSN (defaults to POSTGRES_DSN)")

	planShowCmd.Flags().StringVar(&planOrg, "org", "", "Organization id (required)")
	planShowCmd.MarkFlagRequired("org")

	planApproveCmd.Flags().StringVar(&planID, "plan", "", "Plan id (required)")
	planApproveCmd.Flags().StringVar(&planInvoices, "invoices", "", "Comma-separated invoice ids to activate (required)")
	planApproveCmd.MarkFlagRequired("plan")
	planApproveCmd.MarkFlagRequired("invoices")

	planCmd.AddCommand(planShowCmd, planApproveCmd)
	rootCmd.AddCommand(planCmd)
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/report"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	reportYear   int
	reportMonth  int
	reportMethod string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print ledger reports",
	Long:  `Print monthly summaries and budget status as JSON without starting the server`,
}

var monthlyReportCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Monthly totals, daily series and category breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd.Context(), func(ctx context.Context, reports *report.Service) (any, error) {
			return reports.MonthlySummary(ctx, reportYear, time.Month(reportMonth), report.Filter{PaymentMethod: reportMethod})
		})
	},
}

var budgetReportCmd = &cobra.Command{
	Use:   "budgets",
	Short: "Spend against each monthly limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(cmd.Context(), func(ctx context.Context, reports *report.Service) (any, error) {
			lines, err := reports.BudgetStatus(ctx, reportYear, time.Month(reportMonth))
			if err != nil {
				return nil, err
			}
			return report.BudgetsResponse{Year: reportYear, Month: reportMonth, Budgets: lines}, nil
		})
	},
}

func init() {
	now := time.Now()
	reportCmd.PersistentFlags().IntVarP(&reportYear, "year", "y", now.Year(), "report year")
	reportCmd.PersistentFlags().IntVarP(&reportMonth, "month", "m", int(now.Month()), "report month (1-12)")
	monthlyReportCmd.Flags().StringVarP(&reportMethod, "payment-method", "p", "", "restrict to one payment method")

	reportCmd.AddCommand(monthlyReportCmd)
	reportCmd.AddCommand(budgetReportCmd)
}

func runReport(ctx context.Context, fn func(context.Context, *report.Service) (any, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	deps, err := initializeDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	out, err := fn(ctx, deps.Reports)
	if err != nil {
		return err
	}

	decimal.MarshalJSONWithoutQuotes = true
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

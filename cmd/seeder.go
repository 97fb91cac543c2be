package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/balance"
	"github.com/frahmantamala/pocket-ledger/internal/seeder"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	seedYear    int
	seedMonth   int
	seedCount   int
	seedClear   bool
	seedOpening int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long: `Book random transactions into one month for development and testing purposes.
Expenses that a balance cannot cover are skipped, so both balances stay non-negative.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSeed(context.Background(), cmd); err != nil {
			log.Fatalf("seed: %v", err)
		}
	},
}

func init() {
	now := time.Now()
	seedCmd.Flags().IntVarP(&seedYear, "year", "y", now.Year(), "year to seed")
	seedCmd.Flags().IntVarP(&seedMonth, "month", "m", int(now.Month()), "month to seed (1-12)")
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 0, "number of transactions (defaults to ledger.seed.count)")
	seedCmd.Flags().BoolVar(&seedClear, "clear", false, "delete every transaction and zero both balances first")
	seedCmd.Flags().Int64Var(&seedOpening, "opening-balance", -1, "balance given to each empty method before seeding (defaults to ledger.seed.opening_balance)")
}

func runSeed(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	deps, err := initializeDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	count := cfg.Ledger.Seed.Count
	if cmd.Flags().Changed("count") {
		count = seedCount
	}
	opening := cfg.Ledger.Seed.OpeningBalance
	if seedOpening >= 0 {
		opening = seedOpening
	}

	if seedClear {
		removed, err := deps.Ledger.Reset(ctx)
		if err != nil {
			return fmt.Errorf("clear ledger: %w", err)
		}
		fmt.Printf("Cleared %d transactions\n", removed)
	}

	if opening > 0 {
		if err := applyOpeningBalance(ctx, deps.Balances, decimal.NewFromInt(opening)); err != nil {
			return err
		}
	}

	s := seeder.New(deps.Categories, deps.Ledger, deps.Metrics, deps.Logger,
		seeder.WithGainRatio(cfg.Ledger.Seed.GainRatio))
	created, err := s.EnsureCategories(ctx, seeder.DefaultCategories)
	if err != nil {
		return err
	}
	if created > 0 {
		fmt.Printf("Created %d categories\n", created)
	}

	res, err := s.Generate(ctx, seedYear, time.Month(seedMonth), count)
	if err != nil {
		return err
	}
	fmt.Printf("Seeded %04d-%02d: %d inserted, %d skipped\n", seedYear, seedMonth, res.Inserted, res.Skipped)

	balances, err := deps.Balances.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, m := range balance.Methods {
		fmt.Printf("  %-5s %s\n", m, balances.Of(m).StringFixed(2))
	}
	return nil
}

// applyOpeningBalance funds every method that currently holds zero.
func applyOpeningBalance(ctx context.Context, balances *balance.Service, amount decimal.Decimal) error {
	for _, m := range balance.Methods {
		current, err := balances.Get(ctx, m.String())
		if err != nil {
			return err
		}
		if !current.IsZero() {
			continue
		}
		if err := balances.Set(ctx, m.String(), amount); err != nil {
			return fmt.Errorf("set opening balance for %s: %w", m, err)
		}
	}
	return nil
}

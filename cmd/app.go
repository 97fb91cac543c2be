package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	balancePostgres "github.com/frahmantamala/pocket-ledger/internal/balance/postgres"
	"github.com/frahmantamala/pocket-ledger/internal/budget"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	categoryPostgres "github.com/frahmantamala/pocket-ledger/internal/category/postgres"
	"github.com/frahmantamala/pocket-ledger/internal/core/events"
	"github.com/frahmantamala/pocket-ledger/internal/core/metrics"
	"github.com/frahmantamala/pocket-ledger/internal/database"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	ledgerPostgres "github.com/frahmantamala/pocket-ledger/internal/ledger/postgres"
	"github.com/frahmantamala/pocket-ledger/internal/report"
	reportPostgres "github.com/frahmantamala/pocket-ledger/internal/report/postgres"
	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// Dependencies holds everything the commands share.
type Dependencies struct {
	Config     *internal.Config
	DB         *gorm.DB
	ReadDB     *sqlx.DB
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	EventBus   *events.EventBus
	Categories *category.Service
	Balances   *balance.Service
	Ledger     *ledger.Service
	Reports    *report.Service
}

// initializeDependencies opens and migrates the store, then makes sure the
// reserved categories and both balances exist.
func initializeDependencies(ctx context.Context, cfg *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	readDB, err := database.SQLX(db)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to open read connection: %w", err)
	}

	m := metrics.New()
	bus := events.NewEventBus(lg)
	// balances and ledger share one write lock
	writeMu := &sync.Mutex{}

	categories := category.NewService(categoryPostgres.NewCategoryRepository(db), lg)
	balances := balance.NewService(balancePostgres.NewBalanceRepository(db), writeMu, m, lg)
	ledgerService := ledger.NewService(ledgerPostgres.NewLedgerRepository(db), writeMu, bus, m,
		ledger.Options{StrictBalance: cfg.Ledger.StrictBalance}, lg)
	reports := report.NewService(reportPostgres.NewReportRepository(readDB), categories, nil, lg)

	budget.NewEventHandler(categories, reports, m, lg).RegisterEventHandlers(bus)

	if err := categories.EnsureReserved(ctx); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to create reserved categories: %w", err)
	}
	if err := balances.EnsureInitialized(ctx); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to initialize balances: %w", err)
	}

	return &Dependencies{
		Config:     cfg,
		DB:         db,
		ReadDB:     readDB,
		Logger:     lg,
		Metrics:    m,
		EventBus:   bus,
		Categories: categories,
		Balances:   balances,
		Ledger:     ledgerService,
		Reports:    reports,
	}, nil
}

// Close drains pending event handlers before closing the store.
func (d *Dependencies) Close() {
	d.EventBus.Close()
	if err := database.Close(d.DB); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

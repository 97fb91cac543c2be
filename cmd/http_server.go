package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/pocket-ledger/api"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/frahmantamala/pocket-ledger/internal/report"
	"github.com/frahmantamala/pocket-ledger/internal/transport"
	"github.com/frahmantamala/pocket-ledger/internal/transport/rest"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func startHTTPServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	deps, err := initializeDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	router, err := setupRoutes(ctx, deps)
	if err != nil {
		return fmt.Errorf("failed to set up routes: %w", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "driver", cfg.Database.Driver)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed to start: %w", err)
		}
	}

	deps.Logger.Info("Server stopped")
	return nil
}

func setupRoutes(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	// amounts go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	cfg := deps.Config
	sqlDB, err := deps.DB.DB()
	if err != nil {
		return nil, err
	}

	base := transport.NewBaseHandler(deps.Logger)
	handlers := rest.Handlers{
		Category: category.NewHandler(base, deps.Categories),
		Balance:  balance.NewHandler(base, deps.Balances),
		Ledger:   ledger.NewHandler(base, deps.Ledger),
		Report:   report.NewHandler(base, deps.Reports),
	}
	opts := rest.Options{
		DB:             sqlDB,
		DBDriver:       cfg.Database.Driver,
		Checks:         map[string]rest.Check{"balances": balancesCheck(deps.Balances)},
		RequestTimeout: cfg.Server.RequestTimeout,
		LogRequests:    true,
		Logger:         deps.Logger,
	}
	if cfg.Server.OpenAPIValidation {
		doc, err := api.Load(ctx)
		if err != nil {
			return nil, err
		}
		opts.Doc = doc
	}
	if cfg.Observability.Metrics.Enabled {
		opts.Metrics = deps.Metrics.Handler()
		opts.MetricsPath = cfg.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	if err := rest.RegisterAllRoutes(router, handlers, opts); err != nil {
		return nil, err
	}
	return router, nil
}

// balancesCheck reports both balances and fails when they cannot be read.
func balancesCheck(balances *balance.Service) rest.Check {
	return func(ctx context.Context) (map[string]any, error) {
		details := make(map[string]any, len(balance.Methods))
		for _, m := range balance.Methods {
			amount, err := balances.Get(ctx, m.String())
			if err != nil {
				return details, err
			}
			details[m.String()] = amount.StringFixed(2)
		}
		return details, nil
	}
}

package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/pocket-ledger/api"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/frahmantamala/pocket-ledger/internal/report"
	"github.com/frahmantamala/pocket-ledger/internal/transport/middleware"
	"github.com/frahmantamala/pocket-ledger/internal/transport/swagger"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Category *category.Handler
	Balance  *balance.Handler
	Ledger   *ledger.Handler
	Report   *report.Handler
}

type Options struct {
	DB       *sql.DB
	DBDriver string
	// Checks are reported by /health next to the database.
	Checks map[string]Check
	// Doc enables request validation when set.
	Doc *openapi3.T
	// Metrics is served at MetricsPath when set.
	Metrics        http.Handler
	MetricsPath    string
	RequestTimeout time.Duration
	LogRequests    bool
	Logger         *slog.Logger
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options) error {
	component := opts.DBDriver
	if component == "" {
		component = "database"
	}
	checks := map[string]Check{component: DBCheck(opts.DB)}
	for name, check := range opts.Checks {
		checks[name] = check
	}
	healthHandler := NewHealthHandler(checks)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	if opts.LogRequests {
		router.Use(middleware.LoggingMiddleware(opts.Logger))
	}
	// inside logging so recovered panics are logged as 500s
	router.Use(middleware.RecoveryMiddleware(opts.Logger))

	// API document and swagger UI live outside the API prefix
	router.Get(swagger.DocPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.OpenAPI)
	})
	router.Handle("/swagger/*", swagger.Handler())

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, opts.Metrics)
	}

	var validate func(http.Handler) http.Handler
	if opts.Doc != nil {
		v, err := middleware.OpenAPIValidator(opts.Doc, opts.Logger)
		if err != nil {
			return err
		}
		validate = v
	}

	// Mount API under /api/v1 to match the document's server url
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Group(func(ar chi.Router) {
			if validate != nil {
				ar.Use(validate)
			}
			if opts.RequestTimeout > 0 {
				ar.Use(middleware.Timeout(opts.RequestTimeout))
			}

			if h.Category != nil {
				ar.Route("/categories", func(cr chi.Router) {
					cr.Get("/", h.Category.GetCategories)
					cr.Post("/", h.Category.CreateCategory)
					cr.Get("/{id}", h.Category.GetCategory)
					cr.Put("/{id}", h.Category.UpdateCategory)
					cr.Delete("/{id}", h.Category.DeleteCategory)
				})
			}

			if h.Balance != nil {
				ar.Get("/balances", h.Balance.GetBalances)
				ar.Put("/balances/{method}", h.Balance.SetBalance)
			}

			ar.Route("/transactions", func(tr chi.Router) {
				if h.Report != nil {
					tr.Get("/", h.Report.ListTransactions)
				}
				if h.Ledger != nil {
					tr.Post("/", h.Ledger.CreateTransaction)
					tr.Get("/{id}", h.Ledger.GetTransaction)
					tr.Put("/{id}", h.Ledger.UpdateTransaction)
					tr.Delete("/{id}", h.Ledger.DeleteTransaction)
				}
			})

			if h.Report != nil {
				ar.Get("/reports/monthly", h.Report.GetMonthlySummary)
				ar.Get("/reports/budgets", h.Report.GetBudgets)
			}
		})
	})
	return nil
}

package report

import (
	"context"
	"log/slog"
	"time"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	transactionDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/transaction"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RepositoryAPI is the read side of the ledger.
type RepositoryAPI interface {
	// ListTransactions runs q as one query joined with category names,
	// newest first.
	ListTransactions(ctx context.Context, q Query) ([]*transactionDatamodel.Transaction, error)
}

type CategoryLister interface {
	List(ctx context.Context) ([]*category.Category, error)
}

type MonthlySummary struct {
	Year             int             `json:"year"`
	Month            int             `json:"month"`
	GainTotal        decimal.Decimal `json:"gain_total"`
	ExpenseTotal     decimal.Decimal `json:"expense_total"`
	Net              decimal.Decimal `json:"net"`
	TransactionCount int             `json:"transaction_count"`
	Daily            []DayTotal      `json:"daily"`
	Categories       []CategoryTotal `json:"categories"`
	// Degraded means no Gain category exists and gains were inferred from
	// the amount sign.
	Degraded bool `json:"degraded"`
}

type BudgetLine struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Limit        decimal.Decimal `json:"limit"`
	Spent        decimal.Decimal `json:"spent"`
	Remaining    decimal.Decimal `json:"remaining"`
	Exceeded     bool            `json:"exceeded"`
}

type Service struct {
	repo       RepositoryAPI
	categories CategoryLister
	loc        *time.Location
	logger     *slog.Logger
}

// NewService builds the query layer. Day boundaries are computed in loc
// (time.Local when nil).
func NewService(repo RepositoryAPI, categories CategoryLister, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:       repo,
		categories: categories,
		loc:        loc,
		logger:     logger,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// ListTransactions returns the entries matching f, newest first.
func (s *Service) ListTransactions(ctx context.Context, f Filter) ([]*ledger.Transaction, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListTransactions(ctx, f.Query())
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to list transactions", "error", err)
		return nil, appErrors.NewInternalError("failed to list transactions", err)
	}
	return ledger.FromDataModelSlice(rows), nil
}

// MonthlySummary aggregates one month. Filter dates are replaced by the month
// bounds; the other filter fields still apply.
func (s *Service) MonthlySummary(ctx context.Context, year int, month time.Month, f Filter) (*MonthlySummary, error) {
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	first, last := MonthRange(year, month, s.loc)
	f.StartDate, f.EndDate = &first, &last
	f.Limit = 0
	if err := f.Validate(); err != nil {
		return nil, err
	}

	var (
		categories []*category.Category
		txns       []*ledger.Transaction
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.categories.List(gCtx)
		if err != nil {
			return err
		}
		categories = c
		return nil
	})
	g.Go(func() error {
		t, err := s.ListTransactions(gCtx, f)
		if err != nil {
			return err
		}
		txns = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	classifier := NewClassifier(categories)
	valid, skipped := classifier.Sanitize(txns)
	log := logger.FromOr(ctx, s.logger)
	if skipped > 0 {
		log.Warn("skipped malformed transactions in summary", "skipped", skipped, "year", year, "month", int(month))
	}
	if classifier.Degraded() {
		log.Warn("no Gain category; classifying by amount sign", "year", year, "month", int(month))
	}

	partition := PartitionByKind(valid, classifier)
	return &MonthlySummary{
		Year:             year,
		Month:            int(month),
		GainTotal:        partition.GainTotal,
		ExpenseTotal:     partition.ExpenseTotal,
		Net:              partition.GainTotal.Sub(partition.ExpenseTotal),
		TransactionCount: len(valid),
		Daily:            FillMonth(GroupByDay(valid, classifier, s.loc), year, month, s.loc),
		Categories:       GroupByCategory(valid, classifier),
		Degraded:         partition.Degraded,
	}, nil
}

// BudgetStatus compares each limited category's monthly spend to its limit.
func (s *Service) BudgetStatus(ctx context.Context, year int, month time.Month) ([]BudgetLine, error) {
	summary, err := s.MonthlySummary(ctx, year, month, Filter{})
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	spent := make(map[int64]decimal.Decimal, len(summary.Categories))
	for _, c := range summary.Categories {
		if !c.Gain {
			spent[c.CategoryID] = c.Total
		}
	}

	lines := make([]BudgetLine, 0)
	for _, c := range categories {
		if !c.HasLimit() || c.IsGain() {
			continue
		}
		used, ok := spent[c.ID]
		if !ok {
			used = decimal.Zero
		}
		lines = append(lines, BudgetLine{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Limit:        *c.MonthlyLimit,
			Spent:        used,
			Remaining:    c.MonthlyLimit.Sub(used),
			Exceeded:     used.GreaterThan(*c.MonthlyLimit),
		})
	}
	return lines, nil
}

// CategorySpend sums the expenses booked against one category in the month
// containing at.
func (s *Service) CategorySpend(ctx context.Context, categoryName string, at time.Time) (decimal.Decimal, error) {
	local := at.In(s.loc)
	first, last := MonthRange(local.Year(), local.Month(), s.loc)
	txns, err := s.ListTransactions(ctx, Filter{StartDate: &first, EndDate: &last, Category: categoryName})
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, t := range txns {
		if t.Amount.IsPositive() && !t.IsGain() {
			total = total.Add(t.Amount)
		}
	}
	return total, nil
}

func validateMonth(year int, month time.Month) error {
	if year < 1970 || year > 9999 {
		return appErrors.NewValidationFieldError("year", "year must be between 1970 and 9999", appErrors.ErrCodeInvalidDate)
	}
	if month < time.January || month > time.December {
		return appErrors.NewValidationFieldError("month", "month must be between 1 and 12", appErrors.ErrCodeInvalidDate)
	}
	return nil
}

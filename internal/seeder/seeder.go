package seeder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/core/metrics"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultGainRatio = 0.10

	// amounts in cents
	minExpenseCents = 10_00
	maxExpenseCents = 500_00
	minGainCents    = 500_00
	maxGainCents    = 5000_00

	maxCount = 10_000
)

// DefaultCategories are created by EnsureCategories when missing.
var DefaultCategories = []string{"Food", "Transport", "Shopping", "Bills", "Entertainment"}

type CategoryStore interface {
	List(ctx context.Context) ([]*category.Category, error)
	Create(ctx context.Context, dto category.CreateCategoryDTO) (*category.Category, error)
}

type LedgerWriter interface {
	Add(ctx context.Context, dto ledger.CreateTransactionDTO) (*ledger.Transaction, error)
}

// Result counts what one Generate call did.
type Result struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type Option func(*Seeder)

// WithRand replaces the random source.
func WithRand(r *rand.Rand) Option {
	return func(s *Seeder) { s.rnd = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Seeder) { s.now = now }
}

// WithGainRatio sets the share of entries booked as gains, when a Gain
// category exists.
func WithGainRatio(ratio float64) Option {
	return func(s *Seeder) {
		if ratio >= 0 && ratio <= 1 {
			s.gainRatio = ratio
		}
	}
}

// WithLocation sets the location month bounds are computed in.
func WithLocation(loc *time.Location) Option {
	return func(s *Seeder) { s.loc = loc }
}

// Seeder books synthetic entries through the ledger, so every row gets the
// same atomic add as a real one.
type Seeder struct {
	categories CategoryStore
	ledger     LedgerWriter
	metrics    *metrics.Metrics
	logger     *slog.Logger
	rnd        *rand.Rand
	now        func() time.Time
	loc        *time.Location
	gainRatio  float64
}

func New(categories CategoryStore, l LedgerWriter, m *metrics.Metrics, logger *slog.Logger, opts ...Option) *Seeder {
	s := &Seeder{
		categories: categories,
		ledger:     l,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
		loc:        time.Local,
		gainRatio:  defaultGainRatio,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		seed := uint64(s.now().UnixNano())
		s.rnd = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return s
}

// EnsureCategories creates any of names that do not exist yet.
func (s *Seeder) EnsureCategories(ctx context.Context, names []string) (int, error) {
	created := 0
	for _, name := range names {
		_, err := s.categories.Create(ctx, category.CreateCategoryDTO{Name: name})
		if errors.Is(err, appErrors.ErrCategoryExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("create category %q: %w", name, err)
		}
		created++
	}
	return created, nil
}

// Generate books count random entries dated inside the given month. Expenses
// that the balance cannot cover are skipped; any other failure stops the run
// and returns what was done so far.
func (s *Seeder) Generate(ctx context.Context, year int, month time.Month, count int) (Result, error) {
	var res Result
	if count < 1 || count > maxCount {
		return res, appErrors.NewValidationFieldError("count", fmt.Sprintf("count must be between 1 and %d", maxCount), appErrors.ErrCodeValidationFailed)
	}
	if month < time.January || month > time.December {
		return res, appErrors.NewValidationFieldError("month", "month must be between 1 and 12", appErrors.ErrCodeInvalidDate)
	}

	fromMs, toMs, err := s.window(year, month)
	if err != nil {
		return res, err
	}

	categories, err := s.categories.List(ctx)
	if err != nil {
		return res, err
	}
	var (
		gain     *category.Category
		expenses []*category.Category
	)
	for _, c := range categories {
		if c.IsGain() {
			gain = c
		} else {
			expenses = append(expenses, c)
		}
	}
	if gain == nil && len(expenses) == 0 {
		return res, appErrors.NewValidationError("no categories to seed into", appErrors.ErrCodeCategoryNotFound)
	}

	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		isGain := gain != nil && (len(expenses) == 0 || s.rnd.Float64() < s.gainRatio)
		dto := ledger.CreateTransactionDTO{
			PaymentMethod: balance.Methods[s.rnd.IntN(len(balance.Methods))].String(),
		}
		ts := fromMs + s.rnd.Int64N(toMs-fromMs+1)
		dto.Timestamp = &ts
		if isGain {
			dto.CategoryID = gain.ID
			dto.Amount = s.amount(minGainCents, maxGainCents)
		} else {
			dto.CategoryID = expenses[s.rnd.IntN(len(expenses))].ID
			dto.Amount = s.amount(minExpenseCents, maxExpenseCents)
			dto.RequireFunds = true
		}
		reason := "seeded"
		dto.Reason = &reason

		_, err := s.ledger.Add(ctx, dto)
		switch {
		case err == nil:
			res.Inserted++
		case errors.Is(err, appErrors.ErrInsufficientBalance):
			res.Skipped++
		default:
			s.record(res)
			logger.FromOr(ctx, s.logger).Error("seeding stopped", "error", err, "inserted", res.Inserted, "skipped", res.Skipped)
			return res, err
		}
	}

	s.record(res)
	logger.FromOr(ctx, s.logger).Info("seeding finished",
		"year", year,
		"month", int(month),
		"inserted", res.Inserted,
		"skipped", res.Skipped)
	return res, nil
}

// window returns the month bounds in ms, with the end capped to now.
func (s *Seeder) window(year int, month time.Month) (int64, int64, error) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	from := first.UnixMilli()
	to := first.AddDate(0, 1, 0).UnixMilli() - 1
	if now := s.now().UnixMilli(); now < to {
		to = now
	}
	if to < from {
		return 0, 0, appErrors.NewValidationFieldError("month", "cannot seed a month in the future", appErrors.ErrCodeInvalidDate)
	}
	return from, to, nil
}

func (s *Seeder) amount(minCents, maxCents int64) decimal.Decimal {
	cents := minCents + s.rnd.Int64N(maxCents-minCents+1)
	return decimal.New(cents, -2)
}

func (s *Seeder) record(res Result) {
	s.metrics.AddSeeded("inserted", res.Inserted)
	s.metrics.AddSeeded("skipped", res.Skipped)
}

package balance

import (
	"context"
	"log/slog"
	"sync"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/core/common/validation"
	balanceDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/balance"
	"github.com/frahmantamala/pocket-ledger/internal/core/metrics"
	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// RepositoryAPI is the balance storage. Get returns (nil, nil) for a missing row.
type RepositoryAPI interface {
	Get(ctx context.Context, method string) (*balanceDatamodel.Balance, error)
	GetAll(ctx context.Context) ([]*balanceDatamodel.Balance, error)
	// Set overwrites the amount, creating the row when needed.
	Set(ctx context.Context, method string, amount decimal.Decimal) error
	// Adjust adds delta to the stored amount and returns the amounts before
	// and after. It must run inside the caller's storage transaction.
	Adjust(ctx context.Context, method string, delta decimal.Decimal) (before, after decimal.Decimal, err error)
	// EnsureRow creates a zero row when none exists.
	EnsureRow(ctx context.Context, method string) error
}

type Service struct {
	repo    RepositoryAPI
	writeMu sync.Locker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService wires the balance store. writeMu must be the lock the ledger
// holds while mutating, so that an overwrite never interleaves with a
// transaction write.
func NewService(repo RepositoryAPI, writeMu sync.Locker, m *metrics.Metrics, logger *slog.Logger) *Service {
	if writeMu == nil {
		writeMu = &sync.Mutex{}
	}
	return &Service{
		repo:    repo,
		writeMu: writeMu,
		metrics: m,
		logger:  logger,
	}
}

// Get returns the balance of method, or zero when it was never stored.
func (s *Service) Get(ctx context.Context, method string) (decimal.Decimal, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return decimal.Zero, err
	}

	row, err := s.repo.Get(ctx, string(m))
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to read balance", "error", err, "method", m)
		return decimal.Zero, appErrors.NewInternalError("failed to read balance", err)
	}
	if row == nil {
		return decimal.Zero, nil
	}
	return row.Amount, nil
}

func (s *Service) GetAll(ctx context.Context) (*Balances, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to read balances", "error", err)
		return nil, appErrors.NewInternalError("failed to read balances", err)
	}

	out := &Balances{GPay: decimal.Zero, Cash: decimal.Zero}
	for _, row := range rows {
		m := Method(row.Type)
		if !m.Valid() {
			logger.FromOr(ctx, s.logger).Warn("ignoring balance row for unknown method", "method", row.Type)
			continue
		}
		out.set(m, row.Amount)
	}
	return out, nil
}

// Set overwrites a balance without checking its sign.
func (s *Service) Set(ctx context.Context, method string, amount decimal.Decimal) error {
	m, err := ParseMethod(method)
	if err != nil {
		return err
	}

	if !validation.MoneyFits(amount) {
		return appErrors.NewValidationFieldError("amount", "amount is outside the storable money range", appErrors.ErrCodeInvalidAmount)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.repo.Set(ctx, string(m), amount); err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to set balance", "error", err, "method", m)
		return appErrors.NewTransactionFailedError("failed to set balance", appErrors.ErrCodeBalanceWriteFailed, err)
	}

	s.metrics.SetBalance(string(m), amount)
	logger.FromOr(ctx, s.logger).Info("balance set", "method", m, "amount", amount.String())
	return nil
}

// EnsureInitialized creates a zero balance for every method that lacks one
// and publishes the current values.
func (s *Service) EnsureInitialized(ctx context.Context) error {
	for _, m := range Methods {
		if err := s.repo.EnsureRow(ctx, string(m)); err != nil {
			return appErrors.NewInternalError("failed to initialize balances", err)
		}
	}

	balances, err := s.GetAll(ctx)
	if err != nil {
		return err
	}
	for _, m := range Methods {
		s.metrics.SetBalance(string(m), balances.Of(m))
	}
	return nil
}

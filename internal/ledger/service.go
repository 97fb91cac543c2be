package ledger

import (
	"context"
	"log/slog"
	"sync"
	"time"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/core/common/validation"
	categoryDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/category"
	transactionDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/transaction"
	"github.com/frahmantamala/pocket-ledger/internal/core/events"
	"github.com/frahmantamala/pocket-ledger/internal/core/metrics"
	"github.com/frahmantamala/pocket-ledger/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	opAdd    = "add"
	opUpdate = "update"
	opDelete = "delete"
	opReset  = "reset"
)

// RepositoryAPI is the ledger storage.
type RepositoryAPI interface {
	// Atomic runs fn inside one storage transaction. Any error returned by fn
	// rolls back every write fn made.
	Atomic(ctx context.Context, fn func(tx TxRepository) error) error
	// GetByID returns the row with its category name, or (nil, nil).
	GetByID(ctx context.Context, id string) (*transactionDatamodel.Transaction, error)
}

// TxRepository is the view of storage inside an atomic unit. Lookups return
// (nil, nil) when the row does not exist.
type TxRepository interface {
	GetCategory(ctx context.Context, id int64) (*categoryDatamodel.Category, error)
	// GetTransaction loads the row joined with its category name.
	GetTransaction(ctx context.Context, id string) (*transactionDatamodel.Transaction, error)
	AdjustBalance(ctx context.Context, method string, delta decimal.Decimal) (before, after decimal.Decimal, err error)
	Insert(ctx context.Context, t *transactionDatamodel.Transaction) error
	Update(ctx context.Context, t *transactionDatamodel.Transaction) error
	Delete(ctx context.Context, id string) error
	// DeleteAll removes every entry and reports how many were removed.
	DeleteAll(ctx context.Context) (int64, error)
	SetBalance(ctx context.Context, method string, amount decimal.Decimal) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event)
}

type Options struct {
	// StrictBalance rejects mutations that leave a touched balance negative
	// and lower than before.
	StrictBalance bool
	// Now stamps new and updated entries; defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	repo      RepositoryAPI
	writeMu   sync.Locker
	publisher EventPublisher
	metrics   *metrics.Metrics
	strict    bool
	now       func() time.Time
	logger    *slog.Logger
}

// NewService wires the ledger. writeMu serializes every mutation in this
// process and must be shared with the balance service.
func NewService(repo RepositoryAPI, writeMu sync.Locker, publisher EventPublisher, m *metrics.Metrics, opts Options, logger *slog.Logger) *Service {
	if writeMu == nil {
		writeMu = &sync.Mutex{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      repo,
		writeMu:   writeMu,
		publisher: publisher,
		metrics:   m,
		strict:    opts.StrictBalance,
		now:       now,
		logger:    logger,
	}
}

// balanceChange is one committed balance write.
type balanceChange struct {
	method string
	after  decimal.Decimal
}

// Add books a new entry and applies its effect to the payment method's
// balance in one atomic unit.
func (s *Service) Add(ctx context.Context, dto CreateTransactionDTO) (*Transaction, error) {
	start := time.Now()
	log := logger.FromOr(ctx, s.logger)

	if err := dto.Validate(); err != nil {
		s.record(opAdd, err, start)
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	timestamp := s.now().UnixMilli()
	if dto.Timestamp != nil {
		timestamp = *dto.Timestamp
	}
	row := &transactionDatamodel.Transaction{
		ID:            uuid.NewString(),
		TimestampMs:   timestamp,
		PaymentMethod: dto.PaymentMethod,
		CategoryID:    dto.CategoryID,
		Amount:        dto.Amount,
		Reason:        normalizeReason(dto.Reason),
	}

	var changes []balanceChange
	err := s.repo.Atomic(ctx, func(tx TxRepository) error {
		cat, err := s.resolveCategory(ctx, tx, dto.CategoryID)
		if err != nil {
			return err
		}
		row.CategoryName = cat.Name

		change, err := s.adjust(ctx, tx, dto.PaymentMethod, category.Effect(cat.Name, dto.Amount), dto.RequireFunds)
		if err != nil {
			return err
		}
		changes = append(changes, change)

		if err := tx.Insert(ctx, row); err != nil {
			return ledgerWriteFailed(err)
		}
		return nil
	})
	if err != nil {
		err = s.fail(ctx, opAdd, err, start, "transaction_id", row.ID, "category_id", dto.CategoryID)
		return nil, err
	}

	s.committed(opAdd, changes, start)
	s.publish(ctx, events.NewTransactionCreatedEvent(snapshot(row)))
	log.Info("transaction added",
		"transaction_id", row.ID,
		"payment_method", row.PaymentMethod,
		"category_id", row.CategoryID,
		"amount", row.Amount.String())
	return FromDataModel(row), nil
}

// Update replaces an entry's data, reverting its old effect and applying the
// new one. The id is preserved and the timestamp refreshed.
func (s *Service) Update(ctx context.Context, id string, dto UpdateTransactionDTO) (*Transaction, error) {
	start := time.Now()
	log := logger.FromOr(ctx, s.logger)

	if err := dto.Validate(); err != nil {
		s.record(opUpdate, err, start)
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	timestamp := s.now().UnixMilli()
	if dto.Timestamp != nil {
		timestamp = *dto.Timestamp
	}

	var (
		previous *transactionDatamodel.Transaction
		next     transactionDatamodel.Transaction
		changes  []balanceChange
	)
	err := s.repo.Atomic(ctx, func(tx TxRepository) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return ledgerWriteFailed(err)
		}
		if old == nil {
			return appErrors.ErrTransactionNotFound
		}
		previous = old

		newCat, err := s.resolveCategory(ctx, tx, dto.CategoryID)
		if err != nil {
			return err
		}

		oldEffect := category.Effect(old.CategoryName, old.Amount)
		newEffect := category.Effect(newCat.Name, dto.Amount)

		if old.PaymentMethod != dto.PaymentMethod {
			reverted, err := s.adjust(ctx, tx, old.PaymentMethod, oldEffect.Neg(), false)
			if err != nil {
				return err
			}
			applied, err := s.adjust(ctx, tx, dto.PaymentMethod, newEffect, false)
			if err != nil {
				return err
			}
			changes = append(changes, reverted, applied)
		} else {
			change, err := s.adjust(ctx, tx, dto.PaymentMethod, newEffect.Sub(oldEffect), false)
			if err != nil {
				return err
			}
			changes = append(changes, change)
		}

		next = *old
		next.TimestampMs = timestamp
		next.PaymentMethod = dto.PaymentMethod
		next.CategoryID = newCat.ID
		next.CategoryName = newCat.Name
		next.Amount = dto.Amount
		next.Reason = normalizeReason(dto.Reason)
		if err := tx.Update(ctx, &next); err != nil {
			return ledgerWriteFailed(err)
		}
		return nil
	})
	if err != nil {
		err = s.fail(ctx, opUpdate, err, start, "transaction_id", id, "category_id", dto.CategoryID)
		return nil, err
	}

	s.committed(opUpdate, changes, start)
	s.publish(ctx, events.NewTransactionUpdatedEvent(snapshot(previous), snapshot(&next)))
	log.Info("transaction updated",
		"transaction_id", id,
		"payment_method", next.PaymentMethod,
		"category_id", next.CategoryID,
		"amount", next.Amount.String())
	return FromDataModel(&next), nil
}

// Delete removes an entry and reverts its effect.
func (s *Service) Delete(ctx context.Context, id string) error {
	start := time.Now()
	log := logger.FromOr(ctx, s.logger)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		removed *transactionDatamodel.Transaction
		changes []balanceChange
	)
	err := s.repo.Atomic(ctx, func(tx TxRepository) error {
		old, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return ledgerWriteFailed(err)
		}
		if old == nil {
			return appErrors.ErrTransactionNotFound
		}
		removed = old

		change, err := s.adjust(ctx, tx, old.PaymentMethod, category.Effect(old.CategoryName, old.Amount).Neg(), false)
		if err != nil {
			return err
		}
		changes = append(changes, change)

		if err := tx.Delete(ctx, id); err != nil {
			return ledgerWriteFailed(err)
		}
		return nil
	})
	if err != nil {
		return s.fail(ctx, opDelete, err, start, "transaction_id", id)
	}

	s.committed(opDelete, changes, start)
	s.publish(ctx, events.NewTransactionDeletedEvent(snapshot(removed)))
	log.Info("transaction deleted",
		"transaction_id", id,
		"payment_method", removed.PaymentMethod,
		"amount", removed.Amount.String())
	return nil
}

// Reset removes every entry and zeroes every balance in one atomic unit. No
// per-entry events are published.
func (s *Service) Reset(ctx context.Context) (int64, error) {
	start := time.Now()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var (
		removed int64
		changes []balanceChange
	)
	err := s.repo.Atomic(ctx, func(tx TxRepository) error {
		n, err := tx.DeleteAll(ctx)
		if err != nil {
			return ledgerWriteFailed(err)
		}
		removed = n

		for _, m := range balance.Methods {
			if err := tx.SetBalance(ctx, m.String(), decimal.Zero); err != nil {
				return appErrors.NewTransactionFailedError("failed to write balance", appErrors.ErrCodeBalanceWriteFailed, err)
			}
			changes = append(changes, balanceChange{method: m.String(), after: decimal.Zero})
		}
		return nil
	})
	if err != nil {
		return 0, s.fail(ctx, opReset, err, start)
	}

	s.committed(opReset, changes, start)
	logger.FromOr(ctx, s.logger).Info("ledger reset", "removed", removed)
	return removed, nil
}

// Get returns one entry with its category name.
func (s *Service) Get(ctx context.Context, id string) (*Transaction, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		logger.FromOr(ctx, s.logger).Error("failed to get transaction", "error", err, "transaction_id", id)
		return nil, appErrors.NewInternalError("failed to get transaction", err)
	}
	if row == nil {
		return nil, appErrors.ErrTransactionNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) resolveCategory(ctx context.Context, tx TxRepository, id int64) (*categoryDatamodel.Category, error) {
	cat, err := tx.GetCategory(ctx, id)
	if err != nil {
		return nil, ledgerWriteFailed(err)
	}
	if cat == nil {
		return nil, appErrors.ErrCategoryNotFound
	}
	return cat, nil
}

// adjust applies delta to one balance and enforces the overdraft policy. A
// write is refused only when it leaves the balance negative and lower than
// it was, so corrections that move a negative balance up always pass.
func (s *Service) adjust(ctx context.Context, tx TxRepository, method string, delta decimal.Decimal, requireFunds bool) (balanceChange, error) {
	before, after, err := tx.AdjustBalance(ctx, method, delta)
	if err != nil {
		return balanceChange{}, appErrors.NewTransactionFailedError("failed to write balance", appErrors.ErrCodeBalanceWriteFailed, err)
	}
	if !validation.MoneyFits(after) {
		return balanceChange{}, appErrors.NewValidationFieldError("amount", "resulting balance is outside the storable money range", appErrors.ErrCodeInvalidAmount)
	}

	if after.IsNegative() && after.LessThan(before) {
		if s.strict || requireFunds {
			return balanceChange{}, appErrors.ErrInsufficientBalance.WithDetails(map[string]string{
				"payment_method": method,
				"balance":        before.String(),
				"required":       delta.Neg().String(),
			})
		}
		logger.FromOr(ctx, s.logger).Warn("balance overdrawn",
			"payment_method", method,
			"before", before.String(),
			"after", after.String())
	}
	return balanceChange{method: method, after: after}, nil
}

// fail normalizes an error from an atomic unit. Typed errors pass through;
// anything else (a failed commit) becomes a TransactionFailedError.
func (s *Service) fail(ctx context.Context, op string, err error, start time.Time, kv ...any) error {
	if _, ok := appErrors.IsAppError(err); !ok {
		err = appErrors.NewTransactionFailedError("ledger operation rolled back", appErrors.ErrCodeLedgerWriteFailed, err)
	}

	log := logger.FromOr(ctx, s.logger).With(kv...)
	if appErrors.IsType(err, appErrors.ErrorTypeTransactionFailed) {
		log.Error("ledger operation rolled back", "operation", op, "error", err)
	} else {
		log.Warn("ledger operation rejected", "operation", op, "error", err)
	}
	s.record(op, err, start)
	return err
}

func (s *Service) committed(op string, changes []balanceChange, start time.Time) {
	for _, c := range changes {
		s.metrics.SetBalance(c.method, c.after)
	}
	s.record(op, nil, start)
}

func (s *Service) record(op string, err error, start time.Time) {
	status := metrics.StatusSuccess
	switch {
	case err == nil:
	case appErrors.IsType(err, appErrors.ErrorTypeTransactionFailed), appErrors.IsType(err, appErrors.ErrorTypeInternal):
		status = metrics.StatusFailed
	default:
		status = metrics.StatusRejected
	}
	s.metrics.RecordOperation(op, status, time.Since(start))
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, event)
}

func ledgerWriteFailed(err error) error {
	return appErrors.NewTransactionFailedError("failed to write ledger", appErrors.ErrCodeLedgerWriteFailed, err)
}

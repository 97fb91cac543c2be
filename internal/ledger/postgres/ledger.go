package postgres

import (
	"context"
	"errors"
	"time"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	balancePostgres "github.com/frahmantamala/pocket-ledger/internal/balance/postgres"
	categoryDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/category"
	transactionDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/transaction"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledger.RepositoryAPI {
	return &LedgerRepository{db: db}
}

// Atomic hands fn a repository bound to a single gorm transaction. Every
// query inside fn must go through it: an in-memory database has one
// connection, and a query outside the transaction would wait forever.
func (r *LedgerRepository) Atomic(ctx context.Context, fn func(tx ledger.TxRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepository{
			db:       tx,
			balances: balancePostgres.NewBalanceRepository(tx),
		})
	})
}

func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*transactionDatamodel.Transaction, error) {
	return findJoined(r.db.WithContext(ctx), id)
}

type txRepository struct {
	db       *gorm.DB
	balances balance.RepositoryAPI
}

func (r *txRepository) GetCategory(ctx context.Context, id int64) (*categoryDatamodel.Category, error) {
	var cat categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *txRepository) GetTransaction(ctx context.Context, id string) (*transactionDatamodel.Transaction, error) {
	return findJoined(r.db.WithContext(ctx), id)
}

func (r *txRepository) AdjustBalance(ctx context.Context, method string, delta decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	return r.balances.Adjust(ctx, method, delta)
}

func (r *txRepository) Insert(ctx context.Context, t *transactionDatamodel.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *txRepository) Update(ctx context.Context, t *transactionDatamodel.Transaction) error {
	result := r.db.WithContext(ctx).
		Model(&transactionDatamodel.Transaction{}).
		Where("id = ?", t.ID).
		Updates(map[string]interface{}{
			"timestamp_ms":   t.TimestampMs,
			"payment_method": t.PaymentMethod,
			"category_id":    t.CategoryID,
			"amount":         t.Amount,
			"reason":         t.Reason,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrTransactionNotFound
	}
	return nil
}

func (r *txRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&transactionDatamodel.Transaction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return appErrors.ErrTransactionNotFound
	}
	return nil
}

func (r *txRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Where("1 = 1").Delete(&transactionDatamodel.Transaction{})
	return result.RowsAffected, result.Error
}

func (r *txRepository) SetBalance(ctx context.Context, method string, amount decimal.Decimal) error {
	return r.balances.Set(ctx, method, amount)
}

func findJoined(db *gorm.DB, id string) (*transactionDatamodel.Transaction, error) {
	var row transactionDatamodel.Transaction
	err := db.Table("transactions AS t").
		Select("t.*, c.name AS category_name").
		Joins("JOIN categories c ON c.id = t.category_id").
		Where("t.id = ?", id).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

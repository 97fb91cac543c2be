package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/balance"
	balanceDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/balance"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BalanceRepository struct {
	db *gorm.DB
}

// NewBalanceRepository binds the repository to db, which may be a
// transaction handle.
func NewBalanceRepository(db *gorm.DB) balance.RepositoryAPI {
	return &BalanceRepository{db: db}
}

func (r *BalanceRepository) Get(ctx context.Context, method string) (*balanceDatamodel.Balance, error) {
	var row balanceDatamodel.Balance
	err := r.db.WithContext(ctx).Where("type = ?", method).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *BalanceRepository) GetAll(ctx context.Context) ([]*balanceDatamodel.Balance, error) {
	var rows []*balanceDatamodel.Balance
	err := r.db.WithContext(ctx).Order("type ASC").Find(&rows).Error
	return rows, err
}

func (r *BalanceRepository) Set(ctx context.Context, method string, amount decimal.Decimal) error {
	row := balanceDatamodel.Balance{Type: method, Amount: amount, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "updated_at"}),
	}).Create(&row).Error
}

// Adjust locks the row (postgres only; the sqlite dialect drops FOR UPDATE)
// and writes back the decimal sum. A missing row counts as zero.
func (r *BalanceRepository) Adjust(ctx context.Context, method string, delta decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	var row balanceDatamodel.Balance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("type = ?", method).
		First(&row).Error

	before := decimal.Zero
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return decimal.Zero, decimal.Zero, err
	default:
		before = row.Amount
	}

	after := before.Add(delta)
	if err := r.Set(ctx, method, after); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return before, after, nil
}

func (r *BalanceRepository) EnsureRow(ctx context.Context, method string) error {
	row := balanceDatamodel.Balance{Type: method, Amount: decimal.Zero, UpdatedAt: time.Now()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

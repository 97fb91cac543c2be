package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger row. Amount is always positive; the sign of its
// effect comes from the category. The db tags serve the sqlx read side.
type Transaction struct {
	ID            string          `gorm:"primaryKey;column:id;size:36" db:"id"`
	TimestampMs   int64           `gorm:"column:timestamp_ms;not null;index" db:"timestamp_ms"`
	PaymentMethod string          `gorm:"column:payment_method;size:16;not null;index" db:"payment_method"`
	CategoryID    int64           `gorm:"column:category_id;not null;index" db:"category_id"`
	Amount        decimal.Decimal `gorm:"column:amount;not null" db:"amount"`
	Reason        *string         `gorm:"column:reason" db:"reason"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`

	// populated by joins only
	CategoryName string `gorm:"->;-:migration;column:category_name" db:"category_name"`
}

func (Transaction) TableName() string {
	return "transactions"
}

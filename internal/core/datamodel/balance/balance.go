package balance

import (
	"time"

	"github.com/shopspring/decimal"
)

type Balance struct {
	Type      string          `gorm:"primaryKey;column:type;size:16"`
	Amount    decimal.Decimal `gorm:"column:amount;not null"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Balance) TableName() string {
	return "balances"
}

package category

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID           int64               `gorm:"primaryKey"`
	Name         string              `gorm:"column:name;uniqueIndex;not null"`
	MonthlyLimit decimal.NullDecimal `gorm:"column:monthly_limit"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Category) TableName() string {
	return "categories"
}

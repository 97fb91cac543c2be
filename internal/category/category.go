package category

import (
	"strings"

	categoryDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/category"
	"github.com/shopspring/decimal"
)

const (
	UncategorizedName = "Uncategorized"
	GainName          = "Gain"

	// AllFilter is the list-filter keyword for "every category"; it can never
	// be a category name.
	AllFilter = "all"
)

// ReservedNames are created at bootstrap and can be neither renamed nor deleted.
var ReservedNames = []string{UncategorizedName, GainName}

type Category struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit"`
}

func (c *Category) IsReserved() bool {
	return IsReservedName(c.Name)
}

func (c *Category) IsGain() bool {
	return IsGainName(c.Name)
}

func (c *Category) HasLimit() bool {
	return c.MonthlyLimit != nil
}

func IsReservedName(name string) bool {
	name = strings.TrimSpace(name)
	for _, r := range ReservedNames {
		if strings.EqualFold(name, r) {
			return true
		}
	}
	return false
}

// IsGainName is the one place that decides whether a category credits the
// balance. Every other category debits it.
func IsGainName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(name), GainName)
}

// Effect returns the signed contribution of amount to a balance when booked
// against a category called categoryName.
func Effect(categoryName string, amount decimal.Decimal) decimal.Decimal {
	if IsGainName(categoryName) {
		return amount
	}
	return amount.Neg()
}

func NewCategory(name string, limit *decimal.Decimal) *Category {
	return &Category{
		Name:         strings.TrimSpace(name),
		MonthlyLimit: limit,
	}
}

func ToDataModel(c *Category) *categoryDatamodel.Category {
	dm := &categoryDatamodel.Category{
		ID:   c.ID,
		Name: c.Name,
	}
	if c.MonthlyLimit != nil {
		dm.MonthlyLimit = decimal.NewNullDecimal(*c.MonthlyLimit)
	}
	return dm
}

func FromDataModel(c *categoryDatamodel.Category) *Category {
	out := &Category{
		ID:   c.ID,
		Name: c.Name,
	}
	if c.MonthlyLimit.Valid {
		limit := c.MonthlyLimit.Decimal
		out.MonthlyLimit = &limit
	}
	return out
}

func FromDataModelSlice(categories []*categoryDatamodel.Category) []*Category {
	result := make([]*Category, len(categories))
	for i, c := range categories {
		result[i] = FromDataModel(c)
	}
	return result
}

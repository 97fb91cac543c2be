package category

import (
	errors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const maxNameLength = 64

type CreateCategoryDTO struct {
	Name         string           `json:"name"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit,omitempty"`
}

func (dto CreateCategoryDTO) Validate() error {
	return validateNameAndLimit(dto.Name, dto.MonthlyLimit)
}

type UpdateCategoryDTO struct {
	Name         string           `json:"name"`
	MonthlyLimit *decimal.Decimal `json:"monthly_limit,omitempty"`
}

func (dto UpdateCategoryDTO) Validate() error {
	return validateNameAndLimit(dto.Name, dto.MonthlyLimit)
}

func validateNameAndLimit(name string, limit *decimal.Decimal) error {
	v := validation.NewValidator()
	v.Field("name", name).
		Required().
		MaxLength(errors.ErrCodeInvalidName, maxNameLength).
		NotEqualFold(errors.ErrCodeInvalidName, AllFilter)
	v.Field("monthly_limit", limit).
		NonNegativeDecimal(errors.ErrCodeInvalidLimit).
		Money(errors.ErrCodeInvalidLimit)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}

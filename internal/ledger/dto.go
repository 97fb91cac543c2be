package ledger

import (
	"strings"

	errors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	"github.com/frahmantamala/pocket-ledger/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

const maxReasonLength = 500

type CreateTransactionDTO struct {
	PaymentMethod string          `json:"payment_method"`
	CategoryID    int64           `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        *string         `json:"reason,omitempty"`
	// Timestamp backdates the entry (ms since epoch); zero means now.
	Timestamp *int64 `json:"timestamp,omitempty"`
	// RequireFunds rejects the entry if it would overdraw the balance, even
	// when the ledger runs in lenient mode.
	RequireFunds bool `json:"require_funds,omitempty"`
}

func (dto CreateTransactionDTO) Validate() error {
	return validateEntry(dto.PaymentMethod, dto.CategoryID, dto.Amount, dto.Reason, dto.Timestamp)
}

type UpdateTransactionDTO struct {
	PaymentMethod string          `json:"payment_method"`
	CategoryID    int64           `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        *string         `json:"reason,omitempty"`
	// Timestamp replaces the stored one; when nil the entry is stamped now.
	Timestamp *int64 `json:"timestamp,omitempty"`
}

func (dto UpdateTransactionDTO) Validate() error {
	return validateEntry(dto.PaymentMethod, dto.CategoryID, dto.Amount, dto.Reason, dto.Timestamp)
}

func validateEntry(method string, categoryID int64, amount decimal.Decimal, reason *string, timestamp *int64) error {
	v := validation.NewValidator()
	v.Field("payment_method", method).
		OneOf(errors.ErrCodeInvalidPaymentMethod, balance.MethodNames()...)
	v.Field("category_id", categoryID).
		Required()
	v.Field("amount", amount).
		PositiveDecimal(errors.ErrCodeInvalidAmount).
		Money(errors.ErrCodeInvalidAmount)
	v.Field("reason", reason).
		MaxLength(errors.ErrCodeReasonTooLong, maxReasonLength)
	v.Field("timestamp", timestamp).
		Custom(func(value interface{}) *errors.AppError {
			if ts, ok := value.(*int64); ok && ts != nil && *ts <= 0 {
				return errors.NewValidationFieldError("timestamp", "timestamp must be a positive epoch in milliseconds", errors.ErrCodeInvalidDate)
			}
			return nil
		})
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// normalizeReason stores blank reasons as NULL.
func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

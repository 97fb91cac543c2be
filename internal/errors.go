package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation           ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound             ErrorType = "NOT_FOUND"
	ErrorTypeDuplicate            ErrorType = "DUPLICATE"
	ErrorTypeReferentialIntegrity ErrorType = "REFERENTIAL_INTEGRITY"
	ErrorTypeTransactionFailed    ErrorType = "TRANSACTION_FAILED"
	ErrorTypeInternal             ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount        ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidName          ErrorCode = "INVALID_NAME"
	ErrCodeInvalidLimit         ErrorCode = "INVALID_LIMIT"
	ErrCodeInvalidDate          ErrorCode = "INVALID_DATE"
	ErrCodeInvalidFilter        ErrorCode = "INVALID_FILTER"
	ErrCodeInvalidPaymentMethod ErrorCode = "INVALID_PAYMENT_METHOD"
	ErrCodeReasonTooLong        ErrorCode = "REASON_TOO_LONG"
	ErrCodeInsufficientBalance  ErrorCode = "INSUFFICIENT_BALANCE"

	ErrCodeCategoryNotFound    ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeCategoryExists      ErrorCode = "CATEGORY_EXISTS"
	ErrCodeReservedCategory    ErrorCode = "RESERVED_CATEGORY"
	ErrCodeCategoryInUse       ErrorCode = "CATEGORY_IN_USE"
	ErrCodeTransactionNotFound ErrorCode = "TRANSACTION_NOT_FOUND"

	ErrCodeLedgerWriteFailed  ErrorCode = "LEDGER_WRITE_FAILED"
	ErrCodeBalanceWriteFailed ErrorCode = "BALANCE_WRITE_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on type and code, so a sentinel still matches after WithCause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithCause returns a copy of e carrying cause. Sentinels are never mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

// WithDetails returns a copy of e carrying details.
func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewDuplicateError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeDuplicate,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewReferentialIntegrityError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeReferentialIntegrity,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewTransactionFailedError reports an atomic operation that was rolled back.
func NewTransactionFailedError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeTransactionFailed,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrCategoryNotFound    = NewNotFoundError("category not found", ErrCodeCategoryNotFound)
	ErrCategoryExists      = NewDuplicateError("category already exists", ErrCodeCategoryExists)
	ErrReservedCategory    = NewValidationError("reserved categories cannot be modified", ErrCodeReservedCategory)
	ErrReservedUndeletable = NewReferentialIntegrityError("reserved categories cannot be deleted", ErrCodeReservedCategory)
	ErrCategoryInUse       = NewReferentialIntegrityError("category is referenced by transactions", ErrCodeCategoryInUse)

	ErrTransactionNotFound  = NewNotFoundError("transaction not found", ErrCodeTransactionNotFound)
	ErrInvalidPaymentMethod = NewValidationError("payment method must be one of gpay, cash", ErrCodeInvalidPaymentMethod)
	ErrInsufficientBalance  = NewValidationError("insufficient balance for this transaction", ErrCodeInsufficientBalance)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Type == t
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.GetDetailedMessage(),
		Details: e.Details,
	})
}

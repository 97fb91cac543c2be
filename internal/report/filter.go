package report

import (
	"strings"
	"time"

	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/frahmantamala/pocket-ledger/internal/balance"
	"github.com/frahmantamala/pocket-ledger/internal/category"
)

// DateLayout is the wire format of day filters.
const DateLayout = "2006-01-02"

// Filter selects ledger entries. Every field is optional; an empty string or
// "all" means no restriction on that dimension. Conditions are ANDed.
type Filter struct {
	// StartDate and EndDate are inclusive whole days in their own location.
	StartDate *time.Time
	EndDate   *time.Time
	// PaymentMethod matches exactly.
	PaymentMethod string
	// Category matches the category name exactly.
	Category string
	// SearchText is a case-insensitive substring of the reason.
	SearchText string
	// Limit caps the result; zero or less means no cap.
	Limit int
}

// Query is a Filter resolved into storage terms.
type Query struct {
	FromMs        *int64
	ToMs          *int64
	PaymentMethod string
	Category      string
	Search        string
	Limit         int
}

func isAll(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, category.AllFilter)
}

func (f Filter) Validate() error {
	if !isAll(f.PaymentMethod) {
		if _, err := balance.ParseMethod(strings.TrimSpace(f.PaymentMethod)); err != nil {
			return err
		}
	}
	if f.StartDate != nil && f.EndDate != nil && startOfDay(*f.EndDate).Before(startOfDay(*f.StartDate)) {
		return appErrors.NewValidationFieldError("end_date", "end_date must not be before start_date", appErrors.ErrCodeInvalidDate)
	}
	return nil
}

// Query resolves day bounds to [D 00:00:00.000, D 23:59:59.999] in
// milliseconds and drops "all" values.
func (f Filter) Query() Query {
	q := Query{Limit: f.Limit}
	if f.StartDate != nil {
		from := startOfDay(*f.StartDate).UnixMilli()
		q.FromMs = &from
	}
	if f.EndDate != nil {
		to := startOfDay(*f.EndDate).AddDate(0, 0, 1).UnixMilli() - 1
		q.ToMs = &to
	}
	if !isAll(f.PaymentMethod) {
		q.PaymentMethod = strings.TrimSpace(f.PaymentMethod)
	}
	if !isAll(f.Category) {
		q.Category = strings.TrimSpace(f.Category)
	}
	q.Search = strings.TrimSpace(f.SearchText)
	if q.Limit < 0 {
		q.Limit = 0
	}
	return q
}

// MonthRange returns the first and last day of a month in loc.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)
	return first, last
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate reads a YYYY-MM-DD day in loc. Empty input yields nil.
func ParseDate(field, raw string, loc *time.Location) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return nil, appErrors.NewValidationFieldError(field, field+" must be formatted as YYYY-MM-DD", appErrors.ErrCodeInvalidDate)
	}
	return &t, nil
}

package report

import (
	"sort"
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// Classifier decides which entries are gains. With a Gain category present it
// uses the category; without one it runs in degraded mode and reads the sign
// of the stored amount instead (negative means gain).
type Classifier struct {
	degraded bool
}

func NewClassifier(categories []*category.Category) Classifier {
	for _, c := range categories {
		if c != nil && c.IsGain() {
			return Classifier{}
		}
	}
	return Classifier{degraded: true}
}

func (c Classifier) Degraded() bool {
	return c.degraded
}

func (c Classifier) IsGain(t *ledger.Transaction) bool {
	if c.degraded {
		return t.Amount.IsNegative()
	}
	return t.IsGain()
}

// Valid reports whether t can be aggregated at all.
func (c Classifier) Valid(t *ledger.Transaction) bool {
	if t == nil {
		return false
	}
	if c.degraded {
		return !t.Amount.IsZero()
	}
	return t.Amount.IsPositive() && t.CategoryName != ""
}

// Sanitize drops rows that cannot be aggregated and reports how many.
func (c Classifier) Sanitize(txns []*ledger.Transaction) ([]*ledger.Transaction, int) {
	valid := make([]*ledger.Transaction, 0, len(txns))
	for _, t := range txns {
		if c.Valid(t) {
			valid = append(valid, t)
		}
	}
	return valid, len(txns) - len(valid)
}

type DayTotal struct {
	Date     string          `json:"date"`
	Gains    decimal.Decimal `json:"gains"`
	Expenses decimal.Decimal `json:"expenses"`
	Count    int             `json:"count"`
}

type CategoryTotal struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Gain         bool            `json:"gain"`
	Total        decimal.Decimal `json:"total"`
	Count        int             `json:"count"`
}

type Partition struct {
	Gains        []*ledger.Transaction `json:"-"`
	Expenses     []*ledger.Transaction `json:"-"`
	GainTotal    decimal.Decimal       `json:"gain_total"`
	ExpenseTotal decimal.Decimal       `json:"expense_total"`
	// Degraded is set when no Gain category exists and entries were split by
	// amount sign.
	Degraded bool `json:"degraded"`
}

// GroupByDay totals gains and expenses per calendar day in loc, oldest first.
func GroupByDay(txns []*ledger.Transaction, c Classifier, loc *time.Location) []DayTotal {
	byDate := map[string]*DayTotal{}
	for _, t := range txns {
		if !c.Valid(t) {
			continue
		}
		date := t.Time().In(loc).Format(DateLayout)
		day, ok := byDate[date]
		if !ok {
			day = &DayTotal{Date: date, Gains: decimal.Zero, Expenses: decimal.Zero}
			byDate[date] = day
		}
		if c.IsGain(t) {
			day.Gains = day.Gains.Add(t.Amount.Abs())
		} else {
			day.Expenses = day.Expenses.Add(t.Amount.Abs())
		}
		day.Count++
	}

	out := make([]DayTotal, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// FillMonth returns one entry per day of the month, keeping the totals from
// days and zero elsewhere.
func FillMonth(days []DayTotal, year int, month time.Month, loc *time.Location) []DayTotal {
	known := make(map[string]DayTotal, len(days))
	for _, d := range days {
		known[d.Date] = d
	}

	first, last := MonthRange(year, month, loc)
	out := make([]DayTotal, 0, last.Day())
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		if total, ok := known[date]; ok {
			out = append(out, total)
			continue
		}
		out = append(out, DayTotal{Date: date, Gains: decimal.Zero, Expenses: decimal.Zero})
	}
	return out
}

// GroupByCategory totals entries per category, largest total first.
func GroupByCategory(txns []*ledger.Transaction, c Classifier) []CategoryTotal {
	byID := map[int64]*CategoryTotal{}
	for _, t := range txns {
		if !c.Valid(t) {
			continue
		}
		total, ok := byID[t.CategoryID]
		if !ok {
			total = &CategoryTotal{
				CategoryID:   t.CategoryID,
				CategoryName: t.CategoryName,
				Gain:         c.IsGain(t),
				Total:        decimal.Zero,
			}
			byID[t.CategoryID] = total
		}
		total.Total = total.Total.Add(t.Amount.Abs())
		total.Count++
	}

	out := make([]CategoryTotal, 0, len(byID))
	for _, t := range byID {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Total.Cmp(out[j].Total); cmp != 0 {
			return cmp > 0
		}
		return out[i].CategoryName < out[j].CategoryName
	})
	return out
}

// PartitionByKind splits entries into gains and expenses.
func PartitionByKind(txns []*ledger.Transaction, c Classifier) Partition {
	p := Partition{
		GainTotal:    decimal.Zero,
		ExpenseTotal: decimal.Zero,
		Degraded:     c.Degraded(),
	}
	for _, t := range txns {
		if !c.Valid(t) {
			continue
		}
		if c.IsGain(t) {
			p.Gains = append(p.Gains, t)
			p.GainTotal = p.GainTotal.Add(t.Amount.Abs())
		} else {
			p.Expenses = append(p.Expenses, t)
			p.ExpenseTotal = p.ExpenseTotal.Add(t.Amount.Abs())
		}
	}
	return p
}

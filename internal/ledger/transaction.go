package ledger

import (
	"time"

	"github.com/frahmantamala/pocket-ledger/internal/category"
	"github.com/frahmantamala/pocket-ledger/internal/core/events"
	transactionDatamodel "github.com/frahmantamala/pocket-ledger/internal/core/datamodel/transaction"
	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry. Amount is always positive; its effect on
// the balance follows from the category.
type Transaction struct {
	ID            string          `json:"id"`
	Timestamp     int64           `json:"timestamp"`
	PaymentMethod string          `json:"payment_method"`
	CategoryID    int64           `json:"category_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        *string         `json:"reason"`
	CategoryName  string          `json:"category_name"`
}

func (t *Transaction) Time() time.Time {
	return time.UnixMilli(t.Timestamp)
}

// Effect is the signed contribution of t to its payment method's balance.
func (t *Transaction) Effect() decimal.Decimal {
	return category.Effect(t.CategoryName, t.Amount)
}

func (t *Transaction) IsGain() bool {
	return category.IsGainName(t.CategoryName)
}

func FromDataModel(t *transactionDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:            t.ID,
		Timestamp:     t.TimestampMs,
		PaymentMethod: t.PaymentMethod,
		CategoryID:    t.CategoryID,
		Amount:        t.Amount,
		Reason:        t.Reason,
		CategoryName:  t.CategoryName,
	}
}

func FromDataModelSlice(rows []*transactionDatamodel.Transaction) []*Transaction {
	result := make([]*Transaction, len(rows))
	for i, row := range rows {
		result[i] = FromDataModel(row)
	}
	return result
}

func snapshot(t *transactionDatamodel.Transaction) events.TransactionSnapshot {
	return events.TransactionSnapshot{
		ID:            t.ID,
		TimestampMs:   t.TimestampMs,
		PaymentMethod: t.PaymentMethod,
		CategoryID:    t.CategoryID,
		CategoryName:  t.CategoryName,
		Amount:        t.Amount,
		Effect:        category.Effect(t.CategoryName, t.Amount),
	}
}

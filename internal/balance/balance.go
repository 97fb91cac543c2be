package balance

import (
	appErrors "github.com/frahmantamala/pocket-ledger/internal"
	"github.com/shopspring/decimal"
)

// Method is a payment method; each one owns exactly one balance.
type Method string

const (
	MethodGPay Method = "gpay"
	MethodCash Method = "cash"
)

// Methods lists every payment method in display order.
var Methods = []Method{MethodGPay, MethodCash}

func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

func (m Method) String() string {
	return string(m)
}

func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if !m.Valid() {
		return "", appErrors.ErrInvalidPaymentMethod
	}
	return m, nil
}

// MethodNames returns Methods as plain strings, for validators and queries.
func MethodNames() []string {
	names := make([]string, len(Methods))
	for i, m := range Methods {
		names[i] = string(m)
	}
	return names
}

type Balances struct {
	GPay decimal.Decimal `json:"gpay"`
	Cash decimal.Decimal `json:"cash"`
}

func (b Balances) Of(m Method) decimal.Decimal {
	switch m {
	case MethodGPay:
		return b.GPay
	case MethodCash:
		return b.Cash
	}
	return decimal.Zero
}

func (b *Balances) set(m Method, amount decimal.Decimal) {
	switch m {
	case MethodGPay:
		b.GPay = amount
	case MethodCash:
		b.Cash = amount
	}
}

func (b Balances) Total() decimal.Decimal {
	return b.GPay.Add(b.Cash)
}

type SetBalanceDTO struct {
	Amount decimal.Decimal `json:"amount"`
}

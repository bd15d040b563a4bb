package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money 带币种的金额
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// NewMoney 创建金额，币种代码统一为大写
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: normalizeCode(currency)}
}

// Zero 指定币种的零金额
func Zero(currency string) Money {
	return NewMoney(decimal.Zero, currency)
}

// Add 同币种相加
func (m Money) Add(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(o.Amount), Currency: m.Currency}, nil
}

// Sub 同币种相减
func (m Money) Sub(o Money) (Money, error) {
	if m.Currency != o.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Sub(o.Amount), Currency: m.Currency}, nil
}

// Round 按小数位四舍五入
func (m Money) Round(places int32) Money {
	return Money{Amount: m.Amount.Round(places), Currency: m.Currency}
}

// IsZero 金额是否为零
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func minDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

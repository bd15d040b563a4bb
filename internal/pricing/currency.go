package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDecimalPlaces 未配置币种时使用的小数位
const DefaultDecimalPlaces int32 = 2

// Currency 币种展示规则
type Currency struct {
	Code          string
	Symbol        string
	DecimalPlaces int32
	SymbolBefore  bool
}

// Format 按币种小数位与符号位置格式化金额，如 $1,234.50 或 1,234.50 MK
func (c Currency) Format(amount decimal.Decimal) string {
	fixed := amount.Round(c.DecimalPlaces).StringFixed(c.DecimalPlaces)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i:]
	}
	body := groupThousands(intPart) + fracPart

	symbol := c.Symbol
	if symbol == "" {
		symbol = c.Code
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	if c.SymbolBefore {
		b.WriteString(symbol)
		b.WriteString(body)
	} else {
		b.WriteString(body)
		b.WriteByte(' ')
		b.WriteString(symbol)
	}
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

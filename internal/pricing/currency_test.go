package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrency_Format(t *testing.T) {
	usd := Currency{Code: "USD", Symbol: "$", DecimalPlaces: 2, SymbolBefore: true}
	mwk := Currency{Code: "MWK", Symbol: "MK", DecimalPlaces: 2}
	jpy := Currency{Code: "JPY", Symbol: "¥", DecimalPlaces: 0, SymbolBefore: true}

	tests := []struct {
		name     string
		currency Currency
		amount   string
		want     string
	}{
		{"符号在前", usd, "1234.5", "$1,234.50"},
		{"符号在后", mwk, "1234.5", "1,234.50 MK"},
		{"小于千位", usd, "999.999", "$1,000.00"},
		{"百万", mwk, "17000000", "17,000,000.00 MK"},
		{"零小数位", jpy, "1234.5", "¥1,235"},
		{"零", usd, "0", "$0.00"},
		{"负数", usd, "-1234.5", "-$1,234.50"},
		{"无符号时使用代码", Currency{Code: "XYZ", DecimalPlaces: 2}, "5", "5.00 XYZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.currency.Format(dec(tt.amount)))
		})
	}
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "1", groupThousands("1"))
	assert.Equal(t, "123", groupThousands("123"))
	assert.Equal(t, "1,234", groupThousands("1234"))
	assert.Equal(t, "123,456", groupThousands("123456"))
	assert.Equal(t, "1,234,567", groupThousands("1234567"))
}

package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func intPtr(i int) *int {
	return &i
}

func mustSchedule(t *testing.T, currency string, ranges ...MarkupRange) *MarkupSchedule {
	t.Helper()
	s, err := NewMarkupSchedule(currency, ranges)
	require.NoError(t, err)
	return s
}

func rng(min, max, markup string) MarkupRange {
	return MarkupRange{MinPrice: dec(min), MaxPrice: dec(max), MarkupAmount: dec(markup)}
}

func testCurrencies() []Currency {
	return []Currency{
		{Code: "USD", Symbol: "$", DecimalPlaces: 2, SymbolBefore: true},
		{Code: "ZAR", Symbol: "R", DecimalPlaces: 2, SymbolBefore: true},
		{Code: "MWK", Symbol: "MK", DecimalPlaces: 2, SymbolBefore: false},
		{Code: "JPY", Symbol: "¥", DecimalPlaces: 0, SymbolBefore: true},
	}
}

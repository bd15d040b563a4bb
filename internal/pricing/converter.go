package pricing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// RatePrecision 有效汇率在换算金额前保留的小数位
const RatePrecision int32 = 8

var hundred = decimal.NewFromInt(100)

// ExchangeRate 有向汇率 From -> To
type ExchangeRate struct {
	From             string
	To               string
	BaseRate         decimal.Decimal
	MarkupPercentage decimal.Decimal
	FetchedAt        time.Time
}

// EffectiveRate 含加价的有效汇率 base_rate * (1 + markup_percentage/100)
func (r ExchangeRate) EffectiveRate() decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(r.MarkupPercentage.Div(hundred))
	return r.BaseRate.Mul(factor).Round(RatePrecision)
}

// Validate 校验汇率
func (r ExchangeRate) Validate() error {
	if !r.BaseRate.IsPositive() || r.MarkupPercentage.IsNegative() {
		return ErrInvalidRate
	}
	if normalizeCode(r.From) == "" || normalizeCode(r.To) == "" {
		return ErrInvalidRate
	}
	return nil
}

type ratePair struct {
	from string
	to   string
}

// Converter 汇率换算器，构造后只读，可并发使用
type Converter struct {
	rates      map[ratePair]ExchangeRate
	currencies map[string]Currency
}

// NewConverter 创建换算器
func NewConverter(rates []ExchangeRate, currencies []Currency) (*Converter, error) {
	c := &Converter{
		rates:      make(map[ratePair]ExchangeRate, len(rates)),
		currencies: make(map[string]Currency, len(currencies)),
	}
	for _, r := range rates {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		r.From, r.To = normalizeCode(r.From), normalizeCode(r.To)
		c.rates[ratePair{r.From, r.To}] = r
	}
	for _, cur := range currencies {
		cur.Code = normalizeCode(cur.Code)
		if cur.DecimalPlaces < 0 {
			cur.DecimalPlaces = DefaultDecimalPlaces
		}
		c.currencies[cur.Code] = cur
	}
	return c, nil
}

// Currency 获取币种展示规则，未配置时按两位小数、代码作符号
func (c *Converter) Currency(code string) Currency {
	code = normalizeCode(code)
	if cur, ok := c.currencies[code]; ok {
		return cur
	}
	return Currency{Code: code, Symbol: code, DecimalPlaces: DefaultDecimalPlaces}
}

// Places 币种小数位
func (c *Converter) Places(code string) int32 {
	return c.Currency(code).DecimalPlaces
}

// Rate 获取有向汇率，不做反向推算
func (c *Converter) Rate(from, to string) (ExchangeRate, error) {
	from, to = normalizeCode(from), normalizeCode(to)
	r, ok := c.rates[ratePair{from, to}]
	if !ok {
		return ExchangeRate{}, &RateNotFoundError{From: from, To: to}
	}
	return r, nil
}

// Convert 将金额换算为目标币种，结果按目标币种小数位四舍五入
func (c *Converter) Convert(m Money, to string) (Money, error) {
	out, _, err := c.ConvertWithRate(m, to)
	return out, err
}

// ConvertWithRate 同 Convert，并返回实际使用的有效汇率；同币种时汇率为 1
func (c *Converter) ConvertWithRate(m Money, to string) (Money, decimal.Decimal, error) {
	to = normalizeCode(to)
	if normalizeCode(m.Currency) == to {
		return m, decimal.NewFromInt(1), nil
	}
	r, err := c.Rate(m.Currency, to)
	if err != nil {
		return Money{}, decimal.Zero, err
	}
	effective := r.EffectiveRate()
	amount := m.Amount.Mul(effective).Round(c.Places(to))
	return Money{Amount: amount, Currency: to}, effective, nil
}

// Format 格式化金额
func (c *Converter) Format(amount decimal.Decimal, code string) string {
	return c.Currency(code).Format(amount)
}

// StaleRates 返回抓取时间早于 now-maxAge 的汇率，按币种对排序
func (c *Converter) StaleRates(now time.Time, maxAge time.Duration) []ExchangeRate {
	var stale []ExchangeRate
	for _, r := range c.rates {
		if now.Sub(r.FetchedAt) > maxAge {
			stale = append(stale, r)
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].From != stale[j].From {
			return stale[i].From < stale[j].From
		}
		return stale[i].To < stale[j].To
	})
	return stale
}

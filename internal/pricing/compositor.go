package pricing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PriceResult 对外唯一可见的定价结果
type PriceResult struct {
	DisplayPrice decimal.Decimal
	Currency     string
	places       int32
}

// MarshalJSON 只输出 display_price 与 currency，金额按币种小数位定长
func (r PriceResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DisplayPrice string `json:"display_price"`
		Currency     string `json:"currency"`
	}{
		DisplayPrice: r.DisplayPrice.StringFixed(r.places),
		Currency:     r.Currency,
	})
}

// Breakdown 定价明细，包含底价与加价，只能用于内部核算
type Breakdown struct {
	BasePrice         Money
	Markup            MarkupResolution
	MarkedUp          Money
	ExchangeRate      decimal.Decimal
	Converted         Money
	Promotion         *Promotion
	PromotionDiscount decimal.Decimal
	CouponApplied     bool
	CouponDiscount    decimal.Decimal
	Final             Money
	SellerAmount      Money
	PlatformMarkup    Money
}

// MarshalJSON 始终失败，防止明细被编码进任何响应
func (Breakdown) MarshalJSON() ([]byte, error) {
	return nil, ErrBreakdownNotSerializable
}

// DiscountApplied 是否有促销或优惠券生效
func (b Breakdown) DiscountApplied() bool {
	return b.PromotionDiscount.IsPositive() || b.CouponApplied
}

// PriceRequest 单个商品的定价输入
type PriceRequest struct {
	Product         Product
	Seller          SellerMarkups
	DisplayCurrency string
	Promotions      []Promotion
	Coupon          *Coupon
	User            *CouponUser
}

// Engine 定价引擎，只持有不可变数据，可并发调用
type Engine struct {
	conv     *Converter
	tieBreak TieBreakPolicy
	now      func() time.Time
}

// Option 引擎选项
type Option func(*Engine)

// WithTieBreak 设置同优先级促销的取舍策略
func WithTieBreak(p TieBreakPolicy) Option {
	return func(e *Engine) { e.tieBreak = p }
}

// WithClock 设置时钟
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine 创建定价引擎
func NewEngine(conv *Converter, opts ...Option) *Engine {
	e := &Engine{conv: conv, tieBreak: TieBreakLargestDiscount, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Converter 引擎使用的换算器
func (e *Engine) Converter() *Converter {
	return e.conv
}

// Price 加价 -> 换算 -> 促销 -> 优惠券 -> 取零下限并舍入
func (e *Engine) Price(req PriceRequest) (PriceResult, Breakdown, error) {
	base := req.Product.BasePrice
	base.Currency = normalizeCode(base.Currency)
	sellerCurrency := normalizeCode(req.Seller.Currency)
	if sellerCurrency == "" {
		sellerCurrency = base.Currency
		req.Seller.Currency = base.Currency
	}
	if base.Currency != sellerCurrency {
		return PriceResult{}, Breakdown{}, ErrCurrencyMismatch
	}
	display := normalizeCode(req.DisplayCurrency)
	if display == "" {
		display = sellerCurrency
	}
	places := e.conv.Places(display)
	now := e.now()

	bd := Breakdown{
		BasePrice:         base,
		SellerAmount:      base,
		PromotionDiscount: decimal.Zero,
		CouponDiscount:    decimal.Zero,
		ExchangeRate:      decimal.NewFromInt(1),
	}

	bd.Markup = ResolveMarkup(req.Seller, base.Amount)
	bd.PlatformMarkup = Money{Amount: bd.Markup.Amount, Currency: sellerCurrency}
	bd.MarkedUp = bd.Markup.Apply(base)

	converted, rate, err := e.conv.ConvertWithRate(bd.MarkedUp, display)
	if err != nil {
		return PriceResult{}, Breakdown{}, err
	}
	bd.ExchangeRate = rate
	bd.Converted = converted

	promo, promoDiscount, err := e.bestPromotion(req.Promotions, req.Product, converted.Amount, display, places, now)
	if err != nil {
		return PriceResult{}, Breakdown{}, err
	}
	bd.Promotion = promo
	bd.PromotionDiscount = promoDiscount
	remaining := clampZero(converted.Amount.Sub(promoDiscount))

	if c := req.Coupon; e.couponUsable(c, req.User, now) && c.AppliesTo(req.Product) {
		local, err := c.inCurrency(e.conv, display)
		if err != nil {
			return PriceResult{}, Breakdown{}, err
		}
		bd.CouponDiscount = local.DiscountFor(remaining, places)
		bd.CouponApplied = bd.CouponDiscount.IsPositive()
	}

	final := clampZero(remaining.Sub(bd.CouponDiscount)).Round(places)
	bd.Final = Money{Amount: final, Currency: display}

	return PriceResult{DisplayPrice: final, Currency: display, places: places}, bd, nil
}

// couponUsable 券有效、用户可用且金额字段已声明币种
func (e *Engine) couponUsable(c *Coupon, u *CouponUser, now time.Time) bool {
	return c != nil && c.IsValid(now) && c.IsUsableBy(u) && c.CheckCurrency() == nil
}

func (e *Engine) bestPromotion(promos []Promotion, prod Product, price decimal.Decimal, display string, places int32, now time.Time) (*Promotion, decimal.Decimal, error) {
	applicable := ApplicablePromotions(promos, prod, now)
	if len(applicable) == 0 {
		return nil, decimal.Zero, nil
	}
	choices := make([]PromotionChoice, 0, len(applicable))
	for _, p := range applicable {
		if p.CheckCurrency() != nil {
			continue
		}
		local, err := p.fixedIn(e.conv, display)
		if err != nil {
			return nil, decimal.Zero, err
		}
		choices = append(choices, PromotionChoice{Promotion: p, Discount: local.DiscountFor(price, places)})
	}
	best, ok := BestPromotion(choices, e.tieBreak)
	if !ok {
		return nil, decimal.Zero, nil
	}
	p := best.Promotion
	return &p, best.Discount, nil
}

// CartLine 购物车单行定价结果
type CartLine struct {
	Result    PriceResult
	Breakdown Breakdown
}

// CartResult 购物车定价结果，仅供内部使用；对外只输出各行与合计的 PriceResult
type CartResult struct {
	Lines          []CartLine
	Total          PriceResult
	CouponApplied  bool
	CouponDiscount decimal.Decimal
}

// PriceCart 各行不带优惠券独立定价，再对适用行的促销后小计只应用一次优惠券，
// 优惠按行金额比例分摊，各行之和等于合计
func (e *Engine) PriceCart(reqs []PriceRequest, coupon *Coupon, user *CouponUser) (CartResult, error) {
	out := CartResult{Lines: make([]CartLine, 0, len(reqs)), CouponDiscount: decimal.Zero}
	for _, req := range reqs {
		req.Coupon, req.User = nil, nil
		res, bd, err := e.Price(req)
		if err != nil {
			return CartResult{}, err
		}
		out.Lines = append(out.Lines, CartLine{Result: res, Breakdown: bd})
	}
	if len(out.Lines) == 0 {
		out.Total = PriceResult{DisplayPrice: decimal.Zero}
		return out, nil
	}

	display, places := out.Lines[0].Result.Currency, out.Lines[0].Result.places
	for _, l := range out.Lines {
		if l.Result.Currency != display {
			return CartResult{}, ErrCurrencyMismatch
		}
	}

	if e.couponUsable(coupon, user, e.now()) {
		eligible := make([]int, 0, len(reqs))
		subtotal := decimal.Zero
		for i, req := range reqs {
			if coupon.AppliesTo(req.Product) {
				eligible = append(eligible, i)
				subtotal = subtotal.Add(out.Lines[i].Result.DisplayPrice)
			}
		}
		if len(eligible) > 0 {
			local, err := coupon.inCurrency(e.conv, display)
			if err != nil {
				return CartResult{}, err
			}
			if discount := local.DiscountFor(subtotal, places); discount.IsPositive() {
				amounts := make([]decimal.Decimal, len(eligible))
				for k, i := range eligible {
					amounts[k] = out.Lines[i].Result.DisplayPrice
				}
				for k, share := range allocate(discount, amounts, places) {
					line := &out.Lines[eligible[k]]
					final := clampZero(line.Result.DisplayPrice.Sub(share)).Round(places)
					line.Result.DisplayPrice = final
					line.Breakdown.CouponDiscount = share
					line.Breakdown.CouponApplied = share.IsPositive()
					line.Breakdown.Final = Money{Amount: final, Currency: display}
				}
				out.CouponApplied = true
				out.CouponDiscount = discount
			}
		}
	}

	results := make([]PriceResult, len(out.Lines))
	for i, l := range out.Lines {
		results[i] = l.Result
	}
	total, err := Sum(results)
	if err != nil {
		return CartResult{}, err
	}
	out.Total = total
	return out, nil
}

// allocate 按金额比例分摊 total，每份向下取到 places 位且不超过该行金额，尾差从最后一行往前补
func allocate(total decimal.Decimal, amounts []decimal.Decimal, places int32) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(amounts))
	sum := decimal.Zero
	for i, a := range amounts {
		shares[i] = decimal.Zero
		sum = sum.Add(a)
	}
	if !sum.IsPositive() || !total.IsPositive() {
		return shares
	}

	allocated := decimal.Zero
	for i, a := range amounts {
		shares[i] = clampZero(minDecimal(total.Mul(a).Div(sum).RoundDown(places), a))
		allocated = allocated.Add(shares[i])
	}
	rest := total.Sub(allocated)
	for i := len(amounts) - 1; i >= 0 && rest.IsPositive(); i-- {
		add := minDecimal(amounts[i].Sub(shares[i]), rest)
		if add.IsPositive() {
			shares[i] = shares[i].Add(add)
			rest = rest.Sub(add)
		}
	}
	return shares
}

// Sum 合计同币种的定价结果
func Sum(results []PriceResult) (PriceResult, error) {
	if len(results) == 0 {
		return PriceResult{DisplayPrice: decimal.Zero}, nil
	}
	total := PriceResult{DisplayPrice: decimal.Zero, Currency: results[0].Currency, places: results[0].places}
	for _, r := range results {
		if r.Currency != total.Currency {
			return PriceResult{}, ErrCurrencyMismatch
		}
		total.DisplayPrice = total.DisplayPrice.Add(r.DisplayPrice)
	}
	return total, nil
}

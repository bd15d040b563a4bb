package pricing

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType 折扣类型
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid 是否为已知折扣类型
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// ScopeType 适用范围类型
type ScopeType string

const (
	ScopeAll      ScopeType = "all"
	ScopeCategory ScopeType = "category"
	ScopeBrand    ScopeType = "brand"
	ScopeTag      ScopeType = "tag"
)

// Valid 是否为已知范围类型
func (t ScopeType) Valid() bool {
	switch t {
	case ScopeAll, ScopeCategory, ScopeBrand, ScopeTag:
		return true
	}
	return false
}

// PromotionType 促销类型
type PromotionType string

const (
	PromotionSystem PromotionType = "system"
	PromotionSeller PromotionType = "seller"
)

// Valid 是否为已知促销类型
func (t PromotionType) Valid() bool {
	return t == PromotionSystem || t == PromotionSeller
}

// Scope 适用范围，all 时 ID 为 0，其余类型 ID 必须大于 0
type Scope struct {
	Type ScopeType
	ID   int64
}

// NewScope 创建并校验适用范围
func NewScope(t ScopeType, id int64) (Scope, error) {
	s := Scope{Type: ScopeType(strings.ToLower(string(t))), ID: id}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// Validate 校验类型与ID组合
func (s Scope) Validate() error {
	switch s.Type {
	case ScopeAll:
		if s.ID != 0 {
			return ErrInvalidScope
		}
	case ScopeCategory, ScopeBrand, ScopeTag:
		if s.ID <= 0 {
			return ErrInvalidScope
		}
	default:
		return ErrInvalidScope
	}
	return nil
}

// Matches 商品是否在范围内；分类只做精确匹配，不含子分类
func (s Scope) Matches(p Product) bool {
	switch s.Type {
	case ScopeAll:
		return true
	case ScopeCategory:
		return s.ID > 0 && p.CategoryID == s.ID
	case ScopeBrand:
		return s.ID > 0 && p.BrandID == s.ID
	case ScopeTag:
		if s.ID <= 0 {
			return false
		}
		for _, id := range p.TagIDs {
			if id == s.ID {
				return true
			}
		}
	}
	return false
}

// Product 定价所需的商品信息，BasePrice 为卖家币种下的底价
type Product struct {
	ID         int64
	SellerID   int64
	CategoryID int64
	BrandID    int64
	TagIDs     []int64
	BasePrice  Money
}

// Coupon 优惠券
type Coupon struct {
	ID                int64
	Code              string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	Currency          string
	Scope             Scope
	MinOrderAmount    decimal.Decimal
	MaxDiscountAmount decimal.NullDecimal
	UsageLimit        *int
	UsageLimitPerUser int
	UsedCount         int
	RequiresAuth      bool
	StartDate         *time.Time
	EndDate           *time.Time
	IsActive          bool
}

// CouponUser 使用优惠券的用户及其历史使用次数
type CouponUser struct {
	UserID     int64
	UsageCount int
}

// IsValid 启用、在有效期内且总量未用完
func (c Coupon) IsValid(now time.Time) bool {
	if !c.IsActive || !c.DiscountType.Valid() {
		return false
	}
	if !withinWindow(now, c.StartDate, c.EndDate) {
		return false
	}
	return !c.exhausted()
}

// AppliesTo 商品是否在优惠券适用范围内
func (c Coupon) AppliesTo(p Product) bool {
	return c.Scope.Matches(p)
}

// IsUsableBy 用户是否可用：需登录的券要求有用户，且总量与个人次数均未超限
func (c Coupon) IsUsableBy(u *CouponUser) bool {
	if c.RequiresAuth && u == nil {
		return false
	}
	if c.exhausted() {
		return false
	}
	if u != nil && c.UsageLimitPerUser > 0 && u.UsageCount >= c.UsageLimitPerUser {
		return false
	}
	return true
}

// DiscountFor 计算对 amount 的优惠金额
func (c Coupon) DiscountFor(amount decimal.Decimal, places int32) decimal.Decimal {
	if !amount.IsPositive() || amount.LessThan(c.MinOrderAmount) {
		return decimal.Zero
	}
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = amount.Mul(c.DiscountValue).Div(hundred).Round(places)
		if c.MaxDiscountAmount.Valid && d.GreaterThan(c.MaxDiscountAmount.Decimal) {
			d = c.MaxDiscountAmount.Decimal
		}
	case DiscountFixed:
		d = c.DiscountValue
	default:
		return decimal.Zero
	}
	return clampZero(minDecimal(d, amount))
}

// CheckCurrency 含金额字段的券（固定金额、最低消费、封顶）必须声明币种
func (c Coupon) CheckCurrency() error {
	if normalizeCode(c.Currency) != "" {
		return nil
	}
	if c.DiscountType == DiscountFixed || c.MinOrderAmount.IsPositive() || c.MaxDiscountAmount.Valid {
		return ErrDiscountCurrencyRequired
	}
	return nil
}

func (c Coupon) exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// inCurrency 将券的金额字段换算为展示币种，百分比数值不换算
func (c Coupon) inCurrency(conv *Converter, display string) (Coupon, error) {
	if err := c.CheckCurrency(); err != nil {
		return Coupon{}, err
	}
	from := normalizeCode(c.Currency)
	if from == "" || from == display {
		return c, nil
	}
	convert := func(d decimal.Decimal) (decimal.Decimal, error) {
		m, err := conv.Convert(Money{Amount: d, Currency: from}, display)
		return m.Amount, err
	}
	var err error
	if c.DiscountType == DiscountFixed {
		if c.DiscountValue, err = convert(c.DiscountValue); err != nil {
			return Coupon{}, err
		}
	}
	if c.MinOrderAmount, err = convert(c.MinOrderAmount); err != nil {
		return Coupon{}, err
	}
	if c.MaxDiscountAmount.Valid {
		if c.MaxDiscountAmount.Decimal, err = convert(c.MaxDiscountAmount.Decimal); err != nil {
			return Coupon{}, err
		}
	}
	c.Currency = display
	return c, nil
}

// Promotion 促销活动
type Promotion struct {
	ID            int64
	Name          string
	Type          PromotionType
	SellerID      int64
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	Currency      string
	Scope         Scope
	Priority      int
	StartDate     *time.Time
	EndDate       *time.Time
	IsActive      bool
	CreatedAt     time.Time
}

// IsValid 启用且在有效期内
func (p Promotion) IsValid(now time.Time) bool {
	return p.IsActive && p.DiscountType.Valid() && p.Type.Valid() && withinWindow(now, p.StartDate, p.EndDate)
}

// AppliesTo 卖家促销要求卖家一致，范围规则与优惠券相同
func (p Promotion) AppliesTo(prod Product) bool {
	if p.Type == PromotionSeller && (p.SellerID == 0 || p.SellerID != prod.SellerID) {
		return false
	}
	return p.Scope.Matches(prod)
}

// DiscountFor 计算对 price 的优惠金额
func (p Promotion) DiscountFor(price decimal.Decimal, places int32) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	switch p.DiscountType {
	case DiscountPercentage:
		return clampZero(minDecimal(price.Mul(p.DiscountValue).Div(hundred).Round(places), price))
	case DiscountFixed:
		return clampZero(minDecimal(p.DiscountValue, price))
	}
	return decimal.Zero
}

// CheckCurrency 固定金额促销必须声明币种
func (p Promotion) CheckCurrency() error {
	if p.DiscountType == DiscountFixed && normalizeCode(p.Currency) == "" {
		return ErrDiscountCurrencyRequired
	}
	return nil
}

func (p Promotion) fixedIn(conv *Converter, display string) (Promotion, error) {
	if err := p.CheckCurrency(); err != nil {
		return Promotion{}, err
	}
	from := normalizeCode(p.Currency)
	if p.DiscountType != DiscountFixed || from == display {
		return p, nil
	}
	m, err := conv.Convert(Money{Amount: p.DiscountValue, Currency: from}, display)
	if err != nil {
		return Promotion{}, err
	}
	p.DiscountValue, p.Currency = m.Amount, display
	return p, nil
}

// ApplicablePromotions 筛选有效且适用的促销，按优先级降序、ID 升序排列
func ApplicablePromotions(promos []Promotion, prod Product, now time.Time) []Promotion {
	out := make([]Promotion, 0, len(promos))
	for _, p := range promos {
		if p.IsValid(now) && p.AppliesTo(prod) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TieBreakPolicy 同优先级促销的取舍策略
type TieBreakPolicy string

const (
	TieBreakLargestDiscount TieBreakPolicy = "largest_discount"
	TieBreakEarliestCreated TieBreakPolicy = "earliest_created"
)

// ParseTieBreakPolicy 解析策略，未知值回退为最大优惠
func ParseTieBreakPolicy(s string) TieBreakPolicy {
	switch TieBreakPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case TieBreakEarliestCreated:
		return TieBreakEarliestCreated
	default:
		return TieBreakLargestDiscount
	}
}

// PromotionChoice 候选促销及其在当前价格下的优惠金额
type PromotionChoice struct {
	Promotion Promotion
	Discount  decimal.Decimal
}

// BestPromotion 最高优先级胜出；同优先级按策略比较，最终按最小ID
func BestPromotion(choices []PromotionChoice, policy TieBreakPolicy) (PromotionChoice, bool) {
	if len(choices) == 0 {
		return PromotionChoice{}, false
	}
	best := choices[0]
	for _, c := range choices[1:] {
		if better(c, best, policy) {
			best = c
		}
	}
	return best, true
}

func better(a, b PromotionChoice, policy TieBreakPolicy) bool {
	if a.Promotion.Priority != b.Promotion.Priority {
		return a.Promotion.Priority > b.Promotion.Priority
	}
	switch policy {
	case TieBreakEarliestCreated:
		if !a.Promotion.CreatedAt.Equal(b.Promotion.CreatedAt) {
			return a.Promotion.CreatedAt.Before(b.Promotion.CreatedAt)
		}
	default:
		if !a.Discount.Equal(b.Discount) {
			return a.Discount.GreaterThan(b.Discount)
		}
	}
	return a.Promotion.ID < b.Promotion.ID
}

func withinWindow(now time.Time, start, end *time.Time) bool {
	if start != nil && now.Before(*start) {
		return false
	}
	if end != nil && now.After(*end) {
		return false
	}
	return true
}

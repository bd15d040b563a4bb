package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MarkupRange 价格区间 [MinPrice, MaxPrice] 对应的固定加价
type MarkupRange struct {
	MinPrice     decimal.Decimal
	MaxPrice     decimal.Decimal
	MarkupAmount decimal.Decimal
}

// Contains 价格是否落在区间内（两端闭区间）
func (r MarkupRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.MinPrice) && price.LessThanOrEqual(r.MaxPrice)
}

// Validate 校验区间金额
func (r MarkupRange) Validate() error {
	if r.MinPrice.IsNegative() || r.MaxPrice.IsNegative() || r.MarkupAmount.IsNegative() {
		return ErrInvalidRange
	}
	if r.MinPrice.GreaterThan(r.MaxPrice) {
		return ErrInvalidRange
	}
	return nil
}

// MarkupSchedule 按 MinPrice 升序排列、互不重叠的加价表
type MarkupSchedule struct {
	currency string
	ranges   []MarkupRange
}

// Gap 相邻区间之间未覆盖的价格段，两端均为开区间
type Gap struct {
	From decimal.Decimal
	To   decimal.Decimal
}

// NewMarkupSchedule 校验并排序加价区间
func NewMarkupSchedule(currency string, ranges []MarkupRange) (*MarkupSchedule, error) {
	sorted := make([]MarkupRange, len(ranges))
	copy(sorted, ranges)

	for _, r := range sorted {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinPrice.LessThan(sorted[j].MinPrice)
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].MinPrice.LessThanOrEqual(sorted[i-1].MaxPrice) {
			return nil, ErrOverlappingRanges
		}
	}

	return &MarkupSchedule{currency: normalizeCode(currency), ranges: sorted}, nil
}

// Currency 加价表绑定的币种
func (s *MarkupSchedule) Currency() string {
	if s == nil {
		return ""
	}
	return s.currency
}

// Len 区间数量
func (s *MarkupSchedule) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ranges)
}

// Ranges 返回区间副本
func (s *MarkupSchedule) Ranges() []MarkupRange {
	if s == nil {
		return nil
	}
	out := make([]MarkupRange, len(s.ranges))
	copy(out, s.ranges)
	return out
}

// Lookup 二分查找包含价格的区间；未命中返回 0, false
func (s *MarkupSchedule) Lookup(price decimal.Decimal) (decimal.Decimal, bool) {
	if s == nil || len(s.ranges) == 0 {
		return decimal.Zero, false
	}
	i := sort.Search(len(s.ranges), func(i int) bool {
		return s.ranges[i].MaxPrice.GreaterThanOrEqual(price)
	})
	if i < len(s.ranges) && s.ranges[i].Contains(price) {
		return s.ranges[i].MarkupAmount, true
	}
	return decimal.Zero, false
}

// Gaps 列出覆盖缺口：首个区间之前以及相邻区间之间宽度超过 unit 的空白
func (s *MarkupSchedule) Gaps(unit decimal.Decimal) []Gap {
	if s == nil || len(s.ranges) == 0 {
		return nil
	}
	var gaps []Gap
	if first := s.ranges[0].MinPrice; first.GreaterThan(unit) {
		gaps = append(gaps, Gap{From: decimal.Zero, To: first})
	}
	for i := 1; i < len(s.ranges); i++ {
		prev, next := s.ranges[i-1].MaxPrice, s.ranges[i].MinPrice
		if next.Sub(prev).GreaterThan(unit) {
			gaps = append(gaps, Gap{From: prev, To: next})
		}
	}
	return gaps
}

// UpperBound 加价表覆盖的最高价格
func (s *MarkupSchedule) UpperBound() (decimal.Decimal, bool) {
	if s == nil || len(s.ranges) == 0 {
		return decimal.Zero, false
	}
	return s.ranges[len(s.ranges)-1].MaxPrice, true
}

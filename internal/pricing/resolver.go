package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MarkupSource 加价来源
type MarkupSource string

const (
	SourceNone            MarkupSource = "none"
	SourceSellerOverride  MarkupSource = "seller_override"
	SourceSellerTemplate  MarkupSource = "seller_template"
	SourceDefaultTemplate MarkupSource = "default_template"
)

// SellerMarkupRange 卖家自定义加价区间
type SellerMarkupRange struct {
	MarkupRange
	Currency string
	IsActive bool
}

// MarkupTemplate 共享加价模板
type MarkupTemplate struct {
	ID        int64
	Name      string
	Currency  string
	IsActive  bool
	IsDefault bool
	Schedule  *MarkupSchedule
}

// SellerMarkups 解析某卖家加价所需的全部预加载数据
type SellerMarkups struct {
	SellerID        int64
	Currency        string
	Overrides       []SellerMarkupRange
	Template        *MarkupTemplate
	DefaultTemplate *MarkupTemplate
}

// MarkupResolution 加价解析结果，仅供内部核算
type MarkupResolution struct {
	Amount     decimal.Decimal
	Source     MarkupSource
	TemplateID int64
	// CoverageMiss 卖家配置了加价表但价格未落入任何区间
	CoverageMiss bool
}

// ResolveMarkup 按 卖家自定义区间 > 卖家模板 > 默认模板 > 0 的顺序解析加价
// 自定义区间未命中时继续向下查找；卖家模板存在时默认模板不参与
func ResolveMarkup(cfg SellerMarkups, basePrice decimal.Decimal) MarkupResolution {
	currency := normalizeCode(cfg.Currency)
	configured := false

	overrides := activeOverrides(cfg.Overrides, currency)
	if len(overrides) > 0 {
		configured = true
		for _, r := range overrides {
			if r.Contains(basePrice) {
				return MarkupResolution{Amount: r.MarkupAmount, Source: SourceSellerOverride}
			}
		}
	}

	// 卖家已分配可用模板时以该模板为准，未命中不再回退到默认模板
	if t := usableTemplate(cfg.Template, currency, false); t != nil {
		if amount, ok := t.Schedule.Lookup(basePrice); ok {
			return MarkupResolution{Amount: amount, Source: SourceSellerTemplate, TemplateID: t.ID}
		}
		return MarkupResolution{Amount: decimal.Zero, Source: SourceNone, CoverageMiss: true}
	}

	if t := usableTemplate(cfg.DefaultTemplate, currency, true); t != nil {
		configured = true
		if amount, ok := t.Schedule.Lookup(basePrice); ok {
			return MarkupResolution{Amount: amount, Source: SourceDefaultTemplate, TemplateID: t.ID}
		}
	}

	return MarkupResolution{Amount: decimal.Zero, Source: SourceNone, CoverageMiss: configured}
}

// Apply 返回加价后的价格
func (r MarkupResolution) Apply(base Money) Money {
	return Money{Amount: base.Amount.Add(r.Amount), Currency: base.Currency}
}

func activeOverrides(rows []SellerMarkupRange, currency string) []SellerMarkupRange {
	out := make([]SellerMarkupRange, 0, len(rows))
	for _, r := range rows {
		if !r.IsActive {
			continue
		}
		if c := normalizeCode(r.Currency); c != "" && currency != "" && c != currency {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MinPrice.LessThan(out[j].MinPrice)
	})
	return out
}

func usableTemplate(t *MarkupTemplate, currency string, mustBeDefault bool) *MarkupTemplate {
	if t == nil || !t.IsActive || t.Schedule == nil {
		return nil
	}
	if mustBeDefault && !t.IsDefault {
		return nil
	}
	if c := normalizeCode(t.Currency); currency != "" && c != "" && c != currency {
		return nil
	}
	return t
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/pricing"
)

// Seller 卖家，只做软删除
type Seller struct {
	ID               int64          `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name             string         `gorm:"type:varchar(100);not null;column:name" json:"name"`
	Currency         string         `gorm:"type:varchar(3);not null;column:currency" json:"currency"`
	MarkupTemplateID *int64         `gorm:"index;column:markup_template_id" json:"markup_template_id,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index;column:deleted_at" json:"-"`

	// 关联
	MarkupTemplate *MarkupTemplate     `gorm:"foreignKey:MarkupTemplateID" json:"markup_template,omitempty"`
	PriceMarkups   []SellerPriceMarkup `gorm:"foreignKey:SellerID" json:"price_markups,omitempty"`
}

// TableName 表名
func (Seller) TableName() string {
	return "sellers"
}

// SellerPriceMarkup 卖家自定义加价区间
type SellerPriceMarkup struct {
	ID           int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	SellerID     int64           `gorm:"index;not null;column:seller_id" json:"seller_id"`
	Currency     string          `gorm:"type:varchar(3);not null;column:currency" json:"currency"`
	MinPrice     decimal.Decimal `gorm:"type:decimal(20,2);not null;column:min_price" json:"min_price"`
	MaxPrice     decimal.Decimal `gorm:"type:decimal(20,2);not null;column:max_price" json:"max_price"`
	MarkupAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;column:markup_amount" json:"markup_amount"`
	IsActive     bool            `gorm:"not null;default:false;column:is_active" json:"is_active"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (SellerPriceMarkup) TableName() string {
	return "seller_price_markups"
}

// ToPricing 转换为定价引擎区间
func (m SellerPriceMarkup) ToPricing() pricing.SellerMarkupRange {
	return pricing.SellerMarkupRange{
		MarkupRange: pricing.MarkupRange{
			MinPrice:     m.MinPrice,
			MaxPrice:     m.MaxPrice,
			MarkupAmount: m.MarkupAmount,
		},
		Currency: m.Currency,
		IsActive: m.IsActive,
	}
}

// MarkupTemplate 共享加价模板，全局最多一个 is_default
type MarkupTemplate struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null;column:name" json:"name"`
	Currency    string    `gorm:"type:varchar(3);not null;column:currency" json:"currency"`
	Description *string   `gorm:"type:varchar(255);column:description" json:"description,omitempty"`
	IsActive    bool      `gorm:"not null;default:false;column:is_active" json:"is_active"`
	IsDefault   bool      `gorm:"not null;default:false;index;column:is_default" json:"is_default"`
	CreatedAt   time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`

	// 关联
	Ranges []MarkupTemplateRange `gorm:"foreignKey:TemplateID" json:"ranges,omitempty"`
}

// TableName 表名
func (MarkupTemplate) TableName() string {
	return "markup_templates"
}

// ToPricing 转换为定价引擎模板，区间需已预加载
func (t MarkupTemplate) ToPricing() (*pricing.MarkupTemplate, error) {
	ranges := make([]pricing.MarkupRange, 0, len(t.Ranges))
	for _, r := range t.Ranges {
		ranges = append(ranges, r.ToPricing())
	}
	schedule, err := pricing.NewMarkupSchedule(t.Currency, ranges)
	if err != nil {
		return nil, err
	}
	return &pricing.MarkupTemplate{
		ID:        t.ID,
		Name:      t.Name,
		Currency:  t.Currency,
		IsActive:  t.IsActive,
		IsDefault: t.IsDefault,
		Schedule:  schedule,
	}, nil
}

// MarkupTemplateRange 模板加价区间
type MarkupTemplateRange struct {
	ID           int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	TemplateID   int64           `gorm:"index;not null;column:template_id" json:"template_id"`
	MinPrice     decimal.Decimal `gorm:"type:decimal(20,2);not null;column:min_price" json:"min_price"`
	MaxPrice     decimal.Decimal `gorm:"type:decimal(20,2);not null;column:max_price" json:"max_price"`
	MarkupAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;column:markup_amount" json:"markup_amount"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
}

// TableName 表名
func (MarkupTemplateRange) TableName() string {
	return "markup_template_ranges"
}

// ToPricing 转换为定价引擎区间
func (r MarkupTemplateRange) ToPricing() pricing.MarkupRange {
	return pricing.MarkupRange{
		MinPrice:     r.MinPrice,
		MaxPrice:     r.MaxPrice,
		MarkupAmount: r.MarkupAmount,
	}
}

package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/pricing"
)

// ErrSellerPromotionWithoutSeller 卖家促销必须指定卖家
var ErrSellerPromotionWithoutSeller = errors.New("seller promotion requires seller_id")

// Coupon 优惠券模型
type Coupon struct {
	ID                int64               `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Code              string              `gorm:"type:varchar(50);uniqueIndex;not null;column:code" json:"code"`
	Name              string              `gorm:"type:varchar(100);not null;column:name" json:"name"`
	DiscountType      string              `gorm:"type:varchar(20);not null;column:discount_type" json:"discount_type"`
	DiscountValue     decimal.Decimal     `gorm:"type:decimal(20,2);not null;column:discount_value" json:"discount_value"`
	Currency          string              `gorm:"type:varchar(3);column:currency" json:"currency"`
	ScopeType         string              `gorm:"type:varchar(20);not null;default:'all';column:scope_type" json:"scope_type"`
	ScopeID           int64               `gorm:"not null;default:0;column:scope_id" json:"scope_id"`
	MinOrderAmount    decimal.Decimal     `gorm:"type:decimal(20,2);not null;default:0;column:min_order_amount" json:"min_order_amount"`
	MaxDiscountAmount decimal.NullDecimal `gorm:"type:decimal(20,2);column:max_discount_amount" json:"max_discount_amount"`
	UsageLimit        *int                `gorm:"column:usage_limit" json:"usage_limit,omitempty"`
	UsageLimitPerUser int                 `gorm:"not null;default:0;column:usage_limit_per_user" json:"usage_limit_per_user"`
	UsedCount         int                 `gorm:"not null;default:0;column:used_count" json:"used_count"`
	RequiresAuth      bool                `gorm:"not null;default:false;column:requires_auth" json:"requires_auth"`
	StartDate         *time.Time          `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate           *time.Time          `gorm:"column:end_date" json:"end_date,omitempty"`
	IsActive          bool                `gorm:"not null;default:false;column:is_active" json:"is_active"`
	CreatedAt         time.Time           `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Coupon) TableName() string {
	return "coupons"
}

// BeforeSave 券码统一大写存储，查询时不区分大小写；含金额字段的券必须带币种
func (c *Coupon) BeforeSave(tx *gorm.DB) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))
	return c.ToPricing().CheckCurrency()
}

// ToPricing 转换为定价引擎优惠券
func (c Coupon) ToPricing() pricing.Coupon {
	return pricing.Coupon{
		ID:                c.ID,
		Code:              c.Code,
		DiscountType:      pricing.DiscountType(c.DiscountType),
		DiscountValue:     c.DiscountValue,
		Currency:          c.Currency,
		Scope:             pricing.Scope{Type: pricing.ScopeType(c.ScopeType), ID: c.ScopeID},
		MinOrderAmount:    c.MinOrderAmount,
		MaxDiscountAmount: c.MaxDiscountAmount,
		UsageLimit:        c.UsageLimit,
		UsageLimitPerUser: c.UsageLimitPerUser,
		UsedCount:         c.UsedCount,
		RequiresAuth:      c.RequiresAuth,
		StartDate:         c.StartDate,
		EndDate:           c.EndDate,
		IsActive:          c.IsActive,
	}
}

// CouponUsage 优惠券核销记录，同一订单同一张券只记录一次
type CouponUsage struct {
	ID             int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	CouponID       int64           `gorm:"not null;uniqueIndex:uk_coupon_usages_order;column:coupon_id" json:"coupon_id"`
	UserID         *int64          `gorm:"index;column:user_id" json:"user_id,omitempty"`
	OrderNo        string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_coupon_usages_order;column:order_no" json:"order_no"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;column:discount_amount" json:"discount_amount"`
	Currency       string          `gorm:"type:varchar(3);not null;column:currency" json:"currency"`
	UsedAt         time.Time       `gorm:"autoCreateTime;column:used_at" json:"used_at"`
}

// TableName 表名
func (CouponUsage) TableName() string {
	return "coupon_usages"
}

// Promotion 促销活动
type Promotion struct {
	ID            int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name          string          `gorm:"type:varchar(100);not null;column:name" json:"name"`
	Type          string          `gorm:"type:varchar(20);not null;index;column:type" json:"type"`
	SellerID      *int64          `gorm:"index;column:seller_id" json:"seller_id,omitempty"`
	DiscountType  string          `gorm:"type:varchar(20);not null;column:discount_type" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(20,2);not null;column:discount_value" json:"discount_value"`
	Currency      string          `gorm:"type:varchar(3);column:currency" json:"currency"`
	ScopeType     string          `gorm:"type:varchar(20);not null;default:'all';column:scope_type" json:"scope_type"`
	ScopeID       int64           `gorm:"not null;default:0;column:scope_id" json:"scope_id"`
	Priority      int             `gorm:"not null;default:0;column:priority" json:"priority"`
	StartDate     *time.Time      `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate       *time.Time      `gorm:"column:end_date" json:"end_date,omitempty"`
	IsActive      bool            `gorm:"not null;default:false;column:is_active" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Promotion) TableName() string {
	return "promotions"
}

// BeforeSave 卖家促销必须带 seller_id，系统促销不带；固定金额促销必须带币种
func (p *Promotion) BeforeSave(tx *gorm.DB) error {
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	switch pricing.PromotionType(p.Type) {
	case pricing.PromotionSeller:
		if p.SellerID == nil || *p.SellerID <= 0 {
			return ErrSellerPromotionWithoutSeller
		}
	case pricing.PromotionSystem:
		p.SellerID = nil
	}
	return p.ToPricing().CheckCurrency()
}

// ToPricing 转换为定价引擎促销
func (p Promotion) ToPricing() pricing.Promotion {
	var sellerID int64
	if p.SellerID != nil {
		sellerID = *p.SellerID
	}
	return pricing.Promotion{
		ID:            p.ID,
		Name:          p.Name,
		Type:          pricing.PromotionType(p.Type),
		SellerID:      sellerID,
		DiscountType:  pricing.DiscountType(p.DiscountType),
		DiscountValue: p.DiscountValue,
		Currency:      p.Currency,
		Scope:         pricing.Scope{Type: pricing.ScopeType(p.ScopeType), ID: p.ScopeID},
		Priority:      p.Priority,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
	}
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/pricing"
)

// Currency 币种
type Currency struct {
	Code          string    `gorm:"type:varchar(3);primaryKey;column:code" json:"code"`
	Name          string    `gorm:"type:varchar(50);not null;column:name" json:"name"`
	Symbol        string    `gorm:"type:varchar(10);not null;column:symbol" json:"symbol"`
	DecimalPlaces int32     `gorm:"not null;column:decimal_places" json:"decimal_places"`
	SymbolBefore  bool      `gorm:"not null;default:false;column:symbol_before" json:"symbol_before"`
	IsActive      bool      `gorm:"not null;default:false;index;column:is_active" json:"is_active"`
	CreatedAt     time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Currency) TableName() string {
	return "currencies"
}

// BeforeSave 币种代码统一大写
func (c *Currency) BeforeSave(tx *gorm.DB) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	return nil
}

// ToPricing 转换为定价引擎的展示规则
func (c Currency) ToPricing() pricing.Currency {
	return pricing.Currency{
		Code:          c.Code,
		Symbol:        c.Symbol,
		DecimalPlaces: c.DecimalPlaces,
		SymbolBefore:  c.SymbolBefore,
	}
}

// ExchangeRate 有向汇率，(from_currency, to_currency) 唯一
type ExchangeRate struct {
	ID               int64           `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	FromCurrency     string          `gorm:"type:varchar(3);not null;uniqueIndex:uk_exchange_rates_pair;column:from_currency" json:"from_currency"`
	ToCurrency       string          `gorm:"type:varchar(3);not null;uniqueIndex:uk_exchange_rates_pair;column:to_currency" json:"to_currency"`
	BaseRate         decimal.Decimal `gorm:"type:decimal(20,8);not null;column:base_rate" json:"base_rate"`
	MarkupPercentage decimal.Decimal `gorm:"type:decimal(8,4);not null;default:0;column:markup_percentage" json:"markup_percentage"`
	FetchedAt        time.Time       `gorm:"not null;column:fetched_at" json:"fetched_at"`
	CreatedAt        time.Time       `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (ExchangeRate) TableName() string {
	return "exchange_rates"
}

// BeforeSave 币种代码统一大写
func (r *ExchangeRate) BeforeSave(tx *gorm.DB) error {
	r.FromCurrency = strings.ToUpper(strings.TrimSpace(r.FromCurrency))
	r.ToCurrency = strings.ToUpper(strings.TrimSpace(r.ToCurrency))
	return nil
}

// ToPricing 转换为定价引擎汇率
func (r ExchangeRate) ToPricing() pricing.ExchangeRate {
	return pricing.ExchangeRate{
		From:             r.FromCurrency,
		To:               r.ToCurrency,
		BaseRate:         r.BaseRate,
		MarkupPercentage: r.MarkupPercentage,
		FetchedAt:        r.FetchedAt,
	}
}

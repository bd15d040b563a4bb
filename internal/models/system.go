package models

import (
	"time"
)

// Setting 运行期可调整的配置项
type Setting struct {
	ID          int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Group       string    `gorm:"type:varchar(50);not null;uniqueIndex:uk_settings_group_key;column:group" json:"group"`
	Key         string    `gorm:"type:varchar(100);not null;uniqueIndex:uk_settings_group_key;column:key" json:"key"`
	Value       string    `gorm:"type:text;not null;column:value" json:"value"`
	Type        string    `gorm:"type:varchar(20);not null;default:'string';column:type" json:"type"`
	Description *string   `gorm:"type:varchar(255);column:description" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Setting) TableName() string {
	return "settings"
}

// SettingValueType 配置值类型
const (
	SettingTypeString  = "string"  // 字符串
	SettingTypeNumber  = "number"  // 数字
	SettingTypeBoolean = "boolean" // 布尔
)

// SettingGroup 配置分组
const (
	SettingGroupPricing = "pricing" // 定价
)

// 定价配置键
const (
	SettingKeyDefaultCurrency   = "default_currency"
	SettingKeyPromotionTieBreak = "promotion_tie_break"
	SettingKeyRateStaleAfter    = "rate_stale_after"
)

// AllModels 需要自动迁移的全部模型
func AllModels() []interface{} {
	return []interface{}{
		&Currency{},
		&ExchangeRate{},
		&Seller{},
		&SellerPriceMarkup{},
		&MarkupTemplate{},
		&MarkupTemplateRange{},
		&Coupon{},
		&CouponUsage{},
		&Promotion{},
		&Setting{},
	}
}

package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// CurrencyRepository 币种仓储
type CurrencyRepository struct {
	db *gorm.DB
}

// NewCurrencyRepository 创建币种仓储
func NewCurrencyRepository(db *gorm.DB) *CurrencyRepository {
	return &CurrencyRepository{db: db}
}

// Upsert 创建或更新币种
func (r *CurrencyRepository) Upsert(ctx context.Context, currency *models.Currency) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "symbol", "decimal_places", "symbol_before", "is_active", "updated_at"}),
	}).Create(currency).Error
}

// GetByCode 根据代码获取币种
func (r *CurrencyRepository) GetByCode(ctx context.Context, code string) (*models.Currency, error) {
	var currency models.Currency
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&currency).Error
	if err != nil {
		return nil, err
	}
	return &currency, nil
}

// ListActive 获取启用的币种
func (r *CurrencyRepository) ListActive(ctx context.Context) ([]*models.Currency, error) {
	var currencies []*models.Currency
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("code ASC").Find(&currencies).Error
	return currencies, err
}

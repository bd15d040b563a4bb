package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// ExchangeRateRepository 汇率仓储
type ExchangeRateRepository struct {
	db *gorm.DB
}

// NewExchangeRateRepository 创建汇率仓储
func NewExchangeRateRepository(db *gorm.DB) *ExchangeRateRepository {
	return &ExchangeRateRepository{db: db}
}

// Upsert 按币种对创建或覆盖汇率，后写入者生效
func (r *ExchangeRateRepository) Upsert(ctx context.Context, rate *models.ExchangeRate) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_currency"}, {Name: "to_currency"}},
		DoUpdates: clause.AssignmentColumns([]string{"base_rate", "markup_percentage", "fetched_at", "updated_at"}),
	}).Create(rate).Error
}

// Get 获取有向汇率
func (r *ExchangeRateRepository) Get(ctx context.Context, from, to string) (*models.ExchangeRate, error) {
	var rate models.ExchangeRate
	err := r.db.WithContext(ctx).
		Where("from_currency = ? AND to_currency = ?", strings.ToUpper(from), strings.ToUpper(to)).
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

// ListAll 获取全部汇率
func (r *ExchangeRateRepository) ListAll(ctx context.Context) ([]*models.ExchangeRate, error) {
	var rates []*models.ExchangeRate
	err := r.db.WithContext(ctx).Order("from_currency ASC, to_currency ASC").Find(&rates).Error
	return rates, err
}

// ListFetchedBefore 获取抓取时间早于指定时间的汇率
func (r *ExchangeRateRepository) ListFetchedBefore(ctx context.Context, before time.Time) ([]*models.ExchangeRate, error) {
	var rates []*models.ExchangeRate
	err := r.db.WithContext(ctx).Where("fetched_at < ?", before).Order("fetched_at ASC").Find(&rates).Error
	return rates, err
}

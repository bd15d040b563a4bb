package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
)

// PromotionRepository 促销仓储
type PromotionRepository struct {
	db *gorm.DB
}

// NewPromotionRepository 创建促销仓储
func NewPromotionRepository(db *gorm.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// Create 创建促销
func (r *PromotionRepository) Create(ctx context.Context, promotion *models.Promotion) error {
	return r.db.WithContext(ctx).Create(promotion).Error
}

// ListActiveForSeller 获取当前有效的系统促销与该卖家促销，按优先级降序
func (r *PromotionRepository) ListActiveForSeller(ctx context.Context, sellerID int64, now time.Time) ([]*models.Promotion, error) {
	var promotions []*models.Promotion
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("type = ? OR (type = ? AND seller_id = ?)", string(pricing.PromotionSystem), string(pricing.PromotionSeller), sellerID).
		Where("start_date IS NULL OR start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Order("priority DESC, id ASC").
		Find(&promotions).Error
	return promotions, err
}

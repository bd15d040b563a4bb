package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// SellerRepository 卖家仓储
type SellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository 创建卖家仓储
func NewSellerRepository(db *gorm.DB) *SellerRepository {
	return &SellerRepository{db: db}
}

// Create 创建卖家
func (r *SellerRepository) Create(ctx context.Context, seller *models.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

// GetByID 获取卖家，包含已软删除的卖家，历史订单定价仍需解析
func (r *SellerRepository) GetByID(ctx context.Context, id int64) (*models.Seller, error) {
	var seller models.Seller
	err := r.db.WithContext(ctx).Unscoped().First(&seller, id).Error
	if err != nil {
		return nil, err
	}
	return &seller, nil
}

// UpdateTemplate 设置卖家的加价模板，templateID 为 nil 时解除
func (r *SellerRepository) UpdateTemplate(ctx context.Context, sellerID int64, templateID *int64) error {
	result := r.db.WithContext(ctx).Model(&models.Seller{}).
		Where("id = ?", sellerID).
		Update("markup_template_id", templateID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 软删除卖家
func (r *SellerRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&models.Seller{}, id).Error
}

// ListIDs 获取未删除卖家ID
func (r *SellerRepository) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.Seller{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

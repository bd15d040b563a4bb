package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// SellerPriceMarkupRepository 卖家自定义加价仓储
type SellerPriceMarkupRepository struct {
	db *gorm.DB
}

// NewSellerPriceMarkupRepository 创建卖家自定义加价仓储
func NewSellerPriceMarkupRepository(db *gorm.DB) *SellerPriceMarkupRepository {
	return &SellerPriceMarkupRepository{db: db}
}

// ListBySeller 获取卖家全部加价区间（含停用），按最低价升序
func (r *SellerPriceMarkupRepository) ListBySeller(ctx context.Context, sellerID int64) ([]*models.SellerPriceMarkup, error) {
	var markups []*models.SellerPriceMarkup
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("min_price ASC").
		Find(&markups).Error
	return markups, err
}

// ReplaceForSeller 在一个事务内整体替换卖家的加价区间
func (r *SellerPriceMarkupRepository) ReplaceForSeller(ctx context.Context, sellerID int64, markups []*models.SellerPriceMarkup) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("seller_id = ?", sellerID).Delete(&models.SellerPriceMarkup{}).Error; err != nil {
			return err
		}
		if len(markups) == 0 {
			return nil
		}
		for _, m := range markups {
			m.ID = 0
			m.SellerID = sellerID
		}
		return tx.Create(&markups).Error
	})
}

// ListSellerIDsWithActive 获取存在启用区间的卖家ID
func (r *SellerPriceMarkupRepository) ListSellerIDsWithActive(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&models.SellerPriceMarkup{}).
		Where("is_active = ?", true).
		Distinct().
		Order("seller_id ASC").
		Pluck("seller_id", &ids).Error
	return ids, err
}

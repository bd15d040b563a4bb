package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// CouponRepository 优惠券仓储，券码以大写存储，按码查询不区分大小写
type CouponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

// Create 保存新券，券码与币种的规范化在模型 BeforeSave 中完成
func (r *CouponRepository) Create(ctx context.Context, coupon *models.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

// GetByID 按主键读取，核销后用于回读 used_count
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*models.Coupon, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByCode 按券码读取
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return r.first(ctx, "code = ?", normalizeCouponCode(code))
}

func (r *CouponRepository) first(ctx context.Context, cond string, arg interface{}) (*models.Coupon, error) {
	coupon := new(models.Coupon)
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(coupon).Error; err != nil {
		return nil, err
	}
	return coupon, nil
}

func normalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// CouponUsageRepository 优惠券核销仓储
type CouponUsageRepository struct {
	db *gorm.DB
}

// NewCouponUsageRepository 创建优惠券核销仓储
func NewCouponUsageRepository(db *gorm.DB) *CouponUsageRepository {
	return &CouponUsageRepository{db: db}
}

// CountByUser 统计用户对某张券的历史使用次数
func (r *CouponUsageRepository) CountByUser(ctx context.Context, couponID, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

// GetByOrder 获取订单的核销记录
func (r *CouponUsageRepository) GetByOrder(ctx context.Context, couponID int64, orderNo string) (*models.CouponUsage, error) {
	var usage models.CouponUsage
	err := r.db.WithContext(ctx).
		Where("coupon_id = ? AND order_no = ?", couponID, orderNo).
		First(&usage).Error
	if err != nil {
		return nil, err
	}
	return &usage, nil
}

// RedeemParams 核销参数
type RedeemParams struct {
	CouponID       int64
	UserID         *int64
	OrderNo        string
	DiscountAmount decimal.Decimal
	Currency       string
}

// Redeem 原子核销：条件更新 used_count，校验个人次数，写入核销记录
//
// 条件更新在 used_count 达到 usage_limit 时影响 0 行，并发核销不会超发；
// 该更新持有的行锁使同一张券的个人次数校验与插入串行执行。
func (r *CouponUsageRepository) Redeem(ctx context.Context, params RedeemParams) (*models.CouponUsage, error) {
	var usage *models.CouponUsage

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.CouponUsage{}).
			Where("coupon_id = ? AND order_no = ?", params.CouponID, params.OrderNo).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrCouponAlreadyRedeemed
		}

		result := tx.Model(&models.Coupon{}).
			Where("id = ? AND is_active = ? AND (usage_limit IS NULL OR used_count < usage_limit)", params.CouponID, true).
			UpdateColumn("used_count", gorm.Expr("used_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCouponExhausted
		}

		var coupon models.Coupon
		if err := tx.First(&coupon, params.CouponID).Error; err != nil {
			return err
		}

		if params.UserID != nil && coupon.UsageLimitPerUser > 0 {
			var used int64
			if err := tx.Model(&models.CouponUsage{}).
				Where("coupon_id = ? AND user_id = ?", params.CouponID, *params.UserID).
				Count(&used).Error; err != nil {
				return err
			}
			if used >= int64(coupon.UsageLimitPerUser) {
				return ErrCouponUserLimit
			}
		}

		usage = &models.CouponUsage{
			CouponID:       params.CouponID,
			UserID:         params.UserID,
			OrderNo:        params.OrderNo,
			DiscountAmount: params.DiscountAmount,
			Currency:       params.Currency,
		}
		if err := tx.Create(usage).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrCouponAlreadyRedeemed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

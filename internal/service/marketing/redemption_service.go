// Package marketing 提供优惠券核销服务
package marketing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/common/cache"
	appErrors "github.com/dumeirei/marketplace-pricing/internal/common/errors"
	"github.com/dumeirei/marketplace-pricing/internal/common/logger"
	"github.com/dumeirei/marketplace-pricing/internal/common/metrics"
	"github.com/dumeirei/marketplace-pricing/internal/common/tracing"
	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
)

// RedemptionService 优惠券核销服务
type RedemptionService struct {
	couponRepo *repository.CouponRepository
	usageRepo  *repository.CouponUsageRepository
	locker     *cache.Locker
	lockTTL    time.Duration
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewRedemptionService 创建核销服务，locker 为空时仅依赖数据库约束
func NewRedemptionService(
	couponRepo *repository.CouponRepository,
	usageRepo *repository.CouponUsageRepository,
	locker *cache.Locker,
	lockTTL time.Duration,
	m *metrics.Metrics,
) *RedemptionService {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &RedemptionService{
		couponRepo: couponRepo,
		usageRepo:  usageRepo,
		locker:     locker,
		lockTTL:    lockTTL,
		metrics:    m,
		now:        time.Now,
	}
}

// RedeemRequest 核销请求，由订单服务在下单成功后调用
type RedeemRequest struct {
	CouponCode     string          `json:"coupon_code" binding:"required"`
	OrderNo        string          `json:"order_no" binding:"required,max=64"`
	UserID         *int64          `json:"user_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Currency       string          `json:"currency" binding:"required,len=3"`
}

// Redeem 核销优惠券
func (s *RedemptionService) Redeem(ctx context.Context, req *RedeemRequest) (*models.CouponUsage, error) {
	ctx, span := tracing.Start(ctx, "marketing.Redeem", tracing.WithOrderNo(req.OrderNo))
	defer span.End()

	usage, err := s.redeem(ctx, req)
	if err != nil {
		tracing.SetError(ctx, err)
		s.metrics.RecordCouponRedemption(redemptionResult(err))
		return nil, err
	}

	s.metrics.RecordCouponRedemption("ok")
	logger.Info("coupon redeemed",
		logger.CouponCode(req.CouponCode),
		logger.OrderNo(req.OrderNo),
		logger.Amount("discount", req.DiscountAmount),
	)
	return usage, nil
}

func (s *RedemptionService) redeem(ctx context.Context, req *RedeemRequest) (*models.CouponUsage, error) {
	code := strings.ToUpper(strings.TrimSpace(req.CouponCode))
	if req.DiscountAmount.IsNegative() {
		return nil, appErrors.ErrInvalidParams.WithMessage("discount_amount must not be negative")
	}

	coupon, err := s.couponRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrCouponNotFound
		}
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	pc := coupon.ToPricing()
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, appErrors.ErrCouponNotEnough
	}
	if !pc.IsValid(s.now()) {
		return nil, appErrors.ErrCouponExpired
	}
	if coupon.RequiresAuth && req.UserID == nil {
		return nil, appErrors.ErrCouponLoginRequired
	}

	if s.locker != nil {
		key := cache.BuildKey(cache.KeyPrefixRedemption, code, req.OrderNo)
		token, ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
		switch {
		case err != nil:
			logger.Warn("redemption lock unavailable, relying on database guard", logger.OrderNo(req.OrderNo), logger.Err(err))
		case !ok:
			return nil, appErrors.ErrRedemptionInFlight
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), key, token); err != nil {
					logger.Warn("release redemption lock failed", logger.OrderNo(req.OrderNo), logger.Err(err))
				}
			}()
		}
	}

	usage, err := s.usageRepo.Redeem(ctx, repository.RedeemParams{
		CouponID:       coupon.ID,
		UserID:         req.UserID,
		OrderNo:        req.OrderNo,
		DiscountAmount: req.DiscountAmount,
		Currency:       strings.ToUpper(req.Currency),
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCouponExhausted):
			return nil, appErrors.ErrCouponNotEnough
		case errors.Is(err, repository.ErrCouponUserLimit):
			return nil, appErrors.ErrCouponLimitExceed
		case errors.Is(err, repository.ErrCouponAlreadyRedeemed):
			return nil, appErrors.ErrCouponUsed
		default:
			return nil, appErrors.ErrDatabaseError.WithError(err)
		}
	}
	return usage, nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, appErrors.ErrCouponNotEnough):
		return "exhausted"
	case errors.Is(err, appErrors.ErrCouponLimitExceed):
		return "user_limit"
	case errors.Is(err, appErrors.ErrCouponUsed):
		return "duplicate"
	case errors.Is(err, appErrors.ErrRedemptionInFlight):
		return "in_flight"
	case errors.Is(err, appErrors.ErrCouponNotFound), errors.Is(err, appErrors.ErrCouponExpired), errors.Is(err, appErrors.ErrCouponLoginRequired):
		return "rejected"
	default:
		return "error"
	}
}

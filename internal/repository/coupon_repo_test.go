package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
)

func TestCouponRepository_GetByCode(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCouponRepository(db)
	ctx := context.Background()

	coupon := createTestCoupon(t, db)
	assert.Equal(t, "SAVE10", coupon.Code)

	t.Run("不区分大小写", func(t *testing.T) {
		for _, code := range []string{"SAVE10", "save10", " Save10 "} {
			got, err := repo.GetByCode(ctx, code)
			require.NoError(t, err)
			assert.Equal(t, coupon.ID, got.ID)
		}
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := repo.GetByCode(ctx, "NOPE")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("重复券码", func(t *testing.T) {
		err := repo.Create(ctx, &models.Coupon{Code: "Save10", Name: "dup", DiscountType: "fixed", DiscountValue: dec("1"), Currency: "ZAR"})
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})
}

func TestCouponRepository_FixedRequiresCurrency(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCouponRepository(db)

	err := repo.Create(context.Background(), &models.Coupon{Code: "FIFTY", Name: "立减50", DiscountType: "fixed", DiscountValue: dec("50"), ScopeType: "all"})
	assert.ErrorIs(t, err, pricing.ErrDiscountCurrencyRequired)

	err = repo.Create(context.Background(), &models.Coupon{Code: "FIFTY", Name: "立减50", DiscountType: "fixed", DiscountValue: dec("50"), Currency: "zar", ScopeType: "all"})
	require.NoError(t, err)
	got, err := repo.GetByCode(context.Background(), "fifty")
	require.NoError(t, err)
	assert.Equal(t, "ZAR", got.Currency)
}

func TestCouponRepository_NullableFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCouponRepository(db)
	ctx := context.Background()

	coupon := createTestCoupon(t, db, func(c *models.Coupon) {
		c.Code = "CAPPED"
		c.MaxDiscountAmount.Valid = true
		c.MaxDiscountAmount.Decimal = dec("500.00")
		c.Currency = "ZAR"
		c.UsageLimit = intPtr(5)
		c.StartDate = nil
		c.EndDate = nil
	})

	got, err := repo.GetByID(ctx, coupon.ID)
	require.NoError(t, err)
	require.True(t, got.MaxDiscountAmount.Valid)
	assert.True(t, got.MaxDiscountAmount.Decimal.Equal(dec("500")))
	require.NotNil(t, got.UsageLimit)
	assert.Equal(t, 5, *got.UsageLimit)
	assert.Nil(t, got.StartDate)
	assert.Nil(t, got.EndDate)

	pc := got.ToPricing()
	assert.True(t, pc.DiscountValue.Equal(dec("10")))
	assert.Equal(t, "all", string(pc.Scope.Type))
}

func TestCouponUsageRepository_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("成功核销", func(t *testing.T) {
		db := setupTestDB(t)
		coupon := createTestCoupon(t, db, func(c *models.Coupon) { c.UsageLimit = intPtr(2) })
		repo := NewCouponUsageRepository(db)

		usage, err := repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, UserID: int64Ptr(1), OrderNo: "ORD1", DiscountAmount: dec("5"), Currency: "USD"})
		require.NoError(t, err)
		assert.NotZero(t, usage.ID)

		got, err := NewCouponRepository(db).GetByID(ctx, coupon.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.UsedCount)

		count, err := repo.CountByUser(ctx, coupon.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("同一订单不能重复核销", func(t *testing.T) {
		db := setupTestDB(t)
		coupon := createTestCoupon(t, db)
		repo := NewCouponUsageRepository(db)

		_, err := repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, OrderNo: "ORD1", DiscountAmount: dec("5"), Currency: "USD"})
		require.NoError(t, err)
		_, err = repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, OrderNo: "ORD1", DiscountAmount: dec("5"), Currency: "USD"})
		assert.ErrorIs(t, err, ErrCouponAlreadyRedeemed)

		got, _ := NewCouponRepository(db).GetByID(ctx, coupon.ID)
		assert.Equal(t, 1, got.UsedCount)
	})

	t.Run("总量用完", func(t *testing.T) {
		db := setupTestDB(t)
		coupon := createTestCoupon(t, db, func(c *models.Coupon) { c.UsageLimit = intPtr(1) })
		repo := NewCouponUsageRepository(db)

		_, err := repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, OrderNo: "ORD1", DiscountAmount: dec("5"), Currency: "USD"})
		require.NoError(t, err)
		_, err = repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, OrderNo: "ORD2", DiscountAmount: dec("5"), Currency: "USD"})
		assert.ErrorIs(t, err, ErrCouponExhausted)
	})

	t.Run("停用的券", func(t *testing.T) {
		db := setupTestDB(t)
		coupon := createTestCoupon(t, db, func(c *models.Coupon) { c.IsActive = false })

		_, err := NewCouponUsageRepository(db).Redeem(ctx, RedeemParams{CouponID: coupon.ID, OrderNo: "ORD1", DiscountAmount: dec("5"), Currency: "USD"})
		assert.ErrorIs(t, err, ErrCouponExhausted)
	})

	t.Run("个人次数上限回滚计数", func(t *testing.T) {
		db := setupTestDB(t)
		coupon := createTestCoupon(t, db, func(c *models.Coupon) { c.UsageLimitPerUser = 1 })
		repo := NewCouponUsageRepository(db)

		_, err := repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, UserID: int64Ptr(9), OrderNo: "ORD1", DiscountAmount: dec("5"), Currency: "USD"})
		require.NoError(t, err)
		_, err = repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, UserID: int64Ptr(9), OrderNo: "ORD2", DiscountAmount: dec("5"), Currency: "USD"})
		assert.ErrorIs(t, err, ErrCouponUserLimit)

		got, _ := NewCouponRepository(db).GetByID(ctx, coupon.ID)
		assert.Equal(t, 1, got.UsedCount)

		_, err = repo.Redeem(ctx, RedeemParams{CouponID: coupon.ID, UserID: int64Ptr(10), OrderNo: "ORD3", DiscountAmount: dec("5"), Currency: "USD"})
		assert.NoError(t, err)
	})
}

func TestCouponUsageRepository_RedeemConcurrentCeiling(t *testing.T) {
	db := setupTestDB(t)
	const limit = 5
	const attempts = 20
	coupon := createTestCoupon(t, db, func(c *models.Coupon) { c.UsageLimit = intPtr(limit) })
	repo := NewCouponUsageRepository(db)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		exhausted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Redeem(context.Background(), RedeemParams{
				CouponID:       coupon.ID,
				OrderNo:        fmt.Sprintf("ORD%03d", i),
				DiscountAmount: dec("1"),
				Currency:       "USD",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrCouponExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, limit, succeeded)
	assert.Equal(t, attempts-limit, exhausted)

	got, err := NewCouponRepository(db).GetByID(context.Background(), coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, got.UsedCount)

	var usages int64
	require.NoError(t, db.Model(&models.CouponUsage{}).Count(&usages).Error)
	assert.Equal(t, int64(limit), usages)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dumeirei/marketplace-pricing/internal/models"
)

// setupTestDB 创建内存 sqlite 测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createTestCoupon(t *testing.T, db *gorm.DB, opts ...func(*models.Coupon)) *models.Coupon {
	t.Helper()

	coupon := &models.Coupon{
		Code:          "save10",
		Name:          "测试优惠券",
		DiscountType:  "percentage",
		DiscountValue: dec("10"),
		ScopeType:     "all",
		IsActive:      true,
		StartDate:     timePtr(time.Now().Add(-time.Hour)),
		EndDate:       timePtr(time.Now().Add(24 * time.Hour)),
	}
	for _, opt := range opts {
		opt(coupon)
	}
	require.NoError(t, NewCouponRepository(db).Create(context.Background(), coupon))
	return coupon
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func intPtr(i int) *int {
	return &i
}

func int64Ptr(i int64) *int64 {
	return &i
}

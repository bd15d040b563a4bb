package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
)

func TestPromotionRepository_ListActiveForSeller(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	fixtures := []*models.Promotion{
		{Name: "system", Type: "system", DiscountType: "percentage", DiscountValue: dec("10"), Priority: 1, IsActive: true},
		{Name: "mine", Type: "seller", SellerID: int64Ptr(7), DiscountType: "percentage", DiscountValue: dec("15"), Priority: 5, IsActive: true},
		{Name: "other seller", Type: "seller", SellerID: int64Ptr(8), DiscountType: "fixed", DiscountValue: dec("5"), Currency: "ZAR", Priority: 9, IsActive: true},
		{Name: "inactive", Type: "system", DiscountType: "fixed", DiscountValue: dec("5"), Currency: "ZAR", Priority: 9},
		{Name: "expired", Type: "system", DiscountType: "fixed", DiscountValue: dec("5"), Currency: "ZAR", Priority: 9, IsActive: true, EndDate: timePtr(now.Add(-time.Hour))},
		{Name: "future", Type: "system", DiscountType: "fixed", DiscountValue: dec("5"), Currency: "ZAR", Priority: 9, IsActive: true, StartDate: timePtr(now.Add(time.Hour))},
	}
	for _, p := range fixtures {
		require.NoError(t, repo.Create(ctx, p))
	}

	got, err := repo.ListActiveForSeller(ctx, 7, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mine", got[0].Name)
	assert.Equal(t, "system", got[1].Name)
	assert.Equal(t, "all", got[1].ScopeType)
}

func TestPromotion_SellerTypeRequiresSeller(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)

	err := repo.Create(context.Background(), &models.Promotion{Name: "bad", Type: "seller", DiscountType: "fixed", DiscountValue: dec("1")})
	assert.ErrorIs(t, err, models.ErrSellerPromotionWithoutSeller)
}

func TestPromotion_FixedRequiresCurrency(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPromotionRepository(db)

	err := repo.Create(context.Background(), &models.Promotion{Name: "减50", Type: "system", DiscountType: "fixed", DiscountValue: dec("50")})
	assert.ErrorIs(t, err, pricing.ErrDiscountCurrencyRequired)

	require.NoError(t, repo.Create(context.Background(), &models.Promotion{Name: "九折", Type: "system", DiscountType: "percentage", DiscountValue: dec("10")}))
}

func TestSettingRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, &models.Setting{Group: models.SettingGroupPricing, Key: models.SettingKeyDefaultCurrency, Value: "USD"}))
	require.NoError(t, repo.Set(ctx, &models.Setting{Group: models.SettingGroupPricing, Key: models.SettingKeyDefaultCurrency, Value: "ZAR"}))
	require.NoError(t, repo.Set(ctx, &models.Setting{Group: models.SettingGroupPricing, Key: models.SettingKeyRateStaleAfter, Value: "3600", Type: models.SettingTypeNumber}))

	got, err := repo.Get(ctx, models.SettingGroupPricing, models.SettingKeyDefaultCurrency)
	require.NoError(t, err)
	assert.Equal(t, "ZAR", got.Value)
	assert.Equal(t, models.SettingTypeString, got.Type)

	all, err := repo.ListByGroup(ctx, models.SettingGroupPricing)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

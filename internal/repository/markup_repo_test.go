package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
)

func TestSellerRepository_SoftDeleteStillResolvable(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSellerRepository(db)
	ctx := context.Background()

	seller := &models.Seller{Name: "Cape Crafts", Currency: "ZAR"}
	require.NoError(t, repo.Create(ctx, seller))
	require.NoError(t, repo.Delete(ctx, seller.ID))

	got, err := repo.GetByID(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cape Crafts", got.Name)
	assert.True(t, got.DeletedAt.Valid)

	ids, err := repo.ListIDs(ctx)
	require.NoError(t, err)
	assert.NotContains(t, ids, seller.ID)
}

func TestSellerRepository_UpdateTemplate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSellerRepository(db)
	ctx := context.Background()

	seller := &models.Seller{Name: "s", Currency: "ZAR"}
	require.NoError(t, repo.Create(ctx, seller))

	require.NoError(t, repo.UpdateTemplate(ctx, seller.ID, int64Ptr(3)))
	got, _ := repo.GetByID(ctx, seller.ID)
	require.NotNil(t, got.MarkupTemplateID)
	assert.Equal(t, int64(3), *got.MarkupTemplateID)

	assert.ErrorIs(t, repo.UpdateTemplate(ctx, 999, nil), gorm.ErrRecordNotFound)
}

func TestSellerPriceMarkupRepository_Replace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSellerPriceMarkupRepository(db)
	ctx := context.Background()

	first := []*models.SellerPriceMarkup{
		{Currency: "ZAR", MinPrice: dec("100.01"), MaxPrice: dec("500"), MarkupAmount: dec("80"), IsActive: true},
		{Currency: "ZAR", MinPrice: dec("0.01"), MaxPrice: dec("100"), MarkupAmount: dec("50"), IsActive: true},
	}
	require.NoError(t, repo.ReplaceForSeller(ctx, 7, first))

	rows, err := repo.ListBySeller(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].MinPrice.Equal(dec("0.01")))
	assert.Equal(t, int64(7), rows[0].SellerID)

	// Scenario A 经数据库往返后仍然成立
	overrides := make([]pricing.SellerMarkupRange, 0, len(rows))
	for _, r := range rows {
		overrides = append(overrides, r.ToPricing())
	}
	res := pricing.ResolveMarkup(pricing.SellerMarkups{Currency: "ZAR", Overrides: overrides}, dec("75"))
	assert.True(t, res.Amount.Equal(dec("50")))

	require.NoError(t, repo.ReplaceForSeller(ctx, 7, []*models.SellerPriceMarkup{
		{Currency: "ZAR", MinPrice: dec("0"), MaxPrice: dec("1000"), MarkupAmount: dec("10"), IsActive: false},
	}))
	rows, err = repo.ListBySeller(ctx, 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsActive)

	ids, err := repo.ListSellerIDsWithActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.ReplaceForSeller(ctx, 7, nil))
	rows, _ = repo.ListBySeller(ctx, 7)
	assert.Empty(t, rows)
}

func TestMarkupTemplateRepository_SetDefault(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMarkupTemplateRepository(db)
	ctx := context.Background()

	a := &models.MarkupTemplate{Name: "A", Currency: "ZAR", IsActive: true}
	b := &models.MarkupTemplate{Name: "B", Currency: "ZAR", IsActive: true, IsDefault: true}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	_, err := repo.GetDefault(ctx)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "Create 不能直接创建默认模板")

	require.NoError(t, repo.SetDefault(ctx, a.ID))
	require.NoError(t, repo.SetDefault(ctx, b.ID))

	var defaults int64
	require.NoError(t, db.Model(&models.MarkupTemplate{}).Where("is_default = ?", true).Count(&defaults).Error)
	assert.Equal(t, int64(1), defaults)

	got, err := repo.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	assert.ErrorIs(t, repo.SetDefault(ctx, 999), gorm.ErrRecordNotFound)
	got, err = repo.GetDefault(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID, "失败的设置不影响原默认模板")
}

func TestMarkupTemplateRepository_ReplaceRanges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMarkupTemplateRepository(db)
	ctx := context.Background()

	tpl := &models.MarkupTemplate{Name: "standard", Currency: "USD", IsActive: true}
	require.NoError(t, repo.Create(ctx, tpl))

	require.NoError(t, repo.ReplaceRanges(ctx, tpl.ID, []*models.MarkupTemplateRange{
		{MinPrice: dec("50.01"), MaxPrice: dec("200"), MarkupAmount: dec("12")},
		{MinPrice: dec("0"), MaxPrice: dec("50"), MarkupAmount: dec("5")},
	}))

	got, err := repo.GetByID(ctx, tpl.ID)
	require.NoError(t, err)
	require.Len(t, got.Ranges, 2)
	assert.True(t, got.Ranges[0].MinPrice.IsZero())

	pt, err := got.ToPricing()
	require.NoError(t, err)
	amount, ok := pt.Schedule.Lookup(dec("120"))
	require.True(t, ok)
	assert.True(t, amount.Equal(dec("12")))

	assert.ErrorIs(t, repo.ReplaceRanges(ctx, 999, nil), gorm.ErrRecordNotFound)

	require.NoError(t, repo.SetActive(ctx, tpl.ID, false))
	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

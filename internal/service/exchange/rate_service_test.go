package exchange

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dumeirei/marketplace-pricing/internal/common/cache"
	"github.com/dumeirei/marketplace-pricing/internal/common/config"
	appErrors "github.com/dumeirei/marketplace-pricing/internal/common/errors"
	"github.com/dumeirei/marketplace-pricing/internal/common/logger"
	"github.com/dumeirei/marketplace-pricing/internal/common/metrics"
	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
	"github.com/dumeirei/marketplace-pricing/internal/service/settings"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupRates(t *testing.T) (*RateService, *gorm.DB, *prometheus.Registry) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	m, reg := metrics.NewWithRegistry("test")
	provider := settings.NewProvider(repository.NewSettingRepository(db), &config.PricingConfig{
		DefaultCurrency: "USD",
		RateStaleAfter:  time.Hour,
	})
	svc := NewRateService(db, provider, m)
	svc.now = func() time.Time { return fixedNow }

	ctx := context.Background()
	_, err = svc.UpsertCurrency(ctx, "usd", &UpsertCurrencyRequest{Name: "US Dollar", Symbol: "$", DecimalPlaces: 2, SymbolBefore: true, IsActive: true})
	require.NoError(t, err)
	_, err = svc.UpsertCurrency(ctx, "MWK", &UpsertCurrencyRequest{Name: "Malawian Kwacha", Symbol: "MK", DecimalPlaces: 2, IsActive: true})
	require.NoError(t, err)
	_, err = svc.UpsertCurrency(ctx, "JPY", &UpsertCurrencyRequest{Name: "Yen", Symbol: "¥", DecimalPlaces: 0, SymbolBefore: true, IsActive: true})
	require.NoError(t, err)

	return svc, db, reg
}

func TestRateService_Upsert(t *testing.T) {
	svc, db, _ := setupRates(t)
	ctx := context.Background()

	t.Run("新增后再更新同一币种对", func(t *testing.T) {
		_, err := svc.Upsert(ctx, &UpsertRateRequest{From: "usd", To: "mwk", BaseRate: dec("1700"), MarkupPercentage: dec("1.5")})
		require.NoError(t, err)
		_, err = svc.Upsert(ctx, &UpsertRateRequest{From: "USD", To: "MWK", BaseRate: dec("1750")})
		require.NoError(t, err)

		got, err := repository.NewExchangeRateRepository(db).Get(ctx, "USD", "MWK")
		require.NoError(t, err)
		assert.True(t, got.BaseRate.Equal(dec("1750")))
		assert.True(t, got.MarkupPercentage.IsZero())
		assert.True(t, got.FetchedAt.Equal(fixedNow))
	})

	tests := []struct {
		name string
		req  UpsertRateRequest
		want error
	}{
		{"相同币种", UpsertRateRequest{From: "USD", To: "usd", BaseRate: dec("1")}, appErrors.ErrInvalidExchangeRate},
		{"汇率为零", UpsertRateRequest{From: "USD", To: "JPY", BaseRate: decimal.Zero}, appErrors.ErrInvalidExchangeRate},
		{"负加价", UpsertRateRequest{From: "USD", To: "JPY", BaseRate: dec("150"), MarkupPercentage: dec("-1")}, appErrors.ErrInvalidExchangeRate},
		{"币种未登记", UpsertRateRequest{From: "USD", To: "EUR", BaseRate: dec("0.9")}, appErrors.ErrCurrencyNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(ctx, &tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRateService_FormatAmount(t *testing.T) {
	svc, _, _ := setupRates(t)
	ctx := context.Background()

	tests := []struct {
		code   string
		amount string
		want   string
	}{
		{"USD", "1234.5", "$1,234.50"},
		{"mwk", "1234567.891", "1,234,567.89 MK"},
		{"JPY", "1234.5", "¥1,235"},
		{"USD", "-12", "-$12.00"},
	}
	for _, tt := range tests {
		t.Run(tt.code+" "+tt.amount, func(t *testing.T) {
			got, err := svc.FormatAmount(ctx, tt.code, dec(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := svc.FormatAmount(ctx, "XXX", dec("1"))
	assert.ErrorIs(t, err, appErrors.ErrCurrencyNotFound)
}

func TestRateService_CheckStaleness(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger.SetLogger(zap.New(core))

	svc, _, reg := setupRates(t)
	ctx := context.Background()

	old := fixedNow.Add(-2 * time.Hour)
	_, err := svc.Upsert(ctx, &UpsertRateRequest{From: "USD", To: "MWK", BaseRate: dec("1700"), FetchedAt: &old})
	require.NoError(t, err)
	_, err = svc.Upsert(ctx, &UpsertRateRequest{From: "USD", To: "JPY", BaseRate: dec("150")})
	require.NoError(t, err)

	stale, err := svc.CheckStaleness(ctx)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "USD", stale[0].From)
	assert.Equal(t, "MWK", stale[0].To)
	assert.Equal(t, 2*time.Hour, stale[0].Age)

	assert.Equal(t, 1, logs.FilterMessage("exchange rate is stale").Len())

	expected := `
# HELP test_stale_exchange_rates Number of exchange rates older than the staleness threshold
# TYPE test_stale_exchange_rates gauge
test_stale_exchange_rates 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_stale_exchange_rates"))
}

func TestRateService_UpsertCurrencyInvalidatesCache(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = client.Close()
	})

	svc, _, _ := setupRates(t)
	require.NoError(t, s.Set(cache.KeyPrefixCurrencies, "[]"))

	_, err := svc.UpsertCurrency(context.Background(), "zar", &UpsertCurrencyRequest{Name: "Rand", Symbol: "R", DecimalPlaces: 2, IsActive: true})
	require.NoError(t, err)
	assert.False(t, s.Exists(cache.KeyPrefixCurrencies))

	_, err = svc.UpsertCurrency(context.Background(), "ZA", &UpsertCurrencyRequest{Name: "bad"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidParams)
}

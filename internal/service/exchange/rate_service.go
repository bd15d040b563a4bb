// Package exchange 提供币种与汇率维护服务
package exchange

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
	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
	"github.com/dumeirei/marketplace-pricing/internal/service/settings"
)

// RateService 汇率服务
type RateService struct {
	currencyRepo *repository.CurrencyRepository
	rateRepo     *repository.ExchangeRateRepository
	settings     *settings.Provider
	metrics      *metrics.Metrics
	now          func() time.Time
}

// NewRateService 创建汇率服务
func NewRateService(db *gorm.DB, provider *settings.Provider, m *metrics.Metrics) *RateService {
	return &RateService{
		currencyRepo: repository.NewCurrencyRepository(db),
		rateRepo:     repository.NewExchangeRateRepository(db),
		settings:     provider,
		metrics:      m,
		now:          time.Now,
	}
}

// UpsertRateRequest 写入有向汇率
type UpsertRateRequest struct {
	From             string          `json:"from_currency" binding:"required,len=3"`
	To               string          `json:"to_currency" binding:"required,len=3"`
	BaseRate         decimal.Decimal `json:"base_rate"`
	MarkupPercentage decimal.Decimal `json:"markup_percentage"`
	FetchedAt        *time.Time      `json:"fetched_at"`
}

// UpsertCurrencyRequest 写入币种展示规则
type UpsertCurrencyRequest struct {
	Name          string `json:"name" binding:"required,max=50"`
	Symbol        string `json:"symbol" binding:"max=10"`
	DecimalPlaces int32  `json:"decimal_places" binding:"min=0,max=8"`
	SymbolBefore  bool   `json:"symbol_before"`
	IsActive      bool   `json:"is_active"`
}

// StaleRate 过期汇率
type StaleRate struct {
	From      string        `json:"from_currency"`
	To        string        `json:"to_currency"`
	FetchedAt time.Time     `json:"fetched_at"`
	Age       time.Duration `json:"age"`
}

// Upsert 新增或更新汇率，两端币种必须已登记
func (s *RateService) Upsert(ctx context.Context, req *UpsertRateRequest) (*models.ExchangeRate, error) {
	from := strings.ToUpper(strings.TrimSpace(req.From))
	to := strings.ToUpper(strings.TrimSpace(req.To))
	if from == to {
		return nil, appErrors.ErrInvalidExchangeRate.WithMessage("from_currency and to_currency must differ")
	}

	fetchedAt := s.now()
	if req.FetchedAt != nil {
		fetchedAt = *req.FetchedAt
	}
	rate := pricing.ExchangeRate{
		From:             from,
		To:               to,
		BaseRate:         req.BaseRate,
		MarkupPercentage: req.MarkupPercentage,
		FetchedAt:        fetchedAt,
	}
	if err := rate.Validate(); err != nil {
		return nil, appErrors.ErrInvalidExchangeRate.WithError(err)
	}

	for _, code := range []string{from, to} {
		if _, err := s.currencyRepo.GetByCode(ctx, code); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, appErrors.ErrCurrencyNotFound.WithMessage("币种未登记: " + code)
			}
			return nil, appErrors.ErrDatabaseError.WithError(err)
		}
	}

	row := &models.ExchangeRate{
		FromCurrency:     from,
		ToCurrency:       to,
		BaseRate:         req.BaseRate,
		MarkupPercentage: req.MarkupPercentage,
		FetchedAt:        fetchedAt,
	}
	if err := s.rateRepo.Upsert(ctx, row); err != nil {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	logger.Info("exchange rate updated",
		logger.CurrencyPair(from, to),
		logger.Amount("effective_rate", rate.EffectiveRate()),
	)
	return row, nil
}

// UpsertCurrency 新增或更新币种，并清除币种缓存
func (s *RateService) UpsertCurrency(ctx context.Context, code string, req *UpsertCurrencyRequest) (*models.Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return nil, appErrors.ErrInvalidParams.WithMessage("currency code must be 3 letters")
	}

	currency := &models.Currency{
		Code:          code,
		Name:          req.Name,
		Symbol:        req.Symbol,
		DecimalPlaces: req.DecimalPlaces,
		SymbolBefore:  req.SymbolBefore,
		IsActive:      req.IsActive,
	}
	if err := s.currencyRepo.Upsert(ctx, currency); err != nil {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	if cache.GetClient() != nil {
		if err := cache.Delete(ctx, cache.KeyPrefixCurrencies); err != nil {
			logger.Warn("currency cache invalidation failed", logger.Err(err))
		}
	}
	logger.Info("currency updated", logger.Currency(code))
	return currency, nil
}

// FormatAmount 按币种展示规则格式化金额
func (s *RateService) FormatAmount(ctx context.Context, code string, amount decimal.Decimal) (string, error) {
	c, err := s.currencyRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", appErrors.ErrCurrencyNotFound
		}
		return "", appErrors.ErrDatabaseError.WithError(err)
	}
	return c.ToPricing().Format(amount), nil
}

// CheckStaleness 检查超过阈值未更新的汇率，更新汇率年龄指标
func (s *RateService) CheckStaleness(ctx context.Context) ([]StaleRate, error) {
	maxAge := s.settings.Current().RateStaleAfter
	now := s.now()

	rows, err := s.rateRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	rates := make([]pricing.ExchangeRate, 0, len(rows))
	for _, r := range rows {
		pr := r.ToPricing()
		rates = append(rates, pr)
		s.metrics.SetExchangeRateAge(pr.From+"/"+pr.To, now.Sub(pr.FetchedAt))
	}

	conv, err := pricing.NewConverter(rates, nil)
	if err != nil {
		return nil, err
	}

	stale := make([]StaleRate, 0)
	for _, r := range conv.StaleRates(now, maxAge) {
		age := now.Sub(r.FetchedAt)
		stale = append(stale, StaleRate{From: r.From, To: r.To, FetchedAt: r.FetchedAt, Age: age})
		logger.Warn("exchange rate is stale",
			logger.CurrencyPair(r.From, r.To),
			logger.Duration("age", age),
			logger.Duration("max_age", maxAge),
		)
	}
	s.metrics.SetStaleExchangeRates(len(stale))
	return stale, nil
}

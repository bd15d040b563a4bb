// Package pricing 提供报价服务：加载卖家加价、汇率、促销与优惠券后交给定价引擎计算
package pricing

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
	"github.com/dumeirei/marketplace-pricing/internal/pricing"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
	"github.com/dumeirei/marketplace-pricing/internal/service/settings"
)

const currencyCacheTTL = 5 * time.Minute

// QuoteService 报价服务
type QuoteService struct {
	sellerRepo    *repository.SellerRepository
	markupRepo    *repository.SellerPriceMarkupRepository
	templateRepo  *repository.MarkupTemplateRepository
	currencyRepo  *repository.CurrencyRepository
	rateRepo      *repository.ExchangeRateRepository
	promotionRepo *repository.PromotionRepository
	couponRepo    *repository.CouponRepository
	usageRepo     *repository.CouponUsageRepository
	settings      *settings.Provider
	metrics       *metrics.Metrics
	now           func() time.Time
}

// NewQuoteService 创建报价服务
func NewQuoteService(db *gorm.DB, provider *settings.Provider, m *metrics.Metrics) *QuoteService {
	return &QuoteService{
		sellerRepo:    repository.NewSellerRepository(db),
		markupRepo:    repository.NewSellerPriceMarkupRepository(db),
		templateRepo:  repository.NewMarkupTemplateRepository(db),
		currencyRepo:  repository.NewCurrencyRepository(db),
		rateRepo:      repository.NewExchangeRateRepository(db),
		promotionRepo: repository.NewPromotionRepository(db),
		couponRepo:    repository.NewCouponRepository(db),
		usageRepo:     repository.NewCouponUsageRepository(db),
		settings:      provider,
		metrics:       m,
		now:           time.Now,
	}
}

// QuoteRequest 单个商品报价请求，商品信息由目录服务提供
type QuoteRequest struct {
	ProductID       int64           `json:"product_id" binding:"required,gt=0"`
	SellerID        int64           `json:"seller_id" binding:"required,gt=0"`
	CategoryID      int64           `json:"category_id"`
	BrandID         int64           `json:"brand_id"`
	TagIDs          []int64         `json:"tag_ids"`
	BasePrice       decimal.Decimal `json:"base_price"`
	Currency        string          `json:"currency"`
	DisplayCurrency string          `json:"display_currency"`
	CouponCode      string          `json:"coupon_code"`
	UserID          *int64          `json:"user_id"`
}

// CartItem 购物车行
type CartItem struct {
	ProductID  int64           `json:"product_id" binding:"required,gt=0"`
	SellerID   int64           `json:"seller_id" binding:"required,gt=0"`
	CategoryID int64           `json:"category_id"`
	BrandID    int64           `json:"brand_id"`
	TagIDs     []int64         `json:"tag_ids"`
	BasePrice  decimal.Decimal `json:"base_price"`
	Currency   string          `json:"currency"`
}

// CartRequest 购物车报价请求，所有行使用同一展示币种；优惠券按整单计算一次
type CartRequest struct {
	Items           []CartItem `json:"items" binding:"required,min=1,dive"`
	DisplayCurrency string     `json:"display_currency"`
	CouponCode      string     `json:"coupon_code"`
	UserID          *int64     `json:"user_id"`
}

// CartQuote 购物车报价结果
type CartQuote struct {
	Items []pricing.PriceResult `json:"items"`
	Total pricing.PriceResult   `json:"total"`
}

// quoteScope 一次报价调用内共享的只读数据
type quoteScope struct {
	display         string
	engine          *pricing.Engine
	defaultTemplate *pricing.MarkupTemplate
	coupon          *pricing.Coupon
	user            *pricing.CouponUser
	sellers         map[int64]*sellerData
}

type sellerData struct {
	seller     *models.Seller
	markups    pricing.SellerMarkups
	promotions []pricing.Promotion
}

// Quote 计算单个商品的展示价格
func (s *QuoteService) Quote(ctx context.Context, req *QuoteRequest) (*pricing.PriceResult, error) {
	ctx, span := tracing.Start(ctx, "pricing.Quote",
		tracing.WithSellerID(req.SellerID),
		tracing.WithProductID(req.ProductID),
	)
	defer span.End()
	start := time.Now()

	scope, err := s.newScope(ctx, req.DisplayCurrency, req.CouponCode, req.UserID)
	if err != nil {
		s.fail(ctx, req.DisplayCurrency, start, err)
		return nil, err
	}
	span.SetAttributes(tracing.WithDisplayCurrency(scope.display))

	result, err := s.priceItem(ctx, scope, CartItem{
		ProductID:  req.ProductID,
		SellerID:   req.SellerID,
		CategoryID: req.CategoryID,
		BrandID:    req.BrandID,
		TagIDs:     req.TagIDs,
		BasePrice:  req.BasePrice,
		Currency:   req.Currency,
	})
	if err != nil {
		s.fail(ctx, scope.display, start, err)
		return nil, err
	}

	s.metrics.RecordPriceQuote(scope.display, "ok", time.Since(start))
	return &result, nil
}

// QuoteCart 逐行计算促销后价格，优惠券对整单小计只应用一次并按行分摊
func (s *QuoteService) QuoteCart(ctx context.Context, req *CartRequest) (*CartQuote, error) {
	ctx, span := tracing.Start(ctx, "pricing.QuoteCart", tracing.WithOperation("cart"))
	defer span.End()
	start := time.Now()

	scope, err := s.newScope(ctx, req.DisplayCurrency, req.CouponCode, req.UserID)
	if err != nil {
		s.fail(ctx, req.DisplayCurrency, start, err)
		return nil, err
	}

	reqs := make([]pricing.PriceRequest, 0, len(req.Items))
	for _, item := range req.Items {
		pr, err := s.buildRequest(ctx, scope, item)
		if err != nil {
			s.fail(ctx, scope.display, start, err)
			return nil, err
		}
		reqs = append(reqs, pr)
	}

	cart, err := scope.engine.PriceCart(reqs, scope.coupon, scope.user)
	if err != nil {
		err = mapEngineError(err, 0)
		s.fail(ctx, scope.display, start, err)
		return nil, err
	}

	items := make([]pricing.PriceResult, 0, len(cart.Lines))
	for i, line := range cart.Lines {
		s.observe(ctx, req.Items[i], line.Breakdown)
		items = append(items, line.Result)
	}
	if cart.CouponApplied {
		logger.Debug("cart coupon applied",
			logger.CouponCode(scope.coupon.Code),
			logger.Amount("coupon_discount", cart.CouponDiscount),
		)
	}

	s.metrics.RecordPriceQuote(scope.display, "ok", time.Since(start))
	return &CartQuote{Items: items, Total: cart.Total}, nil
}

func (s *QuoteService) fail(ctx context.Context, display string, start time.Time, err error) {
	tracing.SetError(ctx, err)
	status := "error"
	if errors.Is(err, appErrors.ErrPricingUnavailable) {
		status = "unavailable"
	}
	s.metrics.RecordPriceQuote(strings.ToUpper(display), status, time.Since(start))
}

func (s *QuoteService) newScope(ctx context.Context, displayCurrency, couponCode string, userID *int64) (*quoteScope, error) {
	snap := s.settings.Current()

	display := strings.ToUpper(strings.TrimSpace(displayCurrency))
	if display == "" {
		display = snap.DefaultCurrency
	}

	conv, err := s.loadConverter(ctx)
	if err != nil {
		return nil, err
	}

	scope := &quoteScope{
		display: display,
		engine:  pricing.NewEngine(conv, pricing.WithTieBreak(snap.TieBreak), pricing.WithClock(s.now)),
		sellers: make(map[int64]*sellerData),
	}

	if tpl, err := s.templateRepo.GetDefault(ctx); err == nil {
		scope.defaultTemplate = s.toTemplate(tpl)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	if userID != nil {
		scope.user = &pricing.CouponUser{UserID: *userID}
	}

	if code := strings.TrimSpace(couponCode); code != "" {
		coupon, err := s.couponRepo.GetByCode(ctx, code)
		switch {
		case err == nil:
			pc := coupon.ToPricing()
			scope.coupon = &pc
			if scope.user != nil {
				count, err := s.usageRepo.CountByUser(ctx, coupon.ID, scope.user.UserID)
				if err != nil {
					return nil, appErrors.ErrDatabaseError.WithError(err)
				}
				scope.user.UsageCount = int(count)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// 无效券码按未使用处理
			logger.Debug("coupon not found during quote", logger.CouponCode(code))
		default:
			return nil, appErrors.ErrDatabaseError.WithError(err)
		}
	}

	return scope, nil
}

func (s *QuoteService) priceItem(ctx context.Context, scope *quoteScope, item CartItem) (pricing.PriceResult, error) {
	pr, err := s.buildRequest(ctx, scope, item)
	if err != nil {
		return pricing.PriceResult{}, err
	}

	result, bd, err := scope.engine.Price(pr)
	if err != nil {
		return pricing.PriceResult{}, mapEngineError(err, item.SellerID)
	}

	s.observe(ctx, item, bd)
	return result, nil
}

// buildRequest 加载卖家数据并组装单行定价输入
func (s *QuoteService) buildRequest(ctx context.Context, scope *quoteScope, item CartItem) (pricing.PriceRequest, error) {
	if item.BasePrice.IsNegative() {
		return pricing.PriceRequest{}, appErrors.ErrInvalidParams.WithMessage("base_price must not be negative")
	}

	data, err := s.loadSeller(ctx, scope, item.SellerID)
	if err != nil {
		return pricing.PriceRequest{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(item.Currency))
	if currency == "" {
		currency = data.seller.Currency
	}
	if currency != strings.ToUpper(data.seller.Currency) {
		return pricing.PriceRequest{}, appErrors.ErrCurrencyMismatch
	}

	return pricing.PriceRequest{
		Product: pricing.Product{
			ID:         item.ProductID,
			SellerID:   item.SellerID,
			CategoryID: item.CategoryID,
			BrandID:    item.BrandID,
			TagIDs:     item.TagIDs,
			BasePrice:  pricing.NewMoney(item.BasePrice, currency),
		},
		Seller:          data.markups,
		DisplayCurrency: scope.display,
		Promotions:      data.promotions,
		Coupon:          scope.coupon,
		User:            scope.user,
	}, nil
}

// observe 记录加价来源指标，区间未覆盖时告警
func (s *QuoteService) observe(ctx context.Context, item CartItem, bd pricing.Breakdown) {
	s.metrics.RecordMarkupResolution(string(bd.Markup.Source), bd.Markup.CoverageMiss)
	if bd.Markup.CoverageMiss {
		logger.Warn("markup coverage gap",
			logger.SellerID(item.SellerID),
			logger.ProductID(item.ProductID),
			logger.Currency(bd.BasePrice.Currency),
			logger.Amount("base_price", item.BasePrice),
		)
	}
	tracing.AddEvent(ctx, "priced",
		tracing.WithProductID(item.ProductID),
		tracing.WithMarkupSource(string(bd.Markup.Source)),
	)
}

func mapEngineError(err error, sellerID int64) error {
	var rnf *pricing.RateNotFoundError
	if errors.As(err, &rnf) {
		logger.Error("exchange rate missing", logger.CurrencyPair(rnf.From, rnf.To), logger.SellerID(sellerID))
		return appErrors.ErrPricingUnavailable.WithError(err)
	}
	if errors.Is(err, pricing.ErrCurrencyMismatch) {
		return appErrors.ErrCurrencyMismatch.WithError(err)
	}
	return appErrors.ErrInternalError.WithError(err)
}

func (s *QuoteService) loadSeller(ctx context.Context, scope *quoteScope, sellerID int64) (*sellerData, error) {
	if data, ok := scope.sellers[sellerID]; ok {
		return data, nil
	}

	seller, err := s.sellerRepo.GetByID(ctx, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErrors.ErrSellerNotFound
		}
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	rows, err := s.markupRepo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}
	overrides := make([]pricing.SellerMarkupRange, 0, len(rows))
	for _, r := range rows {
		overrides = append(overrides, r.ToPricing())
	}

	markups := pricing.SellerMarkups{
		SellerID:        seller.ID,
		Currency:        seller.Currency,
		Overrides:       overrides,
		DefaultTemplate: scope.defaultTemplate,
	}
	if seller.MarkupTemplateID != nil {
		if scope.defaultTemplate != nil && scope.defaultTemplate.ID == *seller.MarkupTemplateID {
			markups.Template = scope.defaultTemplate
		} else {
			tpl, err := s.templateRepo.GetByID(ctx, *seller.MarkupTemplateID)
			switch {
			case err == nil:
				markups.Template = s.toTemplate(tpl)
			case errors.Is(err, gorm.ErrRecordNotFound):
				logger.Warn("seller references missing markup template", logger.SellerID(seller.ID), logger.TemplateID(*seller.MarkupTemplateID))
			default:
				return nil, appErrors.ErrDatabaseError.WithError(err)
			}
		}
	}

	promos, err := s.promotionRepo.ListActiveForSeller(ctx, sellerID, s.now())
	if err != nil {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}
	promotions := make([]pricing.Promotion, 0, len(promos))
	for _, p := range promos {
		promotions = append(promotions, p.ToPricing())
	}

	data := &sellerData{seller: seller, markups: markups, promotions: promotions}
	scope.sellers[sellerID] = data
	return data, nil
}

func (s *QuoteService) toTemplate(tpl *models.MarkupTemplate) *pricing.MarkupTemplate {
	pt, err := tpl.ToPricing()
	if err != nil {
		logger.Error("invalid markup template ranges", logger.TemplateID(tpl.ID), logger.Err(err))
		return nil
	}
	return pt
}

// loadConverter 读取最新汇率；币种展示规则可走 Redis 缓存
func (s *QuoteService) loadConverter(ctx context.Context) (*pricing.Converter, error) {
	currencies, err := s.loadCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.rateRepo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}

	rates := make([]pricing.ExchangeRate, 0, len(rows))
	for _, r := range rows {
		rates = append(rates, r.ToPricing())
	}
	curs := make([]pricing.Currency, 0, len(currencies))
	for _, c := range currencies {
		curs = append(curs, c.ToPricing())
	}

	conv, err := pricing.NewConverter(rates, curs)
	if err != nil {
		logger.Error("invalid exchange rate data", logger.Err(err))
		return nil, appErrors.ErrPricingUnavailable.WithError(err)
	}
	return conv, nil
}

func (s *QuoteService) loadCurrencies(ctx context.Context) ([]models.Currency, error) {
	useCache := cache.GetClient() != nil

	var currencies []models.Currency
	if useCache {
		err := cache.Get(ctx, cache.KeyPrefixCurrencies, &currencies)
		if err == nil {
			s.metrics.RecordCacheHit("currencies")
			return currencies, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn("currency cache read failed", logger.Err(err))
		}
		s.metrics.RecordCacheMiss("currencies")
	}

	rows, err := s.currencyRepo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.ErrDatabaseError.WithError(err)
	}
	currencies = make([]models.Currency, 0, len(rows))
	for _, c := range rows {
		currencies = append(currencies, *c)
	}

	if useCache {
		if err := cache.Set(ctx, cache.KeyPrefixCurrencies, currencies, currencyCacheTTL); err != nil {
			logger.Warn("currency cache write failed", logger.Err(err))
		}
	}
	return currencies, nil
}

package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/common/cache"
	"github.com/dumeirei/marketplace-pricing/internal/common/config"
	"github.com/dumeirei/marketplace-pricing/internal/common/metrics"
	adminHandler "github.com/dumeirei/marketplace-pricing/internal/handler/admin"
	marketingHandler "github.com/dumeirei/marketplace-pricing/internal/handler/marketing"
	pricingHandler "github.com/dumeirei/marketplace-pricing/internal/handler/pricing"
	"github.com/dumeirei/marketplace-pricing/internal/middleware"
	"github.com/dumeirei/marketplace-pricing/internal/repository"
	"github.com/dumeirei/marketplace-pricing/internal/service/exchange"
	"github.com/dumeirei/marketplace-pricing/internal/service/marketing"
	"github.com/dumeirei/marketplace-pricing/internal/service/markup"
	pricingService "github.com/dumeirei/marketplace-pricing/internal/service/pricing"
	"github.com/dumeirei/marketplace-pricing/internal/service/settings"
)

// application 路由依赖的服务集合，调度器复用同一实例
type application struct {
	settings      *settings.Provider
	rateService   *exchange.RateService
	markupService *markup.MarkupService
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	m *metrics.Metrics,
) *application {
	// 初始化服务
	provider := settings.NewProvider(repository.NewSettingRepository(db), &cfg.Pricing)
	quoteSvc := pricingService.NewQuoteService(db, provider, m)
	rateSvc := exchange.NewRateService(db, provider, m)
	markupSvc := markup.NewMarkupService(db, m)

	var locker *cache.Locker
	if redisClient != nil {
		locker = cache.NewLocker(redisClient)
	}
	redemptionSvc := marketing.NewRedemptionService(
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
		locker,
		cfg.Pricing.RedemptionLockTTL,
		m,
	)

	// 初始化处理器
	priceH := pricingHandler.NewPriceHandler(quoteSvc, rateSvc)
	redemptionH := marketingHandler.NewRedemptionHandler(redemptionSvc)
	adminH := adminHandler.NewPricingHandler(markupSvc, rateSvc)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.AccessLog(logger))
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(cfg.Tracing.ServiceName, "/health", "/ping", "/ready", cfg.Metrics.Path))
	}
	if m != nil {
		r.Use(m.Middleware())
		r.GET(cfg.Metrics.Path, m.Handler())
	}

	// 健康检查
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(
		databaseProbe(db),
		redisProbe(redisClient),
		settingsProbe(provider, 3*cfg.Pricing.SettingsRefreshInterval),
	))

	// Swagger 文档只在调试模式暴露
	if cfg.IsDebug() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	if cfg.RateLimit.Enabled && redisClient != nil {
		v1.Use(middleware.IPRateLimit(redisClient, cfg.RateLimit.RequestsPerMinute, time.Minute))
	}
	{
		v1.POST("/prices/quote", priceH.Quote)
		v1.POST("/prices/cart", priceH.QuoteCart)
		v1.GET("/currencies/:code/format", priceH.FormatAmount)
		v1.POST("/coupons/redeem", redemptionH.Redeem)
	}

	// 管理端，鉴权由网关完成
	admin := r.Group("/api/admin")
	admin.Use(middleware.NoCache())
	{
		admin.PUT("/sellers/:id/markups", adminH.ReplaceSellerMarkups)
		admin.PUT("/markup-templates/:id/ranges", adminH.ReplaceTemplateRanges)
		admin.POST("/markup-templates/:id/default", adminH.SetDefaultTemplate)
		admin.GET("/markup-templates/:id/coverage", adminH.TemplateCoverage)
		admin.GET("/markup-coverage", adminH.AuditCoverage)
		admin.PUT("/exchange-rates", adminH.UpsertExchangeRate)
		admin.GET("/exchange-rates/stale", adminH.StaleExchangeRates)
		admin.PUT("/currencies/:code", adminH.UpsertCurrency)
	}

	return &application{
		settings:      provider,
		rateService:   rateSvc,
		markupService: markupSvc,
	}
}

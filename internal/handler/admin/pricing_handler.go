// Package admin 提供管理端定价配置的 HTTP Handler
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-pricing/internal/common/handler"
	"github.com/dumeirei/marketplace-pricing/internal/common/response"
	exchangeService "github.com/dumeirei/marketplace-pricing/internal/service/exchange"
	markupService "github.com/dumeirei/marketplace-pricing/internal/service/markup"
)

// PricingHandler 定价配置处理器
type PricingHandler struct {
	markupService *markupService.MarkupService
	rateService   *exchangeService.RateService
}

// NewPricingHandler 创建定价配置处理器
func NewPricingHandler(markupSvc *markupService.MarkupService, rateSvc *exchangeService.RateService) *PricingHandler {
	return &PricingHandler{
		markupService: markupSvc,
		rateService:   rateSvc,
	}
}

// ReplaceSellerMarkups 替换卖家加价区间
// @Summary 替换卖家加价区间
// @Tags 管理-加价
// @Accept json
// @Produce json
// @Param id path int true "卖家ID"
// @Param request body markup.ReplaceSellerMarkupsRequest true "区间列表"
// @Success 200 {object} response.Response{data=markup.CoverageReport}
// @Router /api/admin/sellers/{id}/markups [put]
func (h *PricingHandler) ReplaceSellerMarkups(c *gin.Context) {
	sellerID, ok := handler.ParseID(c, "卖家")
	if !ok {
		return
	}
	var req markupService.ReplaceSellerMarkupsRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	report, err := h.markupService.ReplaceSellerMarkups(c.Request.Context(), sellerID, &req)
	handler.MustSucceed(c, err, report)
}

// ReplaceTemplateRanges 替换模板区间
// @Summary 替换模板区间
// @Tags 管理-加价
// @Accept json
// @Produce json
// @Param id path int true "模板ID"
// @Param request body markup.ReplaceTemplateRangesRequest true "区间列表"
// @Success 200 {object} response.Response{data=markup.CoverageReport}
// @Router /api/admin/markup-templates/{id}/ranges [put]
func (h *PricingHandler) ReplaceTemplateRanges(c *gin.Context) {
	templateID, ok := handler.ParseID(c, "加价模板")
	if !ok {
		return
	}
	var req markupService.ReplaceTemplateRangesRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	report, err := h.markupService.ReplaceTemplateRanges(c.Request.Context(), templateID, &req)
	handler.MustSucceed(c, err, report)
}

// SetDefaultTemplate 设为平台默认模板
// @Summary 设为平台默认模板
// @Tags 管理-加价
// @Produce json
// @Param id path int true "模板ID"
// @Success 200 {object} response.Response
// @Router /api/admin/markup-templates/{id}/default [post]
func (h *PricingHandler) SetDefaultTemplate(c *gin.Context) {
	templateID, ok := handler.ParseID(c, "加价模板")
	if !ok {
		return
	}

	if handler.HandleError(c, h.markupService.SetDefaultTemplate(c.Request.Context(), templateID)) {
		return
	}
	response.SuccessWithMessage(c, "设置成功", nil)
}

// TemplateCoverage 查看模板覆盖情况
// @Summary 查看模板覆盖情况
// @Tags 管理-加价
// @Produce json
// @Param id path int true "模板ID"
// @Success 200 {object} response.Response{data=markup.CoverageReport}
// @Router /api/admin/markup-templates/{id}/coverage [get]
func (h *PricingHandler) TemplateCoverage(c *gin.Context) {
	templateID, ok := handler.ParseID(c, "加价模板")
	if !ok {
		return
	}

	report, err := h.markupService.TemplateCoverage(c.Request.Context(), templateID)
	handler.MustSucceed(c, err, report)
}

// AuditCoverage 巡检全部加价表
// @Summary 巡检全部加价表
// @Tags 管理-加价
// @Produce json
// @Success 200 {object} response.Response{data=response.ListData}
// @Router /api/admin/markup-coverage [get]
func (h *PricingHandler) AuditCoverage(c *gin.Context) {
	reports, err := h.markupService.AuditCoverage(c.Request.Context())
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessList(c, reports, int64(len(reports)))
}

// UpsertExchangeRate 写入汇率
// @Summary 写入汇率
// @Tags 管理-汇率
// @Accept json
// @Produce json
// @Param request body exchange.UpsertRateRequest true "汇率"
// @Success 200 {object} response.Response{data=models.ExchangeRate}
// @Router /api/admin/exchange-rates [put]
func (h *PricingHandler) UpsertExchangeRate(c *gin.Context) {
	var req exchangeService.UpsertRateRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	rate, err := h.rateService.Upsert(c.Request.Context(), &req)
	handler.MustSucceed(c, err, rate)
}

// StaleExchangeRates 查看过期汇率
// @Summary 查看过期汇率
// @Tags 管理-汇率
// @Produce json
// @Success 200 {object} response.Response{data=response.ListData}
// @Router /api/admin/exchange-rates/stale [get]
func (h *PricingHandler) StaleExchangeRates(c *gin.Context) {
	stale, err := h.rateService.CheckStaleness(c.Request.Context())
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessList(c, stale, int64(len(stale)))
}

// UpsertCurrency 写入币种
// @Summary 写入币种
// @Tags 管理-汇率
// @Accept json
// @Produce json
// @Param code path string true "币种代码"
// @Param request body exchange.UpsertCurrencyRequest true "币种"
// @Success 200 {object} response.Response{data=models.Currency}
// @Router /api/admin/currencies/{code} [put]
func (h *PricingHandler) UpsertCurrency(c *gin.Context) {
	code, ok := handler.ParseCurrencyCode(c, "code")
	if !ok {
		return
	}
	var req exchangeService.UpsertCurrencyRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	currency, err := h.rateService.UpsertCurrency(c.Request.Context(), code, &req)
	handler.MustSucceed(c, err, currency)
}

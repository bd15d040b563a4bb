// Package pricing 提供报价相关的 HTTP Handler
package pricing

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/dumeirei/marketplace-pricing/internal/common/handler"
	"github.com/dumeirei/marketplace-pricing/internal/common/response"
	exchangeService "github.com/dumeirei/marketplace-pricing/internal/service/exchange"
	pricingService "github.com/dumeirei/marketplace-pricing/internal/service/pricing"
)

// PriceHandler 报价处理器
type PriceHandler struct {
	quoteService *pricingService.QuoteService
	rateService  *exchangeService.RateService
}

// NewPriceHandler 创建报价处理器
func NewPriceHandler(quoteSvc *pricingService.QuoteService, rateSvc *exchangeService.RateService) *PriceHandler {
	return &PriceHandler{
		quoteService: quoteSvc,
		rateService:  rateSvc,
	}
}

// Quote 单个商品报价
// @Summary 单个商品报价
// @Tags 定价
// @Accept json
// @Produce json
// @Param request body pricing.QuoteRequest true "报价请求"
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response "汇率缺失"
// @Router /api/v1/prices/quote [post]
func (h *PriceHandler) Quote(c *gin.Context) {
	var req pricingService.QuoteRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.quoteService.Quote(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// QuoteCart 购物车报价
// @Summary 购物车报价
// @Tags 定价
// @Accept json
// @Produce json
// @Param request body pricing.CartRequest true "购物车报价请求"
// @Success 200 {object} response.Response{data=pricing.CartQuote}
// @Failure 503 {object} response.Response "汇率缺失"
// @Router /api/v1/prices/cart [post]
func (h *PriceHandler) QuoteCart(c *gin.Context) {
	var req pricingService.CartRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	result, err := h.quoteService.QuoteCart(c.Request.Context(), &req)
	handler.MustSucceed(c, err, result)
}

// FormatAmount 按币种格式化金额
// @Summary 按币种格式化金额
// @Tags 定价
// @Produce json
// @Param code path string true "币种代码"
// @Param amount query string true "金额"
// @Success 200 {object} response.Response
// @Router /api/v1/currencies/{code}/format [get]
func (h *PriceHandler) FormatAmount(c *gin.Context) {
	code, ok := handler.ParseCurrencyCode(c, "code")
	if !ok {
		return
	}
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		response.BadRequest(c, "无效的金额")
		return
	}

	formatted, err := h.rateService.FormatAmount(c.Request.Context(), code, amount)
	if handler.HandleError(c, err) {
		return
	}
	response.Success(c, gin.H{
		"currency":  code,
		"amount":    amount.String(),
		"formatted": formatted,
	})
}

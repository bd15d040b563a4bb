// Package marketing 提供优惠券核销的 HTTP Handler
package marketing

import (
	"github.com/gin-gonic/gin"

	"github.com/dumeirei/marketplace-pricing/internal/common/handler"
	"github.com/dumeirei/marketplace-pricing/internal/common/response"
	marketingService "github.com/dumeirei/marketplace-pricing/internal/service/marketing"
)

// RedemptionHandler 核销处理器
type RedemptionHandler struct {
	redemptionService *marketingService.RedemptionService
}

// NewRedemptionHandler 创建核销处理器
func NewRedemptionHandler(svc *marketingService.RedemptionService) *RedemptionHandler {
	return &RedemptionHandler{redemptionService: svc}
}

// Redeem 核销优惠券
// @Summary 核销优惠券
// @Description 下单成功后调用，同一订单重复调用返回 9002
// @Tags 营销-优惠券
// @Accept json
// @Produce json
// @Param request body marketing.RedeemRequest true "核销请求"
// @Success 200 {object} response.Response{data=models.CouponUsage}
// @Router /api/v1/coupons/redeem [post]
func (h *RedemptionHandler) Redeem(c *gin.Context) {
	var req marketingService.RedeemRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	usage, err := h.redemptionService.Redeem(c.Request.Context(), &req)
	if handler.HandleError(c, err) {
		return
	}
	response.SuccessWithMessage(c, "核销成功", usage)
}

package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dumeirei/marketplace-pricing/internal/common/response"
)

const (
	// ContextKeyRequestID gin 上下文中的请求 ID 键
	ContextKeyRequestID = "request_id"
	// HeaderRequestID 请求 ID 请求头，网关下发时沿用
	HeaderRequestID = "X-Request-ID"

	maxRequestIDLen = 64
)

// RequestID 沿用上游下发的请求 ID，缺失或过长时重新生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID 获取请求 ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// Recovery 捕获 panic 并返回不含内部信息的 500
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			logger.Error("Panic recovered",
				zap.String("request_id", GetRequestID(c)),
				zap.String("route", c.FullPath()),
				zap.Any("error", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			c.Abort()
			response.InternalError(c, "服务器内部错误")
		}()
		c.Next()
	}
}

// NoCache 禁止客户端与代理缓存，报价随汇率与促销变化，后台数据需实时
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}

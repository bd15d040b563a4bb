// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// redacted 被脱敏的查询参数取值
const redacted = "***"

// LoggingConfig 访问日志配置，不记录请求体与响应体，报价明细属于内部数据
type LoggingConfig struct {
	Logger *zap.Logger
	// SkipPaths 不记录的路径，如健康检查与指标抓取
	SkipPaths []string
	// RedactParams 查询串中需要脱敏的参数，券码可被他人直接使用
	RedactParams []string
}

// DefaultLoggingConfig 默认访问日志配置
func DefaultLoggingConfig(logger *zap.Logger) *LoggingConfig {
	return &LoggingConfig{
		Logger:       logger,
		SkipPaths:    []string{"/health", "/ping", "/ready", "/metrics"},
		RedactParams: []string{"coupon_code", "code"},
	}
}

// Logging 访问日志中间件：5xx 记 Error，4xx 记 Warn，其余记 Info
func Logging(cfg *LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", GetRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		}
		if q := redactQuery(c.Request.URL.RawQuery, cfg.RedactParams); q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			cfg.Logger.Error("http request", fields...)
		case status >= 400:
			cfg.Logger.Warn("http request", fields...)
		default:
			cfg.Logger.Info("http request", fields...)
		}
	}
}

// AccessLog 使用默认配置的访问日志
func AccessLog(logger *zap.Logger) gin.HandlerFunc {
	return Logging(DefaultLoggingConfig(logger))
}

func redactQuery(raw string, params []string) string {
	if raw == "" || len(params) == 0 {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	changed := false
	for _, p := range params {
		if _, ok := values[p]; ok {
			values.Set(p, redacted)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return values.Encode()
}

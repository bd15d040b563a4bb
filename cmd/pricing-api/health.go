package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/dumeirei/marketplace-pricing/internal/service/settings"
)

const readyTimeout = 3 * time.Second

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp int64             `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// probe 就绪探针；critical 失败时返回 503，否则只标记 degraded
type probe struct {
	name     string
	critical bool
	check    func(ctx context.Context) (string, error)
}

var errDisabled = errors.New("disabled")

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().Unix()})
}

func pingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

// databaseProbe 报价必须读取加价表与汇率，数据库不可用即未就绪
func databaseProbe(db *gorm.DB) probe {
	return probe{name: "database", critical: true, check: func(ctx context.Context) (string, error) {
		sqlDB, err := db.DB()
		if err != nil {
			return "", err
		}
		return "ok", sqlDB.PingContext(ctx)
	}}
}

// redisProbe 只影响币种缓存与核销锁
func redisProbe(client *redis.Client) probe {
	return probe{name: "redis", check: func(ctx context.Context) (string, error) {
		if client == nil {
			return "", errDisabled
		}
		return "ok", client.Ping(ctx).Err()
	}}
}

// settingsProbe 配置快照超过 maxAge 未刷新时标记降级，报价仍使用上一份快照
func settingsProbe(p *settings.Provider, maxAge time.Duration) probe {
	return probe{name: "settings", check: func(ctx context.Context) (string, error) {
		age := time.Since(p.Current().LoadedAt)
		if maxAge > 0 && age > maxAge {
			return "", fmt.Errorf("snapshot is %s old", age.Round(time.Millisecond))
		}
		return "ok", nil
	}}
}

// readyHandler 依次执行探针
func readyHandler(probes ...probe) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(probes))
		ready := true
		for _, p := range probes {
			status, err := p.check(ctx)
			switch {
			case errors.Is(err, errDisabled):
				status = "disabled"
			case err != nil && p.critical:
				status = "error: " + err.Error()
				ready = false
			case err != nil:
				status = "degraded: " + err.Error()
			}
			checks[p.name] = status
		}

		code, text := http.StatusOK, "ready"
		if !ready {
			code, text = http.StatusServiceUnavailable, "not ready"
		}
		c.JSON(code, HealthResponse{Status: text, Timestamp: time.Now().Unix(), Checks: checks})
	}
}

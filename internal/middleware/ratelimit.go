package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/marketplace-pricing/internal/common/cache"
	"github.com/dumeirei/marketplace-pricing/internal/common/response"
)

// RateLimitConfig 固定窗口限流配置
type RateLimitConfig struct {
	RedisClient redis.UniversalClient
	Limit       int
	Window      time.Duration
	// KeyFunc 计数键，默认按客户端 IP 与路由
	KeyFunc func(*gin.Context) string
}

// RateLimit 固定窗口限流，Redis 不可用时放行
func RateLimit(cfg *RateLimitConfig) gin.HandlerFunc {
	keyOf := cfg.KeyFunc
	if keyOf == nil {
		keyOf = func(c *gin.Context) string {
			return cache.BuildKey(cache.KeyPrefixRateLimit, c.ClientIP(), c.FullPath())
		}
	}
	limit := strconv.Itoa(cfg.Limit)

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := keyOf(c)

		var incr *redis.IntCmd
		var ttl *redis.DurationCmd
		_, err := cfg.RedisClient.TxPipelined(ctx, func(p redis.Pipeliner) error {
			incr = p.Incr(ctx, key)
			ttl = p.TTL(ctx, key)
			return nil
		})
		if err != nil {
			c.Next()
			return
		}
		// 新窗口的首个请求负责设置过期时间
		if ttl.Val() < 0 {
			cfg.RedisClient.Expire(ctx, key, cfg.Window)
		}

		count := int(incr.Val())
		c.Header("X-RateLimit-Limit", limit)
		if count > cfg.Limit {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(int(ttl.Val().Seconds())+1))
			c.Abort()
			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.Limit-count))
		c.Next()
	}
}

// IPRateLimit 按客户端 IP 限流，报价与核销接口共用一个计数
func IPRateLimit(client redis.UniversalClient, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		RedisClient: client,
		Limit:       limit,
		Window:      window,
		KeyFunc: func(c *gin.Context) string {
			return cache.BuildKey(cache.KeyPrefixRateLimit, "ip", c.ClientIP())
		},
	})
}

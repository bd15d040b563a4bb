// Package cache 封装 Redis：币种列表缓存、核销锁与限流计数共用一个客户端
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dumeirei/marketplace-pricing/internal/common/config"
)

// 键前缀
const (
	KeyPrefixRateLimit  = "ratelimit:"
	KeyPrefixRedemption = "lock:redeem:"
	KeyPrefixCurrencies = "pricing:currencies"
)

var rdb *redis.Client

// Init 连接 Redis，Ping 失败时返回错误且不替换全局客户端
func Init(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  seconds(cfg.DialTimeout),
		ReadTimeout:  seconds(cfg.ReadTimeout),
		WriteTimeout: seconds(cfg.WriteTimeout),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr(), err)
	}

	rdb = client
	return client, nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// GetClient 返回全局客户端，未连接时为 nil
func GetClient() *redis.Client { return rdb }

// SetClient 替换全局客户端，nil 表示不使用缓存
func SetClient(client *redis.Client) { rdb = client }

// Close 关闭全局客户端
func Close() error {
	if rdb == nil {
		return nil
	}
	err := rdb.Close()
	rdb = nil
	return err
}

// BuildKey 以冒号拼接前缀之后的各段
func BuildKey(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + strings.Join(parts, ":")
}

package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript 持有者令牌一致时才删除
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 带过期时间的互斥锁，用于同一券码同一订单的并发核销
type Locker struct {
	client redis.UniversalClient
}

// NewLocker 创建锁
func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// Acquire 加锁；ok 为 false 表示锁被他人持有
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.NewString()
	ok, err = l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// Release 释放锁，锁已过期或被他人重新持有时不做任何操作
func (l *Locker) Release(ctx context.Context, key, token string) error {
	return unlockScript.Run(ctx, l.client, []string{key}, token).Err()
}

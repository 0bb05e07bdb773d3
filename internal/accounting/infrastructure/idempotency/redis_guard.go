// Package idempotency 基于 Redis SetNX 的幂等键占位
package idempotency

import (
	"context"
	"time"

	"github.com/wyfcoding/primecredit/pkg/cache"
)

const (
	keyPrefix = "prime:idem:"
	// 占位有效期，过期后同键请求重新放行
	reserveTTL = 24 * time.Hour
)

// RedisGuard Redis 幂等守卫
type RedisGuard struct {
	cache *cache.RedisCache
}

func NewRedisGuard(c *cache.RedisCache) *RedisGuard {
	return &RedisGuard{cache: c}
}

// Reserve 占用幂等键，键已存在时返回 false
func (g *RedisGuard) Reserve(ctx context.Context, key string) (bool, error) {
	return g.cache.SetNX(ctx, keyPrefix+key, 1, reserveTTL)
}

// Release 归还占位，操作失败后调用，同键重试重新放行
func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.cache.Delete(ctx, keyPrefix+key)
}

// Package viewcache 账户视图 Redis 缓存
package viewcache

import (
	"context"
	"time"

	"github.com/wyfcoding/primecredit/internal/accounting/application"
	"github.com/wyfcoding/primecredit/pkg/cache"
)

const (
	keyPrefix = "prime:view:"
	// 短 TTL，变更操作提交后还会主动失效
	viewTTL = 3 * time.Second
)

// RedisViewCache 账户视图缓存实现
type RedisViewCache struct {
	cache *cache.RedisCache
}

func New(c *cache.RedisCache) *RedisViewCache {
	return &RedisViewCache{cache: c}
}

func (r *RedisViewCache) Get(ctx context.Context, accountID string) (*application.AccountView, bool) {
	var view application.AccountView
	found, err := r.cache.GetJSON(ctx, keyPrefix+accountID, &view)
	if err != nil || !found {
		return nil, false
	}
	return &view, true
}

func (r *RedisViewCache) Put(ctx context.Context, accountID string, view *application.AccountView) {
	// 缓存写失败不影响读路径
	_ = r.cache.SetJSON(ctx, keyPrefix+accountID, view, viewTTL)
}

func (r *RedisViewCache) Invalidate(ctx context.Context, accountID string) {
	_ = r.cache.Delete(ctx, keyPrefix+accountID)
}

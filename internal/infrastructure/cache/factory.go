package cache

import (
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewDescendantCache builds the cache selected by configuration.
// A disabled cache yields a no-op implementation. When Redis is requested
// but unreachable the in-memory cache is used instead, which is correct for
// a single instance and only stale across instances until the TTL expires.
func NewDescendantCache(cacheCfg config.CacheConfig, redisCfg config.RedisConfig, logger *zap.Logger) DescendantCache {
	if !cacheCfg.Enabled {
		logger.Info("descendant cache disabled")
		return NopDescendantCache{}
	}

	if cacheCfg.UseRedis {
		store, err := NewRedisDescendantCache(RedisOptions{
			Addr:     redisCfg.Addr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}, cacheCfg.KeyPrefix, cacheCfg.DescendantTTL)
		if err == nil {
			logger.Info("using Redis descendant cache", zap.String("addr", redisCfg.Addr()))
			return store
		}
		logger.Warn("Redis unavailable, falling back to in-memory descendant cache", zap.Error(err))
	}

	return NewInMemoryDescendantCache(cacheCfg.DescendantTTL)
}

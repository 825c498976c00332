package cache

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"relay-core/pkg/logger"
)

// MultiLevelCache L1 内存 + L2 Redis
type MultiLevelCache struct {
	local  Cache
	remote Cache
}

func NewMultiLevelCache(local, remote Cache) *MultiLevelCache {
	return &MultiLevelCache{local: local, remote: remote}
}

func (m *MultiLevelCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	// L1 的 TTL 取 L2 的一半
	if err := m.local.Set(ctx, key, value, ttl/2); err != nil {
		logger.Warn("写入 L1 缓存失败", zap.String("key", key), zap.Error(err))
	}
	return m.remote.Set(ctx, key, value, ttl)
}

func (m *MultiLevelCache) Get(ctx context.Context, key string, target any) error {
	// 1. 查 L1
	if err := m.local.Get(ctx, key, target); err == nil {
		return nil
	}

	// 2. 查 L2, 命中后回写 L1
	err := m.remote.Get(ctx, key, target)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			logger.Warn("读取 L2 缓存失败", zap.String("key", key), zap.Error(err))
		}
		return ErrMiss
	}
	_ = m.local.Set(ctx, key, target, time.Minute)
	return nil
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.local.Delete(ctx, key)
	return m.remote.Delete(ctx, key)
}

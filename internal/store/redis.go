package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"relay-core/pkg/crypto_util"
)

const redisKeyPrefix = "relay:state:"

// RedisBackend 状态保存在 Redis, key 为 blake3(逻辑 key), 避免用户 path 过长或包含特殊字符
type RedisBackend struct {
	client *redis.Client
}

func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func redisKey(key string) string {
	return redisKeyPrefix + crypto_util.Blake3Hex([]byte(key))
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}
	return val, true, nil
}

// Apply 使用 MULTI/EXEC 保证整个批次原子生效
func (b *RedisBackend) Apply(ctx context.Context, batch []Write) error {
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, w := range batch {
			if w.Delete {
				pipe.Del(ctx, redisKey(w.Key))
			} else {
				pipe.Set(ctx, redisKey(w.Key), w.Value, 0)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis exec error: %w", err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Store 限流计数存储
// 单实例部署用内存实现，多实例共享 Redis 实现。
// 以接口注入而不是包级单例，方便测试和横向扩容
type Store interface {
	// Incr 窗口内计数加一，返回当前计数。窗口自首次计数起算
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// ============================================================
// Redis 实现
// ============================================================

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf("rate_limit:%s", key)

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return 0, err
	}

	// 首次计数时设置窗口过期
	if count == 1 {
		s.client.Expire(ctx, redisKey, window)
	}

	return count, nil
}

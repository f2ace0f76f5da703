// Package ratelimit はRedisの固定ウィンドウでリクエスト数を数える。
// echoのRateLimiterStoreを満たすので middleware.RateLimiterWithConfig にそのまま渡せる。
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// throttle:{scope}:{identifier}:{window番号}
const KeyThrottle = "throttle:%s:%s:%d"

type RedisStore struct {
	rdb     *redis.Client
	scope   string
	limit   int64
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

func NewRedisStore(rdb *redis.Client, scope string, limit int64, window time.Duration) *RedisStore {
	return &RedisStore{
		rdb:     rdb,
		scope:   scope,
		limit:   limit,
		window:  window,
		timeout: time.Second,
		now:     time.Now,
	}
}

func (s *RedisStore) key(identifier string) string {
	return fmt.Sprintf(KeyThrottle, s.scope, identifier, s.now().UnixNano()/int64(s.window))
}

// INCRして初回だけEXPIRE。上限を超えたらfalse
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := s.key(identifier)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, s.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return incr.Val() <= s.limit, nil
}

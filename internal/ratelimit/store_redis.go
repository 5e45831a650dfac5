package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each window as a sorted set scored by request time, so all
// ledger nodes share one count per caller.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":ratelimit:" + key
}

// AllowN counts the live window under WATCH and records cost members only if
// they fit, so concurrent nodes cannot both take the last slot.
func (s *RedisStore) AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (Result, error) {
	k := s.key(key)
	now := s.now()
	cutoff := now.Add(-window).UnixNano()

	var allowed bool
	var count int64
	var oldest time.Time
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		live := "(" + strconv.FormatInt(cutoff, 10)
		n, err := tx.ZCount(ctx, k, live, "+inf").Result()
		if err != nil {
			return err
		}
		count = n
		first, err := tx.ZRangeByScoreWithScores(ctx, k, &redis.ZRangeBy{Min: live, Max: "+inf", Count: 1}).Result()
		if err != nil {
			return err
		}
		oldest = time.Time{}
		if len(first) > 0 {
			oldest = time.Unix(0, int64(first[0].Score))
		}
		allowed = int(n)+cost <= limit
		if !allowed {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
			members := make([]redis.Z, 0, cost)
			for range cost {
				members = append(members, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
			}
			p.ZAdd(ctx, k, members...)
			p.PExpire(ctx, k, window)
			return nil
		})
		return err
	}, k)
	if err != nil {
		return Result{}, fmt.Errorf("redis rate limit: %w", err)
	}

	resetAt := now.Add(window)
	if !oldest.IsZero() {
		resetAt = oldest.Add(window)
	}
	if !allowed {
		return Result{Limit: limit, ResetAt: resetAt, RetryAfter: retryAfter(now, resetAt)}, nil
	}
	return Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - int(count) - cost,
		ResetAt:   resetAt,
	}, nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

package preference

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicflow/notifier/pkg/template"
)

// RedisLimiter implements Limiter on Redis so multiple engine instances share
// one view of frequency and daily caps. Rule marks are SET NX with the window
// as TTL; daily counters are INCR with a two-day TTL so midnight rollover
// needs no cleanup job.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter creates a limiter on the given client. The prefix
// namespaces keys; empty defaults to "notifier".
func NewRedisLimiter(client *redis.Client, prefix string) (*RedisLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "notifier"
	}
	return &RedisLimiter{client: client, prefix: prefix}, nil
}

// AllowRule implements Limiter.
func (rl *RedisLimiter) AllowRule(ctx context.Context, userID, ruleID string, window time.Duration) (bool, error) {
	if window <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("%s:freq:%s:%s", rl.prefix, userID, ruleID)
	ok, err := rl.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check frequency cap: %w", err)
	}
	return ok, nil
}

// AllowDaily implements Limiter.
func (rl *RedisLimiter) AllowDaily(ctx context.Context, userID string, ch template.Channel, cap int) (bool, error) {
	if cap <= 0 {
		return true, nil
	}

	day := time.Now().UTC().Format(time.DateOnly)
	key := fmt.Sprintf("%s:daily:%s:%s:%s", rl.prefix, userID, ch, day)

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to count daily sends: %w", err)
	}
	if count == 1 {
		// First send of the day sets the TTL; 48h covers timezone skew.
		if err := rl.client.Expire(ctx, key, 48*time.Hour).Err(); err != nil {
			return false, fmt.Errorf("failed to expire daily counter: %w", err)
		}
	}
	return count <= int64(cap), nil
}

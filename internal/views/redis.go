package views

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

type RedisCounter struct {
	client *redis.Client
}

var _ Counter = (*RedisCounter)(nil)

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// NewRedisClient parses a redis:// URL and checks the server is reachable.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (c *RedisCounter) Views(ctx context.Context, slugs []string) (map[string]int64, error) {
	out := zeroed(slugs)
	if len(slugs) == 0 {
		return out, nil
	}

	keys := make([]string, len(slugs))
	for i, s := range slugs {
		keys[i] = Key(s)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get view counts: %w", err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse view count for %s: %w", slugs[i], err)
		}
		out[slugs[i]] = n
	}
	return out, nil
}

func (c *RedisCounter) Record(ctx context.Context, slug, visitor string) (int64, bool, error) {
	if visitor != "" {
		fresh, err := c.client.SetNX(ctx, dedupKey(visitor, slug), 1, DedupWindow).Result()
		if err != nil {
			return 0, false, fmt.Errorf("failed to deduplicate view: %w", err)
		}
		if !fresh {
			n, err := c.current(ctx, slug)
			return n, false, err
		}
	}

	n, err := c.client.Incr(ctx, Key(slug)).Result()
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment views: %w", err)
	}
	return n, true, nil
}

func (c *RedisCounter) current(ctx context.Context, slug string) (int64, error) {
	n, err := c.client.Get(ctx, Key(slug)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get views: %w", err)
	}
	return n, nil
}

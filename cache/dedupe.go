package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "glslang-runner:dedupe:"

// Deduper claims event ids so a redelivered message runs its tool once.
type Deduper struct {
	client *redis.Client
}

func NewDeduper(client *redis.Client) *Deduper {
	return &Deduper{client: client}
}

// Claim reports whether key was claimed by this call. Without Redis every
// claim succeeds.
func (d *Deduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	key = strings.TrimSpace(key)
	if d == nil || d.client == nil || key == "" {
		return true, nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	ok, err := d.client.SetNX(ctx, dedupeKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

// Release drops a claim so a failed delivery can be retried.
func (d *Deduper) Release(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if d == nil || d.client == nil || key == "" {
		return nil
	}
	if err := d.client.Del(ctx, dedupeKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

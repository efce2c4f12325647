package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisDeduplicator shares seen ids between API instances through Redis.
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type RedisOption func(*RedisDeduplicator)

func WithTTL(ttl time.Duration) RedisOption {
	return func(d *RedisDeduplicator) {
		d.ttl = ttl
	}
}

func WithPrefix(prefix string) RedisOption {
	return func(d *RedisDeduplicator) {
		d.prefix = prefix
	}
}

func NewRedisDeduplicator(client *redis.Client, opts ...RedisOption) *RedisDeduplicator {
	d := &RedisDeduplicator{
		client: client,
		ttl:    DefaultTTL,
		prefix: "shopflow:event",
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// NewRedisDeduplicatorFromURL parses a redis:// URL.
func NewRedisDeduplicatorFromURL(url string, opts ...RedisOption) (*RedisDeduplicator, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	return NewRedisDeduplicator(redis.NewClient(options), opts...), nil
}

func (d *RedisDeduplicator) MarkSeen(ctx context.Context, shopDomain, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}

	created, err := d.client.SetNX(ctx, key(d.prefix, shopDomain, eventID), time.Now().UTC().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record event %s: %w", eventID, err)
	}

	return !created, nil
}

func (d *RedisDeduplicator) Release(ctx context.Context, shopDomain, eventID string) error {
	if eventID == "" {
		return ErrEmptyEventID
	}

	if err := d.client.Del(ctx, key(d.prefix, shopDomain, eventID)).Err(); err != nil {
		return fmt.Errorf("failed to release event %s: %w", eventID, err)
	}

	return nil
}

// Ping checks the Redis connection.
func (d *RedisDeduplicator) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *RedisDeduplicator) Close() error {
	return d.client.Close()
}

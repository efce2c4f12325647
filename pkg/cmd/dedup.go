package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/shopflow/pkg/dedup"
)

// NewDeduplicator returns a Redis backed deduplicator when redisURL is set and an in-memory
// one otherwise. The returned function releases the connection.
func NewDeduplicator(ctx context.Context, logger *slog.Logger, redisURL string) (dedup.Deduplicator, func() error, error) {
	if redisURL == "" {
		logger.WarnContext(ctx, "No Redis URL configured, deduplicating events in memory")

		return dedup.NewMemoryDeduplicator(dedup.DefaultTTL), func() error { return nil }, nil
	}

	redisDedup, err := dedup.NewRedisDeduplicatorFromURL(redisURL)
	if err != nil {
		return nil, nil, err
	}

	if err := redisDedup.Ping(ctx); err != nil {
		_ = redisDedup.Close()

		return nil, nil, fmt.Errorf("failed to reach Redis: %w", err)
	}

	return redisDedup, redisDedup.Close, nil
}

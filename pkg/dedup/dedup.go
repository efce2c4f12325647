// Package dedup drops commerce events that were already accepted, keyed by their external event id.
package dedup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long an accepted event id is remembered.
const DefaultTTL = 24 * time.Hour

var ErrEmptyEventID = errors.New("external event id is empty")

// Deduplicator records external event ids.
type Deduplicator interface {
	// MarkSeen records eventID for shopDomain and reports whether it was already recorded.
	MarkSeen(ctx context.Context, shopDomain, eventID string) (duplicate bool, err error)
	// Release forgets eventID so a later delivery is accepted again.
	Release(ctx context.Context, shopDomain, eventID string) error
}

func key(prefix, shopDomain, eventID string) string {
	return prefix + ":" + strings.ToLower(shopDomain) + ":" + eventID
}

// MemoryDeduplicator keeps ids in process memory. It is meant for single-instance deployments.
type MemoryDeduplicator struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &MemoryDeduplicator{ttl: ttl, now: time.Now, seen: make(map[string]time.Time)}
}

func (m *MemoryDeduplicator) MarkSeen(_ context.Context, shopDomain, eventID string) (bool, error) {
	if eventID == "" {
		return false, ErrEmptyEventID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := key("mem", shopDomain, eventID)

	if expires, ok := m.seen[k]; ok && now.Before(expires) {
		return true, nil
	}

	m.seen[k] = now.Add(m.ttl)
	m.evict(now)

	return false, nil
}

func (m *MemoryDeduplicator) Release(_ context.Context, shopDomain, eventID string) error {
	if eventID == "" {
		return ErrEmptyEventID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.seen, key("mem", shopDomain, eventID))

	return nil
}

func (m *MemoryDeduplicator) evict(now time.Time) {
	for k, expires := range m.seen {
		if !now.Before(expires) {
			delete(m.seen, k)
		}
	}
}

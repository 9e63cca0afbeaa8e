package messages

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rbaliyan/event/v3"

	"github.com/rbaliyan/messages/store"
)

// statsCache holds per-user folder counters for a short TTL. Entries
// are invalidated on local mutations and on events, so instances
// sharing a Redis event transport drop stale counters for each other.
type statsCache struct {
	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]*statsEntry
}

type statsEntry struct {
	stats     *store.MailboxStats
	updatedAt time.Time
}

func newStatsCache(ttl time.Duration) *statsCache {
	return &statsCache{
		ttl:     ttl,
		entries: make(map[string]*statsEntry),
	}
}

func (c *statsCache) get(userID string) (*store.MailboxStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[userID]
	if !ok || time.Since(entry.updatedAt) > c.ttl {
		return nil, false
	}
	return entry.stats.Clone(), true
}

func (c *statsCache) put(userID string, stats *store.MailboxStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = &statsEntry{stats: stats.Clone(), updatedAt: time.Now()}
}

func (c *statsCache) invalidate(userID string) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// statsFor serves counters from the cache, refreshing from the store
// on a miss.
func (s *Service) statsFor(ctx context.Context, userID string) (*store.MailboxStats, error) {
	if stats, ok := s.stats.get(userID); ok {
		return stats, nil
	}
	stats, err := s.store.MailboxStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("messages: stats: %w", err)
	}
	s.stats.put(userID, stats)
	return stats.Clone(), nil
}

// subscribeStatsHandlers invalidates cached counters when lifecycle
// events fire, including events published by other service instances
// on a shared transport.
func (s *Service) subscribeStatsHandlers(ctx context.Context) error {
	onMessage := func(ctx context.Context, _ event.Event[MessageEvent], data MessageEvent) error {
		s.stats.invalidate(data.SenderID)
		s.stats.invalidate(data.RecipientID)
		return nil
	}
	events := []event.Event[MessageEvent]{
		s.events.MessageSent,
		s.events.MessageRead,
		s.events.MessageDeleted,
		s.events.MessageUndeleted,
	}
	for _, ev := range events {
		if err := ev.Subscribe(ctx, onMessage); err != nil {
			return fmt.Errorf("messages: subscribe stats handler: %w", err)
		}
	}
	return nil
}

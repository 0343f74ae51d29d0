package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"iffy/internal/domain"
)

// Snapshot shares the last good catalog between instances.
type Snapshot interface {
	Load(ctx context.Context) ([]domain.CatalogEntry, time.Time, error)
	Save(ctx context.Context, entries []domain.CatalogEntry, fetchedAt time.Time) error
}

// RefreshObserver receives one of "ok", "snapshot", "stale" or "error" per refresh.
type RefreshObserver func(result string)

// Cache holds the catalog for ttl. A ttl of zero reloads on every call.
// Refreshes are serialized; when one fails the previous copy keeps being served.
type Cache struct {
	source   Source
	ttl      time.Duration
	snapshot Snapshot
	observe  RefreshObserver
	logger   zerolog.Logger
	now      func() time.Time

	refreshMu sync.Mutex

	mu        sync.RWMutex
	entries   []domain.CatalogEntry
	fetchedAt time.Time
}

type CacheOption func(*Cache)

func WithSnapshot(s Snapshot) CacheOption {
	return func(c *Cache) { c.snapshot = s }
}

func WithRefreshObserver(fn RefreshObserver) CacheOption {
	return func(c *Cache) { c.observe = fn }
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

func NewCache(source Source, ttl time.Duration, logger zerolog.Logger, opts ...CacheOption) *Cache {
	c := &Cache{
		source: source,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entries returns the catalog, refreshing it when the cached copy expired.
// The returned slice must not be modified.
func (c *Cache) Entries(ctx context.Context) ([]domain.CatalogEntry, error) {
	if entries, ok := c.fresh(); ok {
		return entries, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if entries, ok := c.fresh(); ok {
		return entries, nil
	}

	c.mu.RLock()
	stale := c.entries
	c.mu.RUnlock()

	if stale == nil && c.snapshot != nil {
		if entries, at, err := c.snapshot.Load(ctx); err == nil && len(entries) > 0 && c.within(at) {
			c.store(entries, at)
			c.report("snapshot")
			return entries, nil
		} else if err != nil && !errors.Is(err, ErrNoSnapshot) {
			c.logger.Warn().Err(err).Msg("catalog snapshot unavailable")
		}
	}

	entries, err := c.source.Load(ctx)
	if err == nil && len(entries) == 0 {
		err = fmt.Errorf("source returned no rows")
	}
	if err != nil {
		if stale != nil {
			c.logger.Warn().Err(err).Int("entries", len(stale)).Msg("catalog refresh failed, serving stale copy")
			c.report("stale")
			return stale, nil
		}
		c.report("error")
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}

	at := c.now()
	c.store(entries, at)
	c.report("ok")
	c.logger.Info().Int("entries", len(entries)).Msg("catalog refreshed")

	if c.snapshot != nil {
		if err := c.snapshot.Save(ctx, entries, at); err != nil {
			c.logger.Warn().Err(err).Msg("catalog snapshot save failed")
		}
	}
	return entries, nil
}

// Invalidate forces the next call to reload while keeping the stale copy as fallback.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetchedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) fresh() ([]domain.CatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entries == nil || !c.within(c.fetchedAt) {
		return nil, false
	}
	return c.entries, true
}

func (c *Cache) within(at time.Time) bool {
	return c.ttl > 0 && !at.IsZero() && c.now().Sub(at) < c.ttl
}

func (c *Cache) store(entries []domain.CatalogEntry, at time.Time) {
	c.mu.Lock()
	c.entries = entries
	c.fetchedAt = at
	c.mu.Unlock()
}

func (c *Cache) report(result string) {
	if c.observe != nil {
		c.observe(result)
	}
}

// internal/platform/cache/catalog_cache.go
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"chatbridge/internal/domain/catalog"
)

// DefaultTTL matches the original widget's 5-minute metadata cache.
const DefaultTTL = 5 * time.Minute

// ErrCatalogUnavailable is returned only on a cold start with no prior
// snapshot; once a snapshot exists, refresh failures serve it stale.
var ErrCatalogUnavailable = errors.New("cache: catalog unavailable")

// Clock provides current time (for testability).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CatalogCache holds a TTL-bounded catalog snapshot. The snapshot is
// immutable once published and swapped atomically, so readers need no
// locking; only the refresh path is guarded, and concurrent callers that
// observe staleness collapse into a single upstream fetch.
type CatalogCache struct {
	source catalog.Source
	ttl    time.Duration
	clock  Clock
	log    zerolog.Logger

	snap  atomic.Pointer[catalog.Snapshot]
	group singleflight.Group
}

func NewCatalogCache(source catalog.Source, ttl time.Duration, log zerolog.Logger) *CatalogCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CatalogCache{
		source: source,
		ttl:    ttl,
		clock:  systemClock{},
		log:    log.With().Str("component", "catalog_cache").Logger(),
	}
}

// NewCatalogCacheWithClock is useful for tests.
func NewCatalogCacheWithClock(source catalog.Source, ttl time.Duration, clock Clock, log zerolog.Logger) *CatalogCache {
	c := NewCatalogCache(source, ttl, log)
	if clock != nil {
		c.clock = clock
	}
	return c
}

// Get returns the current snapshot, refreshing synchronously-once when none
// exists or the TTL has lapsed. On refresh failure the last good snapshot
// is served stale; only a cold start propagates the error.
func (c *CatalogCache) Get(ctx context.Context) (*catalog.Snapshot, error) {
	cur := c.snap.Load()
	if cur != nil && c.clock.Now().Sub(cur.FetchedAt) <= c.ttl {
		return cur, nil
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		// Re-check under the flight: another caller may have refreshed
		// between our staleness observation and now.
		if s := c.snap.Load(); s != nil && c.clock.Now().Sub(s.FetchedAt) <= c.ttl {
			return s, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		if stale := c.snap.Load(); stale != nil {
			c.log.Warn().Err(err).Time("fetchedAt", stale.FetchedAt).Msg("refresh failed, serving stale snapshot")
			return stale, nil
		}
		return nil, errors.Wrap(ErrCatalogUnavailable, err.Error())
	}
	return v.(*catalog.Snapshot), nil
}

func (c *CatalogCache) refresh(ctx context.Context) (*catalog.Snapshot, error) {
	entries, err := c.source.FetchAll(ctx)
	if err != nil {
		return nil, err
	}

	next := &catalog.Snapshot{
		Entries:   entries,
		FetchedAt: c.clock.Now(),
	}
	// Wholesale swap; the old snapshot is dropped, never merged.
	c.snap.Store(next)
	c.log.Debug().Int("entries", len(entries)).Msg("snapshot refreshed")
	return next, nil
}

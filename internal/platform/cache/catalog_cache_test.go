// internal/platform/cache/catalog_cache_test.go
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbridge/internal/domain/catalog"
)

type fakeSource struct {
	mu      sync.Mutex
	entries []catalog.Entry
	err     error
	calls   int32
	gate    chan struct{} // when set, FetchAll blocks until closed
}

func (s *fakeSource) FetchAll(_ context.Context) ([]catalog.Entry, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func (s *fakeSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestGetConcurrentCallersShareOneFetch(t *testing.T) {
	src := &fakeSource{
		entries: []catalog.Entry{{ID: "1", Available: true}},
		gate:    make(chan struct{}),
	}
	c := NewCatalogCache(src, time.Minute, zerolog.Nop())

	const n = 16
	var wg sync.WaitGroup
	results := make([]*catalog.Snapshot, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background())
		}(i)
	}

	// Let every goroutine pile onto the flight before the fetch returns.
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		assert.Len(t, results[i].Entries, 1)
	}
}

func TestGetServesFreshSnapshotWithoutFetch(t *testing.T) {
	src := &fakeSource{entries: []catalog.Entry{{ID: "1"}}}
	clock := &fakeClock{t: time.Now()}
	c := NewCatalogCacheWithClock(src, time.Minute, clock, zerolog.Nop())

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
}

func TestGetRefreshesAfterTTL(t *testing.T) {
	src := &fakeSource{entries: []catalog.Entry{{ID: "1"}}}
	clock := &fakeClock{t: time.Now()}
	c := NewCatalogCacheWithClock(src, time.Minute, clock, zerolog.Nop())

	_, err := c.Get(context.Background())
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
}

func TestGetServesStaleOnRefreshFailure(t *testing.T) {
	src := &fakeSource{entries: []catalog.Entry{{ID: "1"}}}
	clock := &fakeClock{t: time.Now()}
	c := NewCatalogCacheWithClock(src, time.Minute, clock, zerolog.Nop())

	first, err := c.Get(context.Background())
	require.NoError(t, err)

	src.setErr(errors.New("upstream down"))
	clock.Advance(2 * time.Minute)

	stale, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, stale)
}

func TestGetColdStartFailurePropagates(t *testing.T) {
	src := &fakeSource{err: errors.New("upstream down")}
	c := NewCatalogCache(src, time.Minute, zerolog.Nop())

	_, err := c.Get(context.Background())
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

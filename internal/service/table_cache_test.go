package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
)

type fakeLoader struct {
	mu    sync.Mutex
	calls int
	table *models.Table
	err   error
}

func (f *fakeLoader) Load(context.Context) (*models.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.table.Clone(), nil
}

func (f *fakeLoader) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type memorySnapshot struct {
	saved *models.Table
	saves int
}

func (m *memorySnapshot) SaveTable(_ context.Context, t *models.Table) error {
	m.saved = t.Clone()
	m.saves++
	return nil
}

func (m *memorySnapshot) LoadTable(context.Context) (*models.Table, error) {
	if m.saved == nil {
		return nil, appErrors.ErrCacheMiss
	}
	return m.saved.Clone(), nil
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestCache(loader TableLoader, snapshot SnapshotStore) (*TableCache, *testClock) {
	clock := &testClock{now: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	cache := NewTableCache(TableCacheParams{Loader: loader, TTL: 5 * time.Minute, Snapshot: snapshot})
	cache.now = clock.Now
	return cache, clock
}

func TestTableCacheFetchesOncePerTTL(t *testing.T) {
	loader := &fakeLoader{table: sampleTable()}
	cache, clock := newTestCache(loader, nil)
	assert.Equal(t, models.CacheStateEmpty, cache.State())

	table, source := cache.Get(context.Background(), false)
	require.Equal(t, models.CacheSourceRemote, source)
	assert.Equal(t, 6, table.Len())
	assert.True(t, table.FetchedAt.Equal(clock.now))
	assert.Equal(t, models.CacheStateWarm, cache.State())

	clock.now = clock.now.Add(4 * time.Minute)
	_, source = cache.Get(context.Background(), false)
	assert.Equal(t, models.CacheSourceCache, source)
	assert.Equal(t, 1, loader.calls)

	clock.now = clock.now.Add(time.Minute)
	_, source = cache.Get(context.Background(), false)
	assert.Equal(t, models.CacheSourceRemote, source)
	assert.Equal(t, 2, loader.calls)
}

func TestTableCacheForceRefresh(t *testing.T) {
	loader := &fakeLoader{table: sampleTable()}
	cache, _ := newTestCache(loader, nil)

	cache.Get(context.Background(), false)
	_, source := cache.Get(context.Background(), true)

	assert.Equal(t, models.CacheSourceRemote, source)
	assert.Equal(t, 2, loader.calls)
}

func TestTableCacheServesStaleAfterFailure(t *testing.T) {
	loader := &fakeLoader{table: sampleTable()}
	cache, clock := newTestCache(loader, nil)
	first, _ := cache.Get(context.Background(), false)

	loader.fail(appErrors.ErrFetchTimeout)
	clock.now = clock.now.Add(10 * time.Minute)
	table, source := cache.Get(context.Background(), false)

	assert.Equal(t, models.CacheSourceStale, source)
	assert.Equal(t, first.Records, table.Records)
	assert.True(t, cache.FetchedAt().Equal(first.FetchedAt))

	loader.fail(appErrors.ErrEmptyResult)
	_, source = cache.Get(context.Background(), true)
	assert.Equal(t, models.CacheSourceStale, source)
}

func TestTableCacheRestoresSnapshotWhenEmpty(t *testing.T) {
	snapshot := &memorySnapshot{}
	warm, _ := newTestCache(&fakeLoader{table: sampleTable()}, snapshot)
	warm.Get(context.Background(), false)
	require.Equal(t, 1, snapshot.saves)

	cold, clock := newTestCache(&fakeLoader{err: errors.New("network down")}, snapshot)
	clock.now = clock.now.Add(time.Hour)
	table, source := cold.Get(context.Background(), false)

	assert.Equal(t, models.CacheSourceSnapshot, source)
	assert.Equal(t, 6, table.Len())
	assert.Equal(t, models.CacheStateWarm, cold.State())
	assert.True(t, cold.FetchedAt().Equal(snapshot.saved.FetchedAt))
}

func TestTableCacheEmptyFallback(t *testing.T) {
	cache, _ := newTestCache(&fakeLoader{err: appErrors.ErrAuth}, &memorySnapshot{})

	table, source := cache.Get(context.Background(), false)

	assert.Equal(t, models.CacheSourceEmpty, source)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, models.AllFields, table.Fields)
	assert.Equal(t, models.CacheStateEmpty, cache.State())
}

func TestTableCacheReturnsPrivateCopies(t *testing.T) {
	cache, _ := newTestCache(&fakeLoader{table: sampleTable()}, nil)
	first, _ := cache.Get(context.Background(), false)
	first.Records[0].Batch = "mutated"

	second, _ := cache.Get(context.Background(), false)
	assert.Equal(t, "Arjuna JEE", second.Records[0].Batch)
}

func TestTableCacheCollapsesConcurrentRefreshes(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	loader := LoaderFunc(func(context.Context) (*models.Table, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return sampleTable(), nil
	})
	cache, _ := newTestCache(loader, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, _ := cache.Get(context.Background(), false)
			assert.Equal(t, 6, table.Len())
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

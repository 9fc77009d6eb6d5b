package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

const defaultTableTTL = 5 * time.Minute

// TableLoader produces a fresh normalised table.
type TableLoader interface {
	Load(ctx context.Context) (*models.Table, error)
}

// LoaderFunc adapts a function to TableLoader.
type LoaderFunc func(ctx context.Context) (*models.Table, error)

// Load implements TableLoader.
func (f LoaderFunc) Load(ctx context.Context) (*models.Table, error) { return f(ctx) }

// SnapshotStore keeps a durable copy of the last good table.
type SnapshotStore interface {
	SaveTable(ctx context.Context, t *models.Table) error
	LoadTable(ctx context.Context) (*models.Table, error)
}

// TableCacheParams wires the cache. Snapshot, Metrics and Logger are optional.
type TableCacheParams struct {
	Loader   TableLoader
	TTL      time.Duration
	Snapshot SnapshotStore
	Metrics  *MetricsService
	Logger   *zap.Logger
}

// TableCache holds the single process-wide normalised table. Entries are
// replaced wholesale and callers always receive private copies.
type TableCache struct {
	loader   TableLoader
	ttl      time.Duration
	snapshot SnapshotStore
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	table     *models.Table
	fetchedAt time.Time
}

// NewTableCache constructs an EMPTY cache.
func NewTableCache(params TableCacheParams) *TableCache {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultTableTTL
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableCache{
		loader:   params.Loader,
		ttl:      ttl,
		snapshot: params.Snapshot,
		metrics:  params.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns a copy of the cached table, refreshing it first when it is
// missing, expired or force is set. A failed refresh never surfaces as an
// error: the stale table, then the Redis snapshot, then the empty-schema table
// are served instead.
func (c *TableCache) Get(ctx context.Context, force bool) (*models.Table, models.CacheSource) {
	if !force {
		if t, ok := c.fresh(); ok {
			c.metrics.RecordTableLookup(models.CacheSourceCache)
			return t, models.CacheSourceCache
		}
	}

	t, source := c.refresh(ctx)
	c.metrics.RecordTableLookup(source)
	return t, source
}

// State reports EMPTY until a table has been installed.
func (c *TableCache) State() models.CacheState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.table == nil {
		return models.CacheStateEmpty
	}
	return models.CacheStateWarm
}

// FetchedAt returns the fetch time of the cached table, zero when EMPTY.
func (c *TableCache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

func (c *TableCache) fresh() (*models.Table, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.table == nil || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.table.Clone(), true
}

type refreshResult struct {
	table  *models.Table
	source models.CacheSource
}

func (c *TableCache) refresh(ctx context.Context) (*models.Table, models.CacheSource) {
	v, _, _ := c.group.Do("refresh", func() (interface{}, error) {
		return c.load(ctx), nil
	})
	res := v.(refreshResult)
	return res.table.Clone(), res.source
}

// load runs outside the lock; only the swap is guarded.
func (c *TableCache) load(ctx context.Context) refreshResult {
	t, err := c.loader.Load(ctx)
	if err == nil && t != nil {
		now := c.now()
		t.FetchedAt = now
		c.install(t, now)
		if c.snapshot != nil {
			if serr := c.snapshot.SaveTable(ctx, t); serr != nil {
				c.logger.Warn("snapshot save failed", zap.Error(serr))
			}
		}
		return refreshResult{table: t, source: models.CacheSourceRemote}
	}

	c.mu.RLock()
	stale := c.table
	c.mu.RUnlock()
	if stale != nil {
		c.logger.Warn("serving stale table", zap.Time("fetched_at", stale.FetchedAt), zap.Error(err))
		return refreshResult{table: stale, source: models.CacheSourceStale}
	}

	if c.snapshot != nil {
		snap, serr := c.snapshot.LoadTable(ctx)
		if serr == nil && snap != nil {
			c.install(snap, snap.FetchedAt)
			c.logger.Warn("serving table restored from snapshot", zap.Time("fetched_at", snap.FetchedAt), zap.Error(err))
			return refreshResult{table: snap, source: models.CacheSourceSnapshot}
		}
	}

	c.logger.Warn("serving empty table", zap.Error(err))
	return refreshResult{table: models.EmptyTable(), source: models.CacheSourceEmpty}
}

func (c *TableCache) install(t *models.Table, fetchedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = t
	c.fetchedAt = fetchedAt
}

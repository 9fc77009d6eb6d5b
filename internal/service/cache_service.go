package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService keeps the Redis copy of the last good table so a restarted
// process can serve data while the spreadsheet is unreachable.
type CacheService struct {
	repo    CacheRepository
	metrics *MetricsService
	key     string
	ttl     time.Duration
	logger  *zap.Logger
	enabled bool
}

// CacheServiceConfig tunes the snapshot key and retention.
type CacheServiceConfig struct {
	Key     string
	TTL     time.Duration
	Enabled bool
}

// NewCacheService constructs the snapshot service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, cfg CacheServiceConfig, logger *zap.Logger) *CacheService {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.Key == "" {
		cfg.Key = "enrollment:table:snapshot"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, key: cfg.Key, ttl: cfg.TTL, logger: logger, enabled: cfg.Enabled}
}

// Enabled indicates whether snapshots are active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// SaveTable overwrites the snapshot with t.
func (s *CacheService) SaveTable(ctx context.Context, t *models.Table) error {
	if !s.Enabled() {
		return nil
	}
	start := time.Now()
	err := s.repo.Set(ctx, s.key, t, s.ttl)
	s.metrics.ObserveSnapshotWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("snapshot write failed", zap.String("key", s.key), zap.Error(err))
	}
	return err
}

// LoadTable returns the stored snapshot or ErrCacheMiss when there is none.
func (s *CacheService) LoadTable(ctx context.Context) (*models.Table, error) {
	if !s.Enabled() {
		return nil, appErrors.ErrCacheMiss
	}
	start := time.Now()
	var t models.Table
	err := s.repo.Get(ctx, s.key, &t)
	s.metrics.ObserveSnapshotRead(time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("snapshot read failed", zap.String("key", s.key), zap.Error(err))
		}
		return nil, err
	}
	if t.Records == nil {
		t.Records = []models.Enrollment{}
	}
	return &t, nil
}

// Purge removes the snapshot and any sibling keys under the same prefix.
func (s *CacheService) Purge(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, s.key+"*"); err != nil {
		s.logger.Warn("snapshot purge failed", zap.String("key", s.key), zap.Error(err))
		return err
	}
	return nil
}

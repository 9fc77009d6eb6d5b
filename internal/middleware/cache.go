package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	"github.com/noah-isme/enrollment-dashboard-api/pkg/logger"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	cacheSourceKey  = "cache_source"
	fetchedAtKey    = "fetched_at"

	// CacheSourceHeader mirrors the cache source for clients that only read headers.
	CacheSourceHeader = "X-Cache-Source"
)

// WithResponseMeta initialises response metadata storage on the request context.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
		duration := time.Since(start)
		meta := ensureMeta(c)
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = duration.Milliseconds()
		}
	}
}

// SetCacheSource records where the served table came from and when it was fetched.
func SetCacheSource(c *gin.Context, source models.CacheSource, fetchedAt time.Time) {
	meta := ensureMeta(c)
	meta[cacheSourceKey] = string(source)
	meta[cacheHitKey] = source.Hit()
	if !fetchedAt.IsZero() {
		meta[fetchedAtKey] = fetchedAt.UTC().Format(time.RFC3339)
	}
	c.Set(logger.CacheSourceKey, string(source))
	c.Header(CacheSourceHeader, string(source))
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	newMeta := make(map[string]interface{})
	c.Set(responseMetaKey, newMeta)
	return newMeta
}

// Package middleware carries the request-scoped plumbing wrapped around the
// schedule API handlers: response metadata, cache-hit tagging and HTTP
// metrics.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey   = "response_meta"
	cacheHitKey       = "cache_hit"
	processingTimeKey = "processing_time_ms"
)

// WithResponseMeta seeds each request with the metadata map that handlers
// extend (cache hits, generation status) and response envelopes serialize.
// Requests whose handler did not record its own timing get the total set
// here, visible to later middleware.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, make(map[string]interface{}))
		c.Next()
		meta := ensureMeta(c)
		if _, ok := meta[processingTimeKey]; !ok {
			meta[processingTimeKey] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit tags the response metadata with whether the payload came from
// the cache rather than the database.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the request's metadata map, or nil when none exists.
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

// ensureMeta returns the request's metadata map, creating it when the
// request was not routed through WithResponseMeta.
func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}

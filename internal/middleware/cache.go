package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
)

// WithResponseMeta initialises response metadata storage on the request
// context. Handlers add entries and pass ExtractMeta to the response.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{"started_at": time.Now().UTC()})
		c.Next()
	}
}

// SetMeta records one metadata entry for the current response.
func SetMeta(c *gin.Context, key string, value interface{}) {
	if c == nil {
		return
	}
	meta, ok := metaMap(c)
	if !ok {
		meta = map[string]interface{}{}
		c.Set(responseMetaKey, meta)
	}
	meta[key] = value
}

// SetCacheHit records whether the payload was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	SetMeta(c, cacheHitKey, hit)
}

// ExtractMeta returns the metadata stored on the context, adding the
// processing time so far.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, ok := metaMap(c)
	if !ok {
		return nil
	}
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		if k == "started_at" {
			if started, ok := v.(time.Time); ok {
				out["processing_time_ms"] = time.Since(started).Milliseconds()
			}
			continue
		}
		out[k] = v
	}
	return out
}

func metaMap(c *gin.Context) (map[string]interface{}, bool) {
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil, false
	}
	meta, ok := value.(map[string]interface{})
	return meta, ok
}

package utils

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const defaultCacheTTL = 10 * time.Minute

var (
	generations   = map[string]int64{}
	generationsMu sync.Mutex
)

// CacheGeneration returns the current generation of a cache namespace.
// Readers embed it in their keys before querying the database, so a value
// computed before a BumpCacheGeneration is stored under a key nobody reads.
func CacheGeneration(ctx context.Context, key string) int64 {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := rc.Get(ctx, key).Int64()
		if err == nil {
			return n
		}
		Sugar.Debugf("cache generation read key=%s err=%v", key, err)
	}
	generationsMu.Lock()
	defer generationsMu.Unlock()
	return generations[key]
}

// BumpCacheGeneration advances a namespace's generation.
func BumpCacheGeneration(ctx context.Context, key string) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rc.Incr(ctx, key).Err(); err == nil {
			return
		}
		Sugar.Warnf("cache generation bump failed key=%s, falling back to memory", key)
	}
	generationsMu.Lock()
	defer generationsMu.Unlock()
	generations[key]++
}

// CacheGetBytes returns cached bytes for a key from Redis. A disabled cache
// always misses.
func CacheGetBytes(ctx context.Context, key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores bytes, using the default TTL when ttl is not positive.
func CacheSetBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		Sugar.Warnf("cache marshal failed key=%s err=%v", key, err)
		return
	}
	CacheSetBytes(ctx, key, b, ttl)
}

// InvalidateByPrefix deletes keys that match the given prefix using SCAN.
func InvalidateByPrefix(ctx context.Context, prefix string) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache invalidate scan failed prefix=%s err=%v", prefix, err)
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

// Package cache provides an optional Redis-backed cache for Reports API
// page responses.
//
// Report pages are immutable for a fixed, configurable window: the same
// counter, date sub-range, and pagination position yield the same rows
// until the counter accumulates new data. Caching them avoids re-spending
// the request quota and the time budget when the same extraction is
// re-run (a failed multi-chunk run retried shortly after, a report
// regenerated with a different output format).
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{Params: params}
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// fetch from the API, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, ttl))
//	}
//
// # Metrics
//
//   - metrika_cache_hits_total{layer="redis"} - Cache hits
//   - metrika_cache_misses_total - Cache misses
//   - metrika_cache_size_bytes{layer="redis"} - Cache size
//   - metrika_cache_errors_total{operation} - Cache operation errors
package cache

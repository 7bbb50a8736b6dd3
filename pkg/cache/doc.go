// Package cache provides an optional Redis-backed cache for review API pages.
//
// A page is identified by the app id and the full query that produced it,
// cursor included, so a cached page is only ever reused for the exact same
// request. Only successful pages are stored. The cache exists to make
// repeated development runs cheap; a fetch still restarts at the first
// cursor on every run.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, 10*time.Minute)
//
//	key := cache.Key{AppID: "578080", Query: req.URL.Query()}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(body, manager.TTL()))
//	}
//
// # Metrics
//
//   - steam_cache_hits_total - Cache hits
//   - steam_cache_misses_total - Cache misses
//   - steam_cache_stored_bytes - Bytes written to the cache during this process
//   - steam_cache_errors_total{operation} - Cache operation errors
package cache

package favorites

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// queryCache holds read results keyed by query, with a tag index on the side
// so mutations can drop exactly the queries they stale. Entries expire after
// the read TTL; explicit invalidation removes them immediately regardless of
// remaining freshness.
type queryCache struct {
	entries *gocache.Cache

	mu        sync.Mutex
	keysByTag map[string]map[string]struct{}
	tagsByKey map[string][]string
}

// newQueryCache returns a cache with the given TTL and sweep interval.
// A ttl <= 0 returns a disabled cache: get always misses and set is a no-op.
func newQueryCache(ttl, sweep time.Duration) *queryCache {
	if ttl <= 0 {
		return &queryCache{}
	}
	q := &queryCache{
		entries:   gocache.New(ttl, sweep),
		keysByTag: make(map[string]map[string]struct{}),
		tagsByKey: make(map[string][]string),
	}
	// Expired entries are swept out behind our back; the eviction hook keeps
	// the tag index from accumulating keys that no longer exist.
	q.entries.OnEvicted(func(key string, _ any) {
		q.mu.Lock()
		q.dropKeyLocked(key)
		q.mu.Unlock()
	})
	return q
}

func (q *queryCache) disabled() bool { return q.entries == nil }

func (q *queryCache) get(key string) (any, bool) {
	if q.disabled() {
		return nil, false
	}
	return q.entries.Get(key)
}

func (q *queryCache) set(key string, value any, tags ...string) {
	if q.disabled() {
		return
	}
	q.mu.Lock()
	q.dropKeyLocked(key)
	q.tagsByKey[key] = tags
	for _, tag := range tags {
		keys := q.keysByTag[tag]
		if keys == nil {
			keys = make(map[string]struct{})
			q.keysByTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	q.mu.Unlock()
	q.entries.SetDefault(key, value)
}

// invalidate removes every entry tagged with at least one of the given tags
// and reports how many entries were dropped.
func (q *queryCache) invalidate(tags ...string) int {
	if q.disabled() {
		return 0
	}
	q.mu.Lock()
	stale := make(map[string]struct{})
	for _, tag := range tags {
		for key := range q.keysByTag[tag] {
			stale[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(stale))
	for key := range stale {
		keys = append(keys, key)
	}
	q.mu.Unlock()
	// Delete fires the eviction hook, which takes the index lock; it must run
	// outside our own critical section.
	for _, key := range keys {
		q.entries.Delete(key)
	}
	return len(keys)
}

// flush drops every entry and resets the tag index.
func (q *queryCache) flush() {
	if q.disabled() {
		return
	}
	// Flush does not run eviction hooks, so the index is reset by hand.
	q.entries.Flush()
	q.mu.Lock()
	q.keysByTag = make(map[string]map[string]struct{})
	q.tagsByKey = make(map[string][]string)
	q.mu.Unlock()
}

func (q *queryCache) len() int {
	if q.disabled() {
		return 0
	}
	return q.entries.ItemCount()
}

func (q *queryCache) dropKeyLocked(key string) {
	for _, tag := range q.tagsByKey[key] {
		if keys := q.keysByTag[tag]; keys != nil {
			delete(keys, key)
			if len(keys) == 0 {
				delete(q.keysByTag, tag)
			}
		}
	}
	delete(q.tagsByKey, key)
}

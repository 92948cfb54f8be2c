// Package favorites persists a user's favorite records and serves reads
// through a tag-invalidated query cache.
//
// A Favorites handle wraps a favcore.Store. Writes (Add, Remove, Toggle,
// Clear) go straight to the store and, only when the store succeeds, drop the
// cached queries they staled. Reads (IsFavorite, Get, List, Count) are served
// from the cache while fresh and fall through to the store otherwise; a store
// read error is returned to the caller rather than papered over with stale
// data.
//
// Handles are safe for concurrent use. Processes sharing one store can
// additionally share an InvalidationBus so a write in one process drops the
// matching cached queries in the others.
package favorites

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/goforj/favorites/favcore"
)

const (
	defaultReadTTL    = 30 * time.Second
	defaultCacheSweep = time.Minute
)

// Favorites coordinates a favcore.Store with a query cache and an optional
// invalidation bus. Construct handles with New or Open; the zero value is not
// usable.
type Favorites struct {
	store    favcore.Store
	cache    *queryCache
	bus      InvalidationBus
	logger   *slog.Logger
	observer Observer

	readTTL time.Duration
	sweep   time.Duration

	unsubscribe func()
	closed      atomic.Bool
}

// getResult is the cached shape of a Get: the record plus whether it existed,
// so absent records are cached as firmly as present ones.
type getResult struct {
	rec favcore.Record
	ok  bool
}

// New wraps store in a Favorites handle. It panics if store is nil; that is a
// wiring mistake, not a runtime condition.
//
// Example:
//
//	store, err := sqlitestore.New(sqlitestore.Config{Path: "favorites.db"})
//	if err != nil {
//		return err
//	}
//	fav := favorites.New(store, favorites.WithReadTTL(10*time.Second))
//	defer fav.Close()
//
//	if _, err := fav.Add(ctx, favcore.Record{ID: 42, Name: "Blue Bottle"}); err != nil {
//		return err
//	}
func New(store favcore.Store, opts ...Option) *Favorites {
	if store == nil {
		panic("favorites: nil store")
	}
	f := &Favorites{
		store:   store,
		bus:     NopBus{},
		logger:  slog.Default(),
		readTTL: defaultReadTTL,
		sweep:   defaultCacheSweep,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.cache = newQueryCache(f.readTTL, f.sweep)
	if _, nop := f.bus.(NopBus); !nop {
		unsubscribe, err := f.bus.Subscribe(f.applyRemoteInvalidation)
		if err != nil {
			// The handle still works without remote invalidation; cached
			// reads are bounded by the TTL either way.
			f.logger.Warn("favorites: bus subscribe failed", "error", err)
		} else {
			f.unsubscribe = unsubscribe
		}
	}
	return f
}

// Store returns the underlying store.
func (f *Favorites) Store() favcore.Store { return f.store }

// Driver reports the underlying store's driver.
func (f *Favorites) Driver() favcore.Driver { return f.store.Driver() }

// Ready reports whether the underlying store can serve requests.
func (f *Favorites) Ready(ctx context.Context) error { return f.store.Ready(ctx) }

// Add inserts the record, or replaces the stored name and image if the id is
// already a favorite. The returned record carries the persisted timestamp,
// which on replace is the original insert's. Cached queries touching the id
// are dropped only after the store reports success.
func (f *Favorites) Add(ctx context.Context, rec favcore.Record) (favcore.Record, error) {
	start := time.Now()
	stored, err := f.store.Save(ctx, rec)
	if err != nil {
		f.observe(ctx, "add", rec.ID, false, err, start)
		return favcore.Record{}, err
	}
	f.invalidate(ctx, mutationTags(stored.ID))
	f.observe(ctx, "add", stored.ID, false, nil, start)
	return stored, nil
}

// Remove deletes the record with the given id. Removing an id that is not a
// favorite is not an error.
func (f *Favorites) Remove(ctx context.Context, id int64) error {
	start := time.Now()
	if err := f.store.Remove(ctx, id); err != nil {
		f.observe(ctx, "remove", id, false, err, start)
		return err
	}
	f.invalidate(ctx, mutationTags(id))
	f.observe(ctx, "remove", id, false, nil, start)
	return nil
}

// Toggle flips the record's membership in a single store round trip and
// reports the resulting state: true when the record is now a favorite. The
// store decides the outcome, so two processes toggling the same id
// concurrently end up with one add and one remove.
func (f *Favorites) Toggle(ctx context.Context, rec favcore.Record) (bool, error) {
	start := time.Now()
	nowFavorite, err := f.store.Toggle(ctx, rec)
	if err != nil {
		f.observe(ctx, "toggle", rec.ID, false, err, start)
		return false, err
	}
	f.invalidate(ctx, mutationTags(rec.ID))
	f.observe(ctx, "toggle", rec.ID, false, nil, start)
	return nowFavorite, nil
}

// Clear removes every favorite.
func (f *Favorites) Clear(ctx context.Context) error {
	start := time.Now()
	if err := f.store.Clear(ctx); err != nil {
		f.observe(ctx, "clear", 0, false, err, start)
		return err
	}
	f.invalidate(ctx, []string{tagAll})
	f.observe(ctx, "clear", 0, false, nil, start)
	return nil
}

// IsFavorite reports whether the id is currently a favorite.
func (f *Favorites) IsFavorite(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	key := keyIsFavorite(id)
	if v, ok := f.cache.get(key); ok {
		if fav, ok := v.(bool); ok {
			f.observe(ctx, "is_favorite", id, true, nil, start)
			return fav, nil
		}
	}
	fav, err := f.store.IsFavorite(ctx, id)
	if err != nil {
		f.observe(ctx, "is_favorite", id, false, err, start)
		return false, err
	}
	f.cache.set(key, fav, mutationTags(id)...)
	f.observe(ctx, "is_favorite", id, false, nil, start)
	return fav, nil
}

// Get returns the stored record for id. The boolean reports whether the id is
// a favorite; absence is not an error.
func (f *Favorites) Get(ctx context.Context, id int64) (favcore.Record, bool, error) {
	start := time.Now()
	key := keyGet(id)
	if v, ok := f.cache.get(key); ok {
		if res, ok := v.(getResult); ok {
			f.observe(ctx, "get", id, true, nil, start)
			return res.rec, res.ok, nil
		}
	}
	rec, ok, err := f.store.Get(ctx, id)
	if err != nil {
		f.observe(ctx, "get", id, false, err, start)
		return favcore.Record{}, false, err
	}
	f.cache.set(key, getResult{rec: rec, ok: ok}, mutationTags(id)...)
	f.observe(ctx, "get", id, false, nil, start)
	return rec, ok, nil
}

// List returns every favorite, newest first. Records with equal timestamps
// are ordered by descending id. The returned slice is the caller's to keep.
func (f *Favorites) List(ctx context.Context) ([]favcore.Record, error) {
	start := time.Now()
	if v, ok := f.cache.get(keyList); ok {
		if recs, ok := v.([]favcore.Record); ok {
			f.observe(ctx, "list", 0, true, nil, start)
			return cloneRecords(recs), nil
		}
	}
	recs, err := f.store.List(ctx)
	if err != nil {
		f.observe(ctx, "list", 0, false, err, start)
		return nil, err
	}
	// Cache a private snapshot; the slice handed back belongs to the caller.
	f.cache.set(keyList, cloneRecords(recs), tagAll)
	f.observe(ctx, "list", 0, false, nil, start)
	return recs, nil
}

// Count returns the number of favorites.
func (f *Favorites) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	if v, ok := f.cache.get(keyCount); ok {
		if n, ok := v.(int64); ok {
			f.observe(ctx, "count", 0, true, nil, start)
			return n, nil
		}
	}
	n, err := f.store.Count(ctx)
	if err != nil {
		f.observe(ctx, "count", 0, false, err, start)
		return 0, err
	}
	f.cache.set(keyCount, n, tagAll)
	f.observe(ctx, "count", 0, false, nil, start)
	return n, nil
}

// InvalidateCache drops every cached query on this handle. Use it after
// writes that bypassed the handle, for example a bulk import straight into
// the backing table.
func (f *Favorites) InvalidateCache() {
	f.cache.flush()
	f.logger.Debug("favorites: cache flushed")
}

// Close cancels the bus subscription and closes the underlying store. It is
// safe to call more than once.
func (f *Favorites) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
	f.cache.flush()
	return f.store.Close()
}

// invalidate drops local cache entries matching tags and broadcasts them to
// peers. A publish failure does not fail the write that triggered it; peers
// fall back to their TTL.
func (f *Favorites) invalidate(ctx context.Context, tags []string) {
	dropped := f.cache.invalidate(tags...)
	if dropped > 0 {
		f.logger.Debug("favorites: cache invalidated", "tags", tags, "dropped", dropped)
	}
	if err := f.bus.Publish(ctx, tags); err != nil {
		f.logger.Warn("favorites: invalidation publish failed", "tags", tags, "error", err)
	}
}

// applyRemoteInvalidation handles tags published by other processes.
func (f *Favorites) applyRemoteInvalidation(tags []string) {
	dropped := f.cache.invalidate(tags...)
	if dropped > 0 {
		f.logger.Debug("favorites: cache invalidated by peer", "tags", tags, "dropped", dropped)
	}
}

func (f *Favorites) observe(ctx context.Context, op string, id int64, hit bool, err error, start time.Time) {
	if f.observer == nil {
		return
	}
	f.observer.OnFavoritesOp(ctx, op, id, hit, err, time.Since(start), f.store.Driver())
}

func cloneRecords(recs []favcore.Record) []favcore.Record {
	out := make([]favcore.Record, len(recs))
	copy(out, recs)
	return out
}

package favfake

import (
	"context"
	"sync"
	"testing"

	"github.com/goforj/favorites/driver/memorystore"
	"github.com/goforj/favorites/favcore"
)

// Op identifies a store operation for assertions.
type Op string

const (
	OpReady      Op = "ready"
	OpSave       Op = "save"
	OpRemove     Op = "remove"
	OpToggle     Op = "toggle"
	OpIsFavorite Op = "is_favorite"
	OpGet        Op = "get"
	OpList       Op = "list"
	OpCount      Op = "count"
	OpClear      Op = "clear"
)

// Store is a deterministic in-memory favcore.Store with call counting and
// fault injection, for exercising code under test without external services.
// Set-wide operations (List, Count, Clear, Ready) record against ID 0.
type Store struct {
	inner *memorystore.Store

	mu       sync.Mutex
	counts   map[Op]map[int64]int
	failures map[Op]error
}

var _ favcore.Store = (*Store)(nil)

// New creates an empty fake store.
func New() *Store {
	return &Store{
		inner:    memorystore.New(),
		counts:   make(map[Op]map[int64]int),
		failures: make(map[Op]error),
	}
}

// FailWith makes every subsequent call of op return err. A nil err clears
// the injected failure.
func (f *Store) FailWith(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failures, op)
		return
	}
	f.failures[op] = err
}

// Reset clears recorded counts and injected failures. Stored records stay.
func (f *Store) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts = make(map[Op]map[int64]int)
	f.failures = make(map[Op]error)
}

// AssertCalled verifies id was touched by op the expected number of times.
func (f *Store) AssertCalled(t *testing.T, op Op, id int64, times int) {
	t.Helper()
	if got := f.Calls(op, id); got != times {
		t.Fatalf("expected %s id=%d called %d times, got %d", op, id, times, got)
	}
}

// AssertNotCalled ensures id was never touched by op.
func (f *Store) AssertNotCalled(t *testing.T, op Op, id int64) {
	t.Helper()
	if got := f.Calls(op, id); got != 0 {
		t.Fatalf("expected %s id=%d not called, got %d", op, id, got)
	}
}

// AssertTotal ensures the total call count for an op matches times.
func (f *Store) AssertTotal(t *testing.T, op Op, times int) {
	t.Helper()
	if got := f.Total(op); got != times {
		t.Fatalf("expected %s total=%d, got %d", op, times, got)
	}
}

// Calls returns recorded calls for op+id.
func (f *Store) Calls(op Op, id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		return 0
	}
	return f.counts[op][id]
}

// Total returns total calls for an op across ids.
func (f *Store) Total(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum int
	for _, v := range f.counts[op] {
		sum += v
	}
	return sum
}

func (f *Store) bump(op Op, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[op] == nil {
		f.counts[op] = make(map[int64]int)
	}
	f.counts[op][id]++
	return f.failures[op]
}

func (f *Store) Driver() favcore.Driver { return f.inner.Driver() }

func (f *Store) Ready(ctx context.Context) error {
	if err := f.bump(OpReady, 0); err != nil {
		return err
	}
	return f.inner.Ready(ctx)
}

func (f *Store) Save(ctx context.Context, rec favcore.Record) (favcore.Record, error) {
	if err := f.bump(OpSave, rec.ID); err != nil {
		return favcore.Record{}, err
	}
	return f.inner.Save(ctx, rec)
}

func (f *Store) Remove(ctx context.Context, id int64) error {
	if err := f.bump(OpRemove, id); err != nil {
		return err
	}
	return f.inner.Remove(ctx, id)
}

func (f *Store) Toggle(ctx context.Context, rec favcore.Record) (bool, error) {
	if err := f.bump(OpToggle, rec.ID); err != nil {
		return false, err
	}
	return f.inner.Toggle(ctx, rec)
}

func (f *Store) IsFavorite(ctx context.Context, id int64) (bool, error) {
	if err := f.bump(OpIsFavorite, id); err != nil {
		return false, err
	}
	return f.inner.IsFavorite(ctx, id)
}

func (f *Store) Get(ctx context.Context, id int64) (favcore.Record, bool, error) {
	if err := f.bump(OpGet, id); err != nil {
		return favcore.Record{}, false, err
	}
	return f.inner.Get(ctx, id)
}

func (f *Store) List(ctx context.Context) ([]favcore.Record, error) {
	if err := f.bump(OpList, 0); err != nil {
		return nil, err
	}
	return f.inner.List(ctx)
}

func (f *Store) Count(ctx context.Context) (int64, error) {
	if err := f.bump(OpCount, 0); err != nil {
		return 0, err
	}
	return f.inner.Count(ctx)
}

func (f *Store) Clear(ctx context.Context) error {
	if err := f.bump(OpClear, 0); err != nil {
		return err
	}
	return f.inner.Clear(ctx)
}

func (f *Store) Close() error { return f.inner.Close() }

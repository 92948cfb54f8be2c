//go:build integration

package all

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goforj/favorites"
	"github.com/goforj/favorites/favcore"
)

// TestFacadeScenario_AllDrivers drives the cached facade end to end against
// every selected backend: writes invalidate, repeated reads hit the cache,
// and reads after a write see fresh data.
func TestFacadeScenario_AllDrivers(t *testing.T) {
	fixtures := integrationFixtures(t)
	if len(fixtures) == 0 {
		t.Skip("no integration drivers selected")
	}

	for _, fx := range fixtures {
		fx := fx
		t.Run(fx.name, func(t *testing.T) {
			if fx.opts.NullSemantics {
				t.Skip("null driver serves no persisted reads")
			}
			store, cleanup := fx.new(t)
			t.Cleanup(cleanup)
			runFacadeScenario(t, store)
		})
	}
}

func runFacadeScenario(t *testing.T, store favcore.Store) {
	t.Helper()
	ctx := context.Background()

	var listHits, listMisses atomic.Int64
	fav := favorites.New(store, favorites.WithObserver(favorites.ObserverFunc(
		func(_ context.Context, op string, _ int64, hit bool, err error, _ time.Duration, _ favcore.Driver) {
			if op != "list" || err != nil {
				return
			}
			if hit {
				listHits.Add(1)
			} else {
				listMisses.Add(1)
			}
		})))
	t.Cleanup(func() { _ = fav.Close() })

	if err := fav.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	base := time.Now().Add(-time.Hour).UTC().Truncate(time.Millisecond)
	for i := 1; i <= 3; i++ {
		rec := favcore.Record{
			ID:        int64(i),
			Name:      fmt.Sprintf("item %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := fav.Add(ctx, rec); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	first, err := fav.List(ctx)
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	if len(first) != 3 || first[0].ID != 3 || first[1].ID != 2 || first[2].ID != 1 {
		t.Fatalf("expected newest-first [3 2 1], got %v", recordIDs(first))
	}

	second, err := fav.List(ctx)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if len(second) != 3 {
		t.Fatalf("expected cached list of 3, got %v", recordIDs(second))
	}
	if listMisses.Load() != 1 || listHits.Load() != 1 {
		t.Fatalf("expected one miss then one hit, got misses=%d hits=%d", listMisses.Load(), listHits.Load())
	}

	if err := fav.Remove(ctx, 3); err != nil {
		t.Fatalf("remove: %v", err)
	}

	third, err := fav.List(ctx)
	if err != nil {
		t.Fatalf("list after remove: %v", err)
	}
	if len(third) != 2 || third[0].ID != 2 || third[1].ID != 1 {
		t.Fatalf("expected refreshed list [2 1] after remove, got %v", recordIDs(third))
	}
	if listMisses.Load() != 2 {
		t.Fatalf("expected remove to invalidate cached list, misses=%d", listMisses.Load())
	}

	n, err := fav.Count(ctx)
	if err != nil || n != 2 {
		t.Fatalf("expected count 2, got %d err=%v", n, err)
	}

	on, err := fav.Toggle(ctx, favcore.Record{ID: 9, Name: "toggled"})
	if err != nil || !on {
		t.Fatalf("expected toggle on, got on=%v err=%v", on, err)
	}
	if isFav, err := fav.IsFavorite(ctx, 9); err != nil || !isFav {
		t.Fatalf("expected id 9 favorite after toggle, got %v err=%v", isFav, err)
	}
	on, err = fav.Toggle(ctx, favcore.Record{ID: 9, Name: "toggled"})
	if err != nil || on {
		t.Fatalf("expected toggle off, got on=%v err=%v", on, err)
	}

	if err := fav.Clear(ctx); err != nil {
		t.Fatalf("final clear: %v", err)
	}
	n, err = fav.Count(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected count 0 after clear, got %d err=%v", n, err)
	}
}

func recordIDs(recs []favcore.Record) []int64 {
	ids := make([]int64, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

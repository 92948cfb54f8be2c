package favtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goforj/favorites/favcore"
)

// Options configures shared store contract checks.
type Options struct {
	// CaseName labels the run in failure output. Defaults to t.Name().
	CaseName string
	// NullSemantics enables relaxed expectations for the null store.
	NullSemantics bool
	// BaseID offsets the fixed record IDs so suites sharing a backend
	// namespace stay out of each other's way.
	BaseID int64
}

// Store is the minimal contract required by RunStoreContract.
type Store = favcore.Store

// RunStoreContract runs a backend-agnostic favorites store contract suite.
// The store is cleared up front; the suite owns its namespace for the run.
func RunStoreContract(t *testing.T, store Store, opts Options) {
	t.Helper()

	caseName := opts.CaseName
	if caseName == "" {
		caseName = t.Name()
	}
	base := opts.BaseID
	if base <= 0 {
		base = 1000
	}
	id := func(n int64) int64 { return base + n }

	ctx := context.Background()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("%s: clear failed: %v", caseName, err)
	}
	if err := store.Ready(ctx); err != nil {
		t.Fatalf("%s: ready failed: %v", caseName, err)
	}

	// Validation happens before the backend is touched.
	if _, err := store.Save(ctx, favcore.Record{ID: 0, Name: "x"}); !errors.Is(err, favcore.ErrInvalidRecord) {
		t.Fatalf("%s: expected invalid record for zero id, got %v", caseName, err)
	}
	if _, err := store.Save(ctx, favcore.Record{ID: id(1), Name: "  "}); !errors.Is(err, favcore.ErrInvalidRecord) {
		t.Fatalf("%s: expected invalid record for blank name, got %v", caseName, err)
	}
	if _, err := store.Toggle(ctx, favcore.Record{ID: -3, Name: "x"}); !errors.Is(err, favcore.ErrInvalidRecord) {
		t.Fatalf("%s: expected invalid record on toggle, got %v", caseName, err)
	}

	// Save/Get round-trip. The store stamps CreatedAt when the caller
	// leaves it zero.
	saved, err := store.Save(ctx, favcore.Record{ID: id(1), Name: "First", ImageURL: "https://img.example/1.png"})
	if err != nil {
		t.Fatalf("%s: save failed: %v", caseName, err)
	}
	if saved.CreatedAt.IsZero() {
		t.Fatalf("%s: expected save to stamp created at", caseName)
	}
	got, ok, err := store.Get(ctx, id(1))
	if err != nil {
		t.Fatalf("%s: get failed: %v", caseName, err)
	}
	if opts.NullSemantics {
		if ok {
			t.Fatalf("%s: expected miss for null semantics", caseName)
		}
	} else {
		if !ok || got.Name != "First" || got.ImageURL != "https://img.example/1.png" {
			t.Fatalf("%s: unexpected get result: ok=%v rec=%+v", caseName, ok, got)
		}
		if !got.CreatedAt.Equal(saved.CreatedAt) {
			t.Fatalf("%s: created at drifted between save and get: %v vs %v", caseName, saved.CreatedAt, got.CreatedAt)
		}
	}
	fav, err := store.IsFavorite(ctx, id(1))
	if err != nil {
		t.Fatalf("%s: is favorite failed: %v", caseName, err)
	}
	if !opts.NullSemantics && !fav {
		t.Fatalf("%s: expected id to be favorite after save", caseName)
	}

	// Replacing a record updates its fields but keeps the original
	// CreatedAt, so list position survives metadata edits.
	if !opts.NullSemantics {
		resaved, err := store.Save(ctx, favcore.Record{ID: id(1), Name: "First Updated"})
		if err != nil {
			t.Fatalf("%s: re-save failed: %v", caseName, err)
		}
		if !resaved.CreatedAt.Equal(saved.CreatedAt) {
			t.Fatalf("%s: expected re-save to keep created at %v, got %v", caseName, saved.CreatedAt, resaved.CreatedAt)
		}
		got, ok, err = store.Get(ctx, id(1))
		if err != nil || !ok {
			t.Fatalf("%s: get after re-save failed: ok=%v err=%v", caseName, ok, err)
		}
		if got.Name != "First Updated" || got.ImageURL != "" {
			t.Fatalf("%s: expected re-save to replace fields, got %+v", caseName, got)
		}
		if !got.CreatedAt.Equal(saved.CreatedAt) {
			t.Fatalf("%s: expected re-save to keep created at %v, got %v", caseName, saved.CreatedAt, got.CreatedAt)
		}
	}

	// Remove is idempotent: repeat removes and never-added IDs are no-ops.
	if err := store.Remove(ctx, id(1)); err != nil {
		t.Fatalf("%s: remove failed: %v", caseName, err)
	}
	if fav, err := store.IsFavorite(ctx, id(1)); err != nil || fav {
		t.Fatalf("%s: expected removed id to not be favorite: fav=%v err=%v", caseName, fav, err)
	}
	if err := store.Remove(ctx, id(1)); err != nil {
		t.Fatalf("%s: repeat remove failed: %v", caseName, err)
	}
	if err := store.Remove(ctx, id(98)); err != nil {
		t.Fatalf("%s: remove of unknown id failed: %v", caseName, err)
	}
	if _, ok, err := store.Get(ctx, id(98)); err != nil || ok {
		t.Fatalf("%s: expected miss for unknown id: ok=%v err=%v", caseName, ok, err)
	}

	// Listing is newest-first with ID as the tie-break. Explicit timestamps
	// keep the expectation exact.
	t0 := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
	for i, rec := range []favcore.Record{
		{ID: id(2), Name: "Second", CreatedAt: t0},
		{ID: id(3), Name: "Third", CreatedAt: t0.Add(10 * time.Millisecond)},
		{ID: id(4), Name: "Fourth", CreatedAt: t0.Add(20 * time.Millisecond)},
		{ID: id(5), Name: "Fifth", CreatedAt: t0.Add(30 * time.Millisecond)},
		{ID: id(6), Name: "Sixth", CreatedAt: t0.Add(30 * time.Millisecond)},
	} {
		stored, err := store.Save(ctx, rec)
		if err != nil {
			t.Fatalf("%s: save %d failed: %v", caseName, i, err)
		}
		if !opts.NullSemantics && !stored.CreatedAt.Equal(rec.CreatedAt) {
			t.Fatalf("%s: expected save to honor provided created at, got %v want %v", caseName, stored.CreatedAt, rec.CreatedAt)
		}
	}
	listed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("%s: list failed: %v", caseName, err)
	}
	if opts.NullSemantics {
		if len(listed) != 0 {
			t.Fatalf("%s: expected empty list for null semantics, got %d", caseName, len(listed))
		}
	} else {
		want := []int64{id(6), id(5), id(4), id(3), id(2)}
		if len(listed) != len(want) {
			t.Fatalf("%s: expected %d records, got %d", caseName, len(want), len(listed))
		}
		for i, rec := range listed {
			if rec.ID != want[i] {
				t.Fatalf("%s: unexpected list order at %d: got %d want %d", caseName, i, rec.ID, want[i])
			}
		}
	}

	// Toggle flips presence atomically and reports the new state.
	on, err := store.Toggle(ctx, favcore.Record{ID: id(7), Name: "Seventh"})
	if err != nil {
		t.Fatalf("%s: toggle on failed: %v", caseName, err)
	}
	if !on {
		t.Fatalf("%s: expected first toggle to add", caseName)
	}
	if !opts.NullSemantics {
		if fav, err := store.IsFavorite(ctx, id(7)); err != nil || !fav {
			t.Fatalf("%s: expected toggled id to be favorite: fav=%v err=%v", caseName, fav, err)
		}
		on, err = store.Toggle(ctx, favcore.Record{ID: id(7), Name: "Seventh"})
		if err != nil {
			t.Fatalf("%s: toggle off failed: %v", caseName, err)
		}
		if on {
			t.Fatalf("%s: expected second toggle to remove", caseName)
		}
		if fav, err := store.IsFavorite(ctx, id(7)); err != nil || fav {
			t.Fatalf("%s: expected toggled-off id to not be favorite: fav=%v err=%v", caseName, fav, err)
		}
	}

	// Count and Clear.
	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("%s: count failed: %v", caseName, err)
	}
	if opts.NullSemantics {
		if n != 0 {
			t.Fatalf("%s: expected null-like count 0, got %d", caseName, n)
		}
	} else if n != 5 {
		t.Fatalf("%s: expected count 5, got %d", caseName, n)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("%s: clear failed: %v", caseName, err)
	}
	if n, err := store.Count(ctx); err != nil || n != 0 {
		t.Fatalf("%s: expected empty store after clear: n=%d err=%v", caseName, n, err)
	}
	if listed, err := store.List(ctx); err != nil || len(listed) != 0 {
		t.Fatalf("%s: expected empty list after clear: n=%d err=%v", caseName, len(listed), err)
	}
}

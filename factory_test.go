package favorites

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goforj/favorites/favcore"
)

func TestNewStoreDefaultsToMemory(t *testing.T) {
	store := NewStore(context.Background(), StoreConfig{})
	if store.Driver() != DriverMemory {
		t.Fatalf("expected memory driver, got %s", store.Driver())
	}
}

func TestNewStoreNull(t *testing.T) {
	store := NewStore(context.Background(), StoreConfig{Driver: DriverNull})
	if store.Driver() != DriverNull {
		t.Fatalf("expected null driver, got %s", store.Driver())
	}
}

func TestNewRedisStoreWithoutClientFailsReady(t *testing.T) {
	ctx := context.Background()
	store := NewRedisStore(ctx, nil)
	if store.Driver() != DriverRedis {
		t.Fatalf("expected redis driver, got %s", store.Driver())
	}
	if err := store.Ready(ctx); err == nil {
		t.Fatalf("expected ready to fail without a client")
	}
}

func TestNewSQLiteStoreHelper(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "favorites.db"))
	if store.Driver() != DriverSQLite {
		t.Fatalf("expected sqlite driver, got %s", store.Driver())
	}
	if err := store.Ready(ctx); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}

func TestNewFileStoreHelper(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(ctx, t.TempDir())
	if store.Driver() != DriverFile {
		t.Fatalf("expected file driver, got %s", store.Driver())
	}
	if err := store.Ready(ctx); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
}

func TestNewNullAndMemoryHelpers(t *testing.T) {
	ctx := context.Background()
	if NewMemoryStore(ctx).Driver() != DriverMemory {
		t.Fatalf("expected memory helper driver")
	}
	if NewNullStore().Driver() != DriverNull {
		t.Fatalf("expected null helper driver")
	}
}

func TestOpenMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	fav, err := Open(ctx, StoreConfig{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer fav.Close()

	if _, err := fav.Add(ctx, favcore.Record{ID: 1, Name: "First"}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	recs, err := fav.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != 1 {
		t.Fatalf("unexpected list: %+v", recs)
	}
}

func TestOpenFailsWhenStoreNotReady(t *testing.T) {
	if _, err := Open(context.Background(), StoreConfig{Driver: DriverRedis}); err == nil {
		t.Fatalf("expected open to fail without a redis client")
	}
}

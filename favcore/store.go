package favcore

import (
	"context"
)

// Store is the shared favorites persistence contract.
//
// A Store keeps at most one record per ID. Writes are last-write-wins on
// Name and ImageURL; CreatedAt is stamped on first insert and survives
// replacement. Every implementation must be safe for concurrent use.
type Store interface {
	Driver() Driver
	Ready(ctx context.Context) error
	Save(ctx context.Context, rec Record) (Record, error)
	Remove(ctx context.Context, id int64) error
	Toggle(ctx context.Context, rec Record) (bool, error)
	IsFavorite(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (Record, bool, error)
	List(ctx context.Context) ([]Record, error)
	Count(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
	Close() error
}

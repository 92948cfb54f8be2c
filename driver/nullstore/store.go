package nullstore

import (
	"context"
	"time"

	"github.com/goforj/favorites/favcore"
)

// Store accepts every write and drops it; reads always see an empty set.
// It turns the favorites feature off without nil checks at call sites.
type Store struct{}

var _ favcore.Store = (*Store)(nil)

// New builds a no-op favcore.Store.
func New() *Store { return &Store{} }

func (s *Store) Driver() favcore.Driver { return favcore.DriverNull }

func (s *Store) Ready(context.Context) error { return nil }

func (s *Store) Save(_ context.Context, rec favcore.Record) (favcore.Record, error) {
	if err := rec.Validate(); err != nil {
		return favcore.Record{}, err
	}
	return favcore.Stamp(rec, time.Now()), nil
}

func (s *Store) Remove(context.Context, int64) error { return nil }

func (s *Store) Toggle(_ context.Context, rec favcore.Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}
	// The set always looks empty, so a flip always lands on "added".
	return true, nil
}

func (s *Store) IsFavorite(context.Context, int64) (bool, error) { return false, nil }

func (s *Store) Get(context.Context, int64) (favcore.Record, bool, error) {
	return favcore.Record{}, false, nil
}

func (s *Store) List(context.Context) ([]favcore.Record, error) {
	return []favcore.Record{}, nil
}

func (s *Store) Count(context.Context) (int64, error) { return 0, nil }

func (s *Store) Clear(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

package favorites

import (
	"context"

	"github.com/goforj/favorites/favcore"
)

// errorStore is returned when a driver fails to initialize; it preserves the
// driver identity while surfacing the construction error on every call.
type errorStore struct {
	driver favcore.Driver
	err    error
}

func newErrorStore(driver favcore.Driver, err error) *errorStore {
	return &errorStore{driver: driver, err: err}
}

func (e *errorStore) Driver() favcore.Driver      { return e.driver }
func (e *errorStore) Ready(context.Context) error { return e.err }
func (e *errorStore) Save(context.Context, favcore.Record) (favcore.Record, error) {
	return favcore.Record{}, e.err
}
func (e *errorStore) Remove(context.Context, int64) error { return e.err }
func (e *errorStore) Toggle(context.Context, favcore.Record) (bool, error) {
	return false, e.err
}
func (e *errorStore) IsFavorite(context.Context, int64) (bool, error) { return false, e.err }
func (e *errorStore) Get(context.Context, int64) (favcore.Record, bool, error) {
	return favcore.Record{}, false, e.err
}
func (e *errorStore) List(context.Context) ([]favcore.Record, error) { return nil, e.err }
func (e *errorStore) Count(context.Context) (int64, error)           { return 0, e.err }
func (e *errorStore) Clear(context.Context) error                    { return e.err }
func (e *errorStore) Close() error                                   { return nil }

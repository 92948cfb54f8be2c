package favorites

import (
	"context"
	"time"

	"github.com/goforj/favorites/favcore"
)

// Observer receives events for favorites operations.
// It is called from Favorites helpers after each operation completes. The hit
// flag is true only for reads answered by the query cache; id is 0 for
// set-wide operations such as list, count, and clear.
type Observer interface {
	OnFavoritesOp(ctx context.Context, op string, id int64, hit bool, err error, dur time.Duration, driver favcore.Driver)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, op string, id int64, hit bool, err error, dur time.Duration, driver favcore.Driver)

// OnFavoritesOp implements Observer.
func (f ObserverFunc) OnFavoritesOp(ctx context.Context, op string, id int64, hit bool, err error, dur time.Duration, driver favcore.Driver) {
	if f == nil {
		return
	}
	f(ctx, op, id, hit, err, dur, driver)
}

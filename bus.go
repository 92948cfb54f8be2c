package favorites

import "context"

// InvalidationBus carries cache invalidation tags between processes that
// share one store. A Favorites handle publishes the tags of every successful
// write and drops its own cached queries when tags arrive from elsewhere.
type InvalidationBus interface {
	// Publish broadcasts the tags staled by a local write.
	Publish(ctx context.Context, tags []string) error
	// Subscribe registers fn for tags published by other processes and
	// returns a function that cancels the subscription.
	Subscribe(fn func(tags []string)) (unsubscribe func(), err error)
}

// NopBus is the default bus: publishes are discarded and nothing is ever
// delivered. Single-process deployments need nothing more.
type NopBus struct{}

// Publish implements InvalidationBus.
func (NopBus) Publish(context.Context, []string) error { return nil }

// Subscribe implements InvalidationBus.
func (NopBus) Subscribe(func(tags []string)) (func(), error) {
	return func() {}, nil
}

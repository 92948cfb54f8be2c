package favorites

import (
	"context"

	"github.com/goforj/favorites/driver/dynamostore"
	"github.com/goforj/favorites/driver/redisstore"
	"github.com/goforj/favorites/favcore"
)

// RedisClient is the client surface the redis driver needs; *redis.Client and
// *redis.ClusterClient both satisfy it.
type RedisClient = redisstore.Client

// DynamoAPI is the client surface the dynamo driver needs.
type DynamoAPI = dynamostore.DynamoAPI

// CoreAPI exposes handle metadata and lifecycle.
type CoreAPI interface {
	Driver() favcore.Driver
	Store() favcore.Store
	Ready(ctx context.Context) error
	Close() error
}

// ReadAPI exposes the cached read operations.
type ReadAPI interface {
	IsFavorite(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (favcore.Record, bool, error)
	List(ctx context.Context) ([]favcore.Record, error)
	Count(ctx context.Context) (int64, error)
}

// MutateAPI exposes the write operations that keep the cache coherent.
type MutateAPI interface {
	Add(ctx context.Context, rec favcore.Record) (favcore.Record, error)
	Remove(ctx context.Context, id int64) error
	Toggle(ctx context.Context, rec favcore.Record) (bool, error)
	Clear(ctx context.Context) error
}

// CacheControlAPI exposes manual cache intervention.
type CacheControlAPI interface {
	InvalidateCache()
}

// API is the composed application-facing interface for Favorites.
type API interface {
	CoreAPI
	ReadAPI
	MutateAPI
	CacheControlAPI
}

var _ API = (*Favorites)(nil)

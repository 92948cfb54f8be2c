package favorites

import (
	"log/slog"
	"time"
)

// Option configures a Favorites handle at construction time.
type Option func(*Favorites)

// WithReadTTL sets how long cached query results stay fresh.
// A ttl <= 0 disables the read cache entirely; every read then goes to the
// store.
func WithReadTTL(ttl time.Duration) Option {
	return func(f *Favorites) {
		f.readTTL = ttl
	}
}

// WithCacheSweep overrides the interval at which expired cache entries are
// collected.
func WithCacheSweep(interval time.Duration) Option {
	return func(f *Favorites) {
		f.sweep = interval
	}
}

// WithLogger sets the structured logger. A nil logger keeps slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Favorites) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithObserver attaches an observer that receives an event per operation.
func WithObserver(o Observer) Option {
	return func(f *Favorites) {
		f.observer = o
	}
}

// WithBus connects the handle to an invalidation bus so that writes made by
// other processes sharing the store drop the matching cached queries here.
func WithBus(bus InvalidationBus) Option {
	return func(f *Favorites) {
		if bus != nil {
			f.bus = bus
		}
	}
}

// StoreOption mutates StoreConfig when constructing a store.
type StoreOption func(StoreConfig) StoreConfig

// WithPrefix sets the namespace prefix for shared backends (redis, dynamo).
func WithPrefix(prefix string) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.Prefix = prefix
		return cfg
	}
}

// WithTable sets the table name for the sql and dynamo drivers.
func WithTable(table string) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.Table = table
		return cfg
	}
}

// WithPath sets the sqlite database file or the file driver's directory.
func WithPath(path string) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.Path = path
		return cfg
	}
}

// WithDSN sets the connection string for the postgres and mysql drivers.
func WithDSN(dsn string) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.DSN = dsn
		return cfg
	}
}

// WithRedisClient sets the redis client; required when using DriverRedis.
func WithRedisClient(client RedisClient) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.RedisClient = client
		return cfg
	}
}

// WithDynamoClient sets the dynamo client; when unset the dynamo driver
// builds one from Region and Endpoint.
func WithDynamoClient(client DynamoAPI) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.DynamoClient = client
		return cfg
	}
}

// WithDynamoEndpoint points the dynamo driver at a custom endpoint, typically
// a local emulator.
func WithDynamoEndpoint(endpoint string) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.DynamoEndpoint = endpoint
		return cfg
	}
}

// WithDynamoRegion sets the AWS region for the dynamo driver.
func WithDynamoRegion(region string) StoreOption {
	return func(cfg StoreConfig) StoreConfig {
		cfg.DynamoRegion = region
		return cfg
	}
}

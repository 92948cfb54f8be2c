package favorites

import "github.com/goforj/favorites/favcore"

// StoreConfig controls how NewStore builds a store. Fields a driver does not
// use are ignored; fields it needs but are unset fall back to the driver's
// own defaults (table and file names, dynamo region).
type StoreConfig struct {
	Driver Driver

	// Prefix namespaces shared backends: redis key prefixes and dynamo
	// partition keys.
	Prefix string

	// Path is the sqlite database file, or the directory for the file driver.
	Path string

	// DSN is the connection string for the postgres and mysql drivers.
	DSN string

	// Table is the table name for the sql and dynamo drivers.
	Table string

	// RedisClient is required when DriverRedis is used.
	RedisClient RedisClient

	// DynamoClient overrides the client the dynamo driver would build from
	// DynamoRegion and DynamoEndpoint.
	DynamoClient   DynamoAPI
	DynamoRegion   string
	DynamoEndpoint string
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Driver == "" {
		c.Driver = DriverMemory
	}
	if c.Prefix == "" {
		c.Prefix = favcore.DefaultPrefix
	}
	return c
}

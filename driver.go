package favorites

import "github.com/goforj/favorites/favcore"

// Driver identifies the storage backend.
type Driver = favcore.Driver

const (
	DriverNull     = favcore.DriverNull
	DriverFile     = favcore.DriverFile
	DriverMemory   = favcore.DriverMemory
	DriverDynamo   = favcore.DriverDynamo
	DriverSQLite   = favcore.DriverSQLite
	DriverPostgres = favcore.DriverPostgres
	DriverMySQL    = favcore.DriverMySQL
	DriverRedis    = favcore.DriverRedis
)

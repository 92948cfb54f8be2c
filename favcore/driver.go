package favcore

// Driver identifies a favorites backend.
type Driver string

const (
	DriverNull     Driver = "null"
	DriverFile     Driver = "file"
	DriverMemory   Driver = "memory"
	DriverDynamo   Driver = "dynamodb"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverRedis    Driver = "redis"
)

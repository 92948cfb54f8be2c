package favcore

// DefaultPrefix namespaces shared backends (Redis keys, Dynamo items, file
// directories) when no prefix is configured.
const DefaultPrefix = "favorites"

// BaseConfig contains shared, backend-agnostic driver configuration.
type BaseConfig struct {
	Prefix string
}

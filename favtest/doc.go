// Package favtest provides reusable store contract tests for favcore.Store
// implementations.
//
// Driver packages can use this package from their own tests without importing
// root test helpers.
//
// Example pattern (driver package test):
//
//	func TestRedisStoreContract(t *testing.T) {
//		client := newTestRedisClient(t)
//		store := redisstore.New(redisstore.Config{
//			BaseConfig: favcore.BaseConfig{Prefix: "contract"},
//			Client:     client,
//		})
//
//		favtest.RunStoreContract(t, store, favtest.Options{CaseName: t.Name()})
//	}
//
// Example factory/cleanup wrapper:
//
//	func runContractWithFactory(t *testing.T, mk func(t *testing.T) (favcore.Store, func())) {
//		t.Helper()
//		store, cleanup := mk(t)
//		t.Cleanup(cleanup)
//		favtest.RunStoreContract(t, store, favtest.Options{CaseName: t.Name()})
//	}
package favtest

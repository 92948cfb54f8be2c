package mysqlstore

import (
	"database/sql"

	"github.com/goforj/favorites/driver/sqlcore"
	"github.com/goforj/favorites/favcore"
	_ "github.com/go-sql-driver/mysql"
)

// Config configures a MySQL-backed favorites store.
type Config struct {
	DSN string
	// DB is an optional shared handle, for apps that already own a pool.
	// DSN is ignored when set, and Close leaves the handle open.
	DB    *sql.DB
	Table string
}

// New builds a MySQL-backed favcore.Store.
func New(cfg Config) (favcore.Store, error) {
	return sqlcore.New(sqlcore.Config{
		DriverName: "mysql",
		DSN:        cfg.DSN,
		DB:         cfg.DB,
		Table:      cfg.Table,
	})
}

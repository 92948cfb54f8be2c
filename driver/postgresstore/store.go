package postgresstore

import (
	"database/sql"

	"github.com/goforj/favorites/driver/sqlcore"
	"github.com/goforj/favorites/favcore"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Config configures a Postgres-backed favorites store.
type Config struct {
	DSN string
	// DB is an optional shared handle, for apps that already own a pool.
	// DSN is ignored when set, and Close leaves the handle open.
	DB    *sql.DB
	Table string
}

// New builds a Postgres-backed favcore.Store using the pgx stdlib driver.
func New(cfg Config) (favcore.Store, error) {
	return sqlcore.New(sqlcore.Config{
		DriverName: "pgx",
		DSN:        cfg.DSN,
		DB:         cfg.DB,
		Table:      cfg.Table,
	})
}

package sqlitestore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goforj/favorites/driver/sqlcore"
	"github.com/goforj/favorites/favcore"
	_ "modernc.org/sqlite"
)

// Config configures a SQLite-backed favorites store.
type Config struct {
	// Path is the database file. ":memory:" and full file: DSNs pass through
	// untouched; plain paths get their parent directory created and WAL mode
	// enabled.
	Path  string
	Table string
}

// New builds a SQLite-backed favcore.Store.
func New(cfg Config) (favcore.Store, error) {
	path := cfg.Path
	if path == "" {
		path = "favorites.db"
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	return sqlcore.New(sqlcore.Config{
		DriverName: "sqlite",
		DSN:        dsn(path),
		Table:      cfg.Table,
	})
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	// WAL keeps readers unblocked during writes; the busy timeout rides out
	// writer contention instead of failing immediately.
	return "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

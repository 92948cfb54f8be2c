package sqlcore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goforj/favorites/favcore"
)

// Config configures the shared SQL-backed favorites store.
//
// Either DSN or DB must be set. A caller-provided DB is treated as shared:
// Close releases the prepared statements but leaves the handle open.
type Config struct {
	DriverName string // database/sql driver: "sqlite", "pgx", or "mysql"
	DSN        string
	DB         *sql.DB
	Table      string
}

type sqlStore struct {
	db         *sql.DB
	ownsDB     bool
	table      string
	driverName string
	closed     atomic.Bool

	getStmt    *sql.Stmt
	upsertStmt *sql.Stmt
	insertStmt *sql.Stmt
	removeStmt *sql.Stmt
	existsStmt *sql.Stmt
	listStmt   *sql.Stmt
	countStmt  *sql.Stmt
	clearStmt  *sql.Stmt
}

var sqlIdentPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// New opens (or adopts) the database, creates the schema when missing, and
// prepares the statement set.
func New(cfg Config) (favcore.Store, error) {
	if cfg.DriverName == "" {
		return nil, errors.New("sql favorites store requires a driver name")
	}
	db := cfg.DB
	ownsDB := false
	if db == nil {
		if cfg.DSN == "" {
			return nil, errors.New("sql favorites store requires a dsn or db handle")
		}
		var err error
		db, err = sql.Open(cfg.DriverName, cfg.DSN)
		if err != nil {
			return nil, err
		}
		ownsDB = true
		if cfg.DriverName == "sqlite" {
			// modernc sqlite allows one writer; funnel everything through it.
			db.SetMaxOpenConns(1)
		}
	}
	if err := db.Ping(); err != nil {
		if ownsDB {
			_ = db.Close()
		}
		return nil, err
	}
	table := cfg.Table
	if table == "" {
		table = "favorites"
	}
	if err := validateSQLTableName(table); err != nil {
		if ownsDB {
			_ = db.Close()
		}
		return nil, err
	}
	s := &sqlStore{
		db:         db,
		ownsDB:     ownsDB,
		table:      table,
		driverName: cfg.DriverName,
	}
	if err := s.ensureSchema(); err != nil {
		if ownsDB {
			_ = db.Close()
		}
		return nil, err
	}
	if err := s.prepareStatements(); err != nil {
		if ownsDB {
			_ = db.Close()
		}
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) Driver() favcore.Driver {
	switch s.driverName {
	case "postgres", "pgx":
		return favcore.DriverPostgres
	case "mysql":
		return favcore.DriverMySQL
	default:
		return favcore.DriverSQLite
	}
}

func (s *sqlStore) ensureSchema() error {
	var stmts []string
	switch s.driverName {
	case "postgres", "pgx":
		stmts = []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGINT PRIMARY KEY,
				name TEXT NOT NULL,
				image_url TEXT,
				created_at BIGINT NOT NULL
			);`, s.table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at DESC, id DESC);`, s.table, s.table),
		}
	case "mysql":
		// MySQL has no CREATE INDEX IF NOT EXISTS; declare the index inline.
		stmts = []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGINT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				image_url TEXT,
				created_at BIGINT NOT NULL,
				INDEX %s_created_at_idx (created_at DESC, id DESC)
			) ENGINE=InnoDB;`, s.table, s.table),
		}
	default: // sqlite
		stmts = []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL,
				image_url TEXT,
				created_at INTEGER NOT NULL
			);`, s.table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at DESC, id DESC);`, s.table, s.table),
		}
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) Ready(ctx context.Context) error {
	if s.closed.Load() {
		return favcore.ErrStoreClosed
	}
	if err := s.db.PingContext(ctx); err != nil {
		return s.wrap("ready", err)
	}
	return nil
}

func (s *sqlStore) Save(ctx context.Context, rec favcore.Record) (favcore.Record, error) {
	if s.closed.Load() {
		return favcore.Record{}, favcore.ErrStoreClosed
	}
	if err := rec.Validate(); err != nil {
		return favcore.Record{}, err
	}
	rec = favcore.Stamp(rec, time.Now())
	_, err := s.upsertStmt.ExecContext(ctx,
		rec.ID, rec.Name, nullableText(rec.ImageURL), rec.CreatedAt.UnixMilli(),
		rec.Name, nullableText(rec.ImageURL))
	if err != nil {
		return favcore.Record{}, s.wrap("save", err)
	}
	// The upsert keeps the original created_at on replace; read the row back
	// so callers see the persisted timestamp, not the stamp we just proposed.
	stored, ok, err := s.Get(ctx, rec.ID)
	if err != nil {
		return favcore.Record{}, err
	}
	if !ok {
		return rec, nil
	}
	return stored, nil
}

func (s *sqlStore) Remove(ctx context.Context, id int64) error {
	if s.closed.Load() {
		return favcore.ErrStoreClosed
	}
	if _, err := s.removeStmt.ExecContext(ctx, id); err != nil {
		return s.wrap("remove", err)
	}
	return nil
}

func (s *sqlStore) Toggle(ctx context.Context, rec favcore.Record) (bool, error) {
	if s.closed.Load() {
		return false, favcore.ErrStoreClosed
	}
	if err := rec.Validate(); err != nil {
		return false, err
	}
	// A lost insert race surfaces as a duplicate-key error; the row exists by
	// then, so one more pass lands on the remove branch.
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		on, err := s.toggleOnce(ctx, rec)
		if err != nil && isDuplicateErr(err, s.driverName) {
			lastErr = err
			continue
		}
		if err != nil {
			return false, s.wrap("toggle", err)
		}
		return on, nil
	}
	return false, s.wrap("toggle", lastErr)
}

func (s *sqlStore) toggleOnce(ctx context.Context, rec favcore.Record) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	selectSQL := fmt.Sprintf("SELECT created_at FROM %s WHERE id = %s", s.table, s.ph(1))
	if s.driverName == "postgres" || s.driverName == "pgx" || s.driverName == "mysql" {
		selectSQL += " FOR UPDATE"
	}
	var createdMs int64
	err = tx.QueryRowContext(ctx, selectSQL, rec.ID).Scan(&createdMs)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec = favcore.Stamp(rec, time.Now())
		insert := tx.StmtContext(ctx, s.insertStmt)
		defer insert.Close()
		if _, err := insert.ExecContext(ctx, rec.ID, rec.Name, nullableText(rec.ImageURL), rec.CreatedAt.UnixMilli()); err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	default:
		remove := tx.StmtContext(ctx, s.removeStmt)
		defer remove.Close()
		if _, err := remove.ExecContext(ctx, rec.ID); err != nil {
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, err
		}
		return false, nil
	}
}

func (s *sqlStore) IsFavorite(ctx context.Context, id int64) (bool, error) {
	if s.closed.Load() {
		return false, favcore.ErrStoreClosed
	}
	var n int64
	if err := s.existsStmt.QueryRowContext(ctx, id).Scan(&n); err != nil {
		return false, s.wrap("is_favorite", err)
	}
	return n > 0, nil
}

func (s *sqlStore) Get(ctx context.Context, id int64) (favcore.Record, bool, error) {
	if s.closed.Load() {
		return favcore.Record{}, false, favcore.ErrStoreClosed
	}
	var (
		name      string
		imageURL  sql.NullString
		createdMs int64
	)
	err := s.getStmt.QueryRowContext(ctx, id).Scan(&name, &imageURL, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return favcore.Record{}, false, nil
	}
	if err != nil {
		return favcore.Record{}, false, s.wrap("get", err)
	}
	return favcore.Record{
		ID:        id,
		Name:      name,
		ImageURL:  imageURL.String,
		CreatedAt: time.UnixMilli(createdMs).UTC(),
	}, true, nil
}

func (s *sqlStore) List(ctx context.Context) ([]favcore.Record, error) {
	if s.closed.Load() {
		return nil, favcore.ErrStoreClosed
	}
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, s.wrap("list", err)
	}
	defer rows.Close()

	recs := make([]favcore.Record, 0)
	for rows.Next() {
		var (
			rec       favcore.Record
			imageURL  sql.NullString
			createdMs int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &imageURL, &createdMs); err != nil {
			return nil, s.wrap("list", err)
		}
		rec.ImageURL = imageURL.String
		rec.CreatedAt = time.UnixMilli(createdMs).UTC()
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list", err)
	}
	return recs, nil
}

func (s *sqlStore) Count(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, favcore.ErrStoreClosed
	}
	var n int64
	if err := s.countStmt.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, s.wrap("count", err)
	}
	return n, nil
}

func (s *sqlStore) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return favcore.ErrStoreClosed
	}
	if _, err := s.clearStmt.ExecContext(ctx); err != nil {
		return s.wrap("clear", err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	for _, stmt := range []*sql.Stmt{
		s.getStmt, s.upsertStmt, s.insertStmt, s.removeStmt,
		s.existsStmt, s.listStmt, s.countStmt, s.clearStmt,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func (s *sqlStore) upsertSQL() string {
	// Placeholders must be positional for postgres/pgx. created_at is absent
	// from the update list so a replace keeps the first insert's timestamp.
	p1, p2, p3, p4, p5, p6 := s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6)
	switch s.driverName {
	case "postgres", "pgx":
		return fmt.Sprintf("INSERT INTO %s (id, name, image_url, created_at) VALUES (%s, %s, %s, %s) ON CONFLICT (id) DO UPDATE SET name = %s, image_url = %s", s.table, p1, p2, p3, p4, p5, p6)
	case "mysql":
		return fmt.Sprintf("INSERT INTO %s (id, name, image_url, created_at) VALUES (%s, %s, %s, %s) ON DUPLICATE KEY UPDATE name = %s, image_url = %s", s.table, p1, p2, p3, p4, p5, p6)
	default: // sqlite
		return fmt.Sprintf("INSERT INTO %s (id, name, image_url, created_at) VALUES (%s, %s, %s, %s) ON CONFLICT(id) DO UPDATE SET name = %s, image_url = %s", s.table, p1, p2, p3, p4, p5, p6)
	}
}

func (s *sqlStore) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (id, name, image_url, created_at) VALUES (%s, %s, %s, %s)", s.table, s.ph(1), s.ph(2), s.ph(3), s.ph(4))
}

func (s *sqlStore) getSQL() string {
	return fmt.Sprintf("SELECT name, image_url, created_at FROM %s WHERE id = %s", s.table, s.ph(1))
}

func (s *sqlStore) removeSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = %s", s.table, s.ph(1))
}

func (s *sqlStore) existsSQL() string {
	return fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE id = %s", s.table, s.ph(1))
}

func (s *sqlStore) listSQL() string {
	return fmt.Sprintf("SELECT id, name, image_url, created_at FROM %s ORDER BY created_at DESC, id DESC", s.table)
}

func (s *sqlStore) countSQL() string {
	return fmt.Sprintf("SELECT COUNT(1) FROM %s", s.table)
}

func (s *sqlStore) clearSQL() string {
	return fmt.Sprintf("DELETE FROM %s", s.table)
}

func (s *sqlStore) prepareStatements() error {
	var err error
	if s.getStmt, err = s.db.Prepare(s.getSQL()); err != nil {
		return err
	}
	if s.upsertStmt, err = s.db.Prepare(s.upsertSQL()); err != nil {
		return err
	}
	if s.insertStmt, err = s.db.Prepare(s.insertSQL()); err != nil {
		return err
	}
	if s.removeStmt, err = s.db.Prepare(s.removeSQL()); err != nil {
		return err
	}
	if s.existsStmt, err = s.db.Prepare(s.existsSQL()); err != nil {
		return err
	}
	if s.listStmt, err = s.db.Prepare(s.listSQL()); err != nil {
		return err
	}
	if s.countStmt, err = s.db.Prepare(s.countSQL()); err != nil {
		return err
	}
	if s.clearStmt, err = s.db.Prepare(s.clearSQL()); err != nil {
		return err
	}
	return nil
}

func (s *sqlStore) ph(i int) string {
	if s.driverName == "postgres" || s.driverName == "pgx" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (s *sqlStore) wrap(op string, err error) error {
	return fmt.Errorf("favorites/%s: %s: %w", s.Driver(), op, err)
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isDuplicateErr(err error, driver string) bool {
	msg := err.Error()
	switch driver {
	case "postgres", "pgx":
		return strings.Contains(msg, "duplicate key value")
	case "mysql":
		return strings.Contains(msg, "Duplicate entry")
	default:
		return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "unique constraint")
	}
}

func validateSQLTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !sqlIdentPartRE.MatchString(part) {
			return fmt.Errorf("invalid sql table name %q", name)
		}
	}
	return nil
}

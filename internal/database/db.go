// Package database owns the SQLite file that holds scan metrics.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

// busyTimeoutMS is how long a statement waits on a locked file.
const busyTimeoutMS = 5000

//go:embed migrations/*.sql
var schema embed.FS

// DB is the metrics database. SQL is safe for concurrent use.
type DB struct {
	SQL *sql.DB
}

// NewDB creates the parent directory of path if needed, brings the schema up
// to date and opens a single-connection pool on the file.
func NewDB(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("database directory %s: %w", filepath.Dir(path), err)
	}
	if err := migrateSchema(path); err != nil {
		return nil, err
	}

	conn, err := open(path)
	if err != nil {
		return nil, err
	}
	return &DB{SQL: conn}, nil
}

func open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyTimeoutMS)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer at a time.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return conn, nil
}

// Close releases the pool.
func (d *DB) Close() error {
	return d.SQL.Close()
}

// migrateSchema applies the embedded migrations. An up-to-date file is not
// an error.
func migrateSchema(path string) error {
	src, err := iofs.New(schema, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", path, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", path, err)
	}
	return nil
}

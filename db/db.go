package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

// DB is a pool plus the dialect its queries must be written in.
type DB struct {
	*sql.DB
	Driver string
}

func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database dsn is empty")
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// single writer; sqlite locks the whole file anyway
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{DB: conn, Driver: driver}, nil
}

// Migrate applies every pending up migration for the handle's dialect.
func (d *DB) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations/"+d.Driver)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	var drv database.Driver
	switch d.Driver {
	case DriverSQLite:
		drv, err = sqlite.WithInstance(d.DB, &sqlite.Config{})
	case DriverPostgres:
		drv, err = postgres.WithInstance(d.DB, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("creating %s driver: %w", d.Driver, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.Driver, drv)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Rebind turns ? placeholders into $n for postgres. Queries must not carry a
// literal question mark.
func (d *DB) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

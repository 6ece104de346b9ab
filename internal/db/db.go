// Package db opens the backing database and provides placeholder rebinding
// for the two supported drivers: SQLite (modernc, pure Go) and PostgreSQL (pgx).
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx driver
	_ "modernc.org/sqlite"             // registers the sqlite driver
)

// Driver identifies a supported database/sql driver.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "pgx"
)

var currentDriver = DriverSQLite

// Connect opens the database described by databaseURL. An empty URL falls
// back to a SQLite file under dataDir.
func Connect(databaseURL, dataDir string) (*sql.DB, error) {
	driver, dsn := ParseDSN(databaseURL, dataDir)
	sqldb, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqldb.Ping(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if driver == DriverSQLite {
		if _, err := sqldb.Exec("PRAGMA journal_mode=WAL"); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("set WAL: %w", err)
		}
	}
	currentDriver = driver
	return sqldb, nil
}

// ParseDSN interprets a database URL and returns the driver plus a DSN
// suitable for database/sql. Supported schemes: sqlite:// and postgres://.
func ParseDSN(databaseURL, dataDir string) (Driver, string) {
	if databaseURL == "" {
		path := filepath.Join(dataDir, "eventcollab.db")
		return DriverSQLite, fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(5000)", path)
	}

	if strings.HasPrefix(databaseURL, "sqlite://") {
		p := strings.TrimPrefix(databaseURL, "sqlite://")
		return DriverSQLite, fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(5000)", p)
	}

	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return DriverPostgres, databaseURL
	}

	if u, err := url.Parse(databaseURL); err == nil && u.Scheme == "pgx" {
		u.Scheme = "postgres"
		return DriverPostgres, u.String()
	}

	// Treat anything else as a bare SQLite path.
	return DriverSQLite, fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout(5000)", databaseURL)
}

// IsPostgres reports whether the active driver is PostgreSQL.
func IsPostgres() bool { return currentDriver == DriverPostgres }

// Rebind converts '?' placeholders to the driver-specific format. For
// PostgreSQL it rewrites to $1, $2, ...; for SQLite the query is unchanged.
func Rebind(query string) string {
	if !IsPostgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

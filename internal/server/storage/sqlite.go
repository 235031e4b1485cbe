package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/photocaption/internal/filex"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type sqliteDialect struct{}

// SQLiteDialect is the dialect of the embedded-file backend.
func SQLiteDialect() Dialect { return sqliteDialect{} }

func (sqliteDialect) Name() string               { return KindSQLite }
func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) Time(t time.Time) any       { return FormatTextTime(t) }

func (sqliteDialect) IsUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return containsFold(err, "unique constraint failed")
}

func (sqliteDialect) IsDuplicateColumn(err error) bool {
	return containsFold(err, "duplicate column name")
}

func (sqliteDialect) DDL() DDL {
	return DDL{
		AutoID:    "INTEGER PRIMARY KEY AUTOINCREMENT",
		BigInt:    "INTEGER",
		Bool:      "INTEGER",
		Timestamp: "TEXT",
		Text:      "TEXT",
	}
}

// sqlitePragmas are applied to every pooled connection through the DSN so
// that foreign keys and the busy timeout hold on all of them, not just the
// first one.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// sqliteDSN turns a file path (or an existing file: URI) into a modernc DSN
// with pragmas and IMMEDIATE transactions, so read-then-write transactions
// take the write lock up front instead of failing with SQLITE_BUSY on upgrade.
func sqliteDSN(path string) string {
	base := path
	query := url.Values{}
	if strings.HasPrefix(path, "file:") {
		if i := strings.IndexByte(path, '?'); i >= 0 {
			base = path[:i]
			if parsed, err := url.ParseQuery(path[i+1:]); err == nil {
				query = parsed
			}
		}
	} else {
		base = "file:" + path
	}
	for _, p := range sqlitePragmas {
		query.Add("_pragma", p)
	}
	if query.Get("_txlock") == "" {
		query.Set("_txlock", "immediate")
	}
	return base + "?" + query.Encode()
}

// OpenSQLite opens (creating if needed) an embedded database file.
func OpenSQLite(path string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	if path == ":memory:" {
		return nil, fmt.Errorf("sqlite: in-memory databases are per-connection; use a file path")
	}
	if !strings.HasPrefix(path, "file:") {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite open error: %w", err)
	}
	return &Backend{DB: db, Dialect: SQLiteDialect()}, nil
}

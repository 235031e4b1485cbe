package storage

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// libsqlDialect speaks SQLite over the libsql HTTP/WebSocket protocol. Errors
// arrive as remote strings, so classification is by message.
type libsqlDialect struct{ sqliteDialect }

// LibSQLDialect is the dialect of the edge-replicated backend.
func LibSQLDialect() Dialect { return libsqlDialect{} }

func (libsqlDialect) Name() string { return KindLibSQL }

func (libsqlDialect) IsUniqueViolation(err error) bool {
	return containsFold(err, "unique constraint failed", "sqlite_constraint_unique", "sqlite_constraint_primarykey")
}

// libsqlURL appends the auth token as the client expects it.
func libsqlURL(rawURL, authToken string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("libsql: parse url: %w", err)
	}
	if authToken != "" {
		q := u.Query()
		q.Set("authToken", authToken)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// OpenLibSQL connects to an edge-replicated libsql/Turso database.
func OpenLibSQL(rawURL, authToken string) (*Backend, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("libsql: empty database URL")
	}
	dsn, err := libsqlURL(rawURL, authToken)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("libsql open error: %w", err)
	}
	db.SetMaxOpenConns(4)
	return &Backend{DB: db, Dialect: LibSQLDialect()}, nil
}

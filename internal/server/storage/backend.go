package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Backend is an open database plus the dialect used to talk to it.
type Backend struct {
	DB      *sql.DB
	Dialect Dialect
}

// Options selects and configures a backend.
type Options struct {
	Kind      string
	DSN       string
	AuthToken string
}

// Open connects to the backend named by opts.Kind and verifies the
// connection with a ping.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	var (
		b   *Backend
		err error
	)
	switch opts.Kind {
	case KindSQLite, "sqlite3", "":
		b, err = OpenSQLite(opts.DSN)
	case KindPostgres, "postgresql", "pgx":
		b, err = OpenPostgres(opts.DSN)
	case KindLibSQL, "turso":
		b, err = OpenLibSQL(opts.DSN, opts.AuthToken)
	default:
		return nil, fmt.Errorf("unsupported database backend: %q", opts.Kind)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := b.DB.PingContext(pingCtx); err != nil {
		_ = b.DB.Close()
		return nil, fmt.Errorf("%s ping error: %w", b.Dialect.Name(), err)
	}
	return b, nil
}

// Close releases the connection pool.
func (b *Backend) Close() error {
	if b == nil || b.DB == nil {
		return nil
	}
	return b.DB.Close()
}

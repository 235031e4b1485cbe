package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres SQLSTATE codes we classify.
const (
	pgUniqueViolation = "23505"
	pgDuplicateColumn = "42701"
)

type postgresDialect struct{}

// PostgresDialect is the dialect of the Postgres-wire backend.
func PostgresDialect() Dialect { return postgresDialect{} }

func (postgresDialect) Name() string               { return KindPostgres }
func (postgresDialect) Rebind(query string) string { return rebindDollar(query) }
func (postgresDialect) Time(t time.Time) any       { return t.UTC() }

func (postgresDialect) IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (postgresDialect) IsDuplicateColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgDuplicateColumn
}

func (postgresDialect) DDL() DDL {
	return DDL{
		AutoID:               "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY",
		BigInt:               "BIGINT",
		Bool:                 "BOOLEAN",
		Timestamp:            "TIMESTAMPTZ",
		Text:                 "TEXT",
		AddColumnIfNotExists: true,
	}
}

// OpenPostgres opens a pooled connection through the pgx stdlib driver.
// Serverless Postgres endpoints drop idle connections aggressively, so idle
// connections are recycled early.
func OpenPostgres(dsn string) (*Backend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres: empty DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open error: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(2 * time.Minute)
	return &Backend{DB: db, Dialect: PostgresDialect()}, nil
}

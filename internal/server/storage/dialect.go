// Package storage is the persistence adapter. It opens one of the supported
// SQL backends and exposes a Dialect that hides the differences repositories
// care about: placeholder style, timestamp encoding, DDL types and the way
// each engine reports constraint violations.
package storage

import (
	"strconv"
	"strings"
	"time"
)

// Backend kinds accepted by Open.
const (
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindLibSQL   = "libsql"
)

// DDL holds the column type fragments migrations interpolate into CREATE
// and ALTER statements.
type DDL struct {
	// AutoID is a full primary key column definition for surrogate keys.
	AutoID    string
	BigInt    string
	Bool      string
	Timestamp string
	Text      string
	// AddColumnIfNotExists reports native ADD COLUMN IF NOT EXISTS support.
	AddColumnIfNotExists bool
}

// Dialect is implemented once per backend.
type Dialect interface {
	Name() string

	// Rebind rewrites '?' placeholders into the backend's native form.
	Rebind(query string) string

	// Time converts a timestamp into the value bound for timestamp columns.
	// All timestamps are stored in UTC.
	Time(t time.Time) any

	// IsUniqueViolation reports whether err is a unique/primary key violation.
	IsUniqueViolation(err error) bool

	// IsDuplicateColumn reports whether err came from adding a column that
	// already exists.
	IsDuplicateColumn(err error) bool

	DDL() DDL
}

// textTimeLayout is fixed-width so text comparisons order like instants.
const textTimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTextTime renders t the way text-timestamp backends store it.
func FormatTextTime(t time.Time) string {
	return t.UTC().Format(textTimeLayout)
}

// rebindDollar converts '?' placeholders to $1..$n, leaving quoted literals
// and identifiers untouched.
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
			b.WriteByte(c)
		case c == '\'' || c == '"':
			quote = c
			b.WriteByte(c)
		case c == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func containsFold(err error, subs ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range subs {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

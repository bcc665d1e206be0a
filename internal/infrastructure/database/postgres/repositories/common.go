// Package repositories provides the PostgreSQL-backed implementations of
// the domain repository interfaces. Every method takes a context.Context
// and uses parameterised queries exclusively.
package repositories

import (
	"context"
	"database/sql"
	"strconv"
)

// queryExecutor abstracts sql.DB and sql.Tx so read helpers can run inside
// or outside a transaction.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// nullable maps an empty string to NULL on insert.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// placeholder renders the $n positional parameter for dynamically built
// queries.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

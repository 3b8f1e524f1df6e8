package db

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Conn is the subset of *sqlx.DB the stores use.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	Rebind(query string) string
	DriverName() string
}

var _ Conn = (*sqlx.DB)(nil)

package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrSQLDisabled = errors.New("run history database disabled: set DB_HOST/DB_NAME or SQLITE_DSN")

// --- disabled connection (keeps app booting, but fails fast when used) ---

type disabledConn struct{}

func (disabledConn) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, ErrSQLDisabled
}
func (disabledConn) GetContext(context.Context, any, string, ...any) error { return ErrSQLDisabled }
func (disabledConn) SelectContext(context.Context, any, string, ...any) error {
	return ErrSQLDisabled
}
func (disabledConn) BeginTxx(context.Context, *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, ErrSQLDisabled
}
func (disabledConn) Rebind(query string) string { return query }
func (disabledConn) DriverName() string         { return "" }

func NewDisabledConn() Conn { return disabledConn{} }

type RunsOut struct {
	fx.Out

	DB   *sqlx.DB `name:"runs"`
	Conn Conn     `name:"runs"`
}

type NewRunsConnParams struct {
	fx.In

	Postgres *sqlx.DB `name:"postgres" optional:"true"`
	SQLite   *sqlx.DB `name:"sqlite" optional:"true"`
	Logger   *zap.SugaredLogger
}

// NewRunsConn picks the run history database: Postgres when configured,
// then SQLite, else a disabled connection.
func NewRunsConn(p NewRunsConnParams) RunsOut {
	switch {
	case p.Postgres != nil:
		p.Logger.Infow("runs_db_selected", "driver", p.Postgres.DriverName())
		return RunsOut{DB: p.Postgres, Conn: p.Postgres}
	case p.SQLite != nil:
		p.Logger.Infow("runs_db_selected", "driver", p.SQLite.DriverName())
		return RunsOut{DB: p.SQLite, Conn: p.SQLite}
	default:
		p.Logger.Infow("runs_db_disabled")
		return RunsOut{Conn: NewDisabledConn()}
	}
}

// GooseDialect maps a database/sql driver name onto a goose dialect.
func GooseDialect(driverName string) string {
	switch driverName {
	case "pgx", "postgres":
		return "postgres"
	default:
		return "sqlite3"
	}
}

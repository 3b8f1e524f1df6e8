package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"glslang-runner/config"

	// Remote libsql (Turso) databases.
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	// Local database files.
	_ "modernc.org/sqlite"
)

type SQLiteSQLXOut struct {
	fx.Out

	DB *sqlx.DB `name:"sqlite"`
}

type NewSQLXSQLiteDBParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	Logger *zap.SugaredLogger
}

// NewSQLXSQLiteDB opens SQLITE_DSN: libsql:// and http(s):// DSNs go to a
// remote libsql server, anything else is a local database file.
func NewSQLXSQLiteDB(p NewSQLXSQLiteDBParams) (SQLiteSQLXOut, error) {
	dsn := ""
	if p.Cfg != nil {
		dsn = strings.TrimSpace(p.Cfg.SQLite.DSN)
	}
	if dsn == "" {
		p.Logger.Infow("sqlite_disabled", "reason", "missing SQLITE_DSN")
		return SQLiteSQLXOut{}, nil
	}

	driver, dsn := SQLiteDriver(dsn, p.Cfg.SQLite.Token)

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return SQLiteSQLXOut{}, fmt.Errorf("open sqlite (%s): %w", driver, err)
	}

	if driver == "sqlite" {
		// One writer at a time for a local file.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			if err := db.PingContext(pingCtx); err != nil {
				_ = db.Close()
				return fmt.Errorf("ping sqlite: %w", err)
			}
			p.Logger.Infow("sqlite_enabled", "driver", driver)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})

	return SQLiteSQLXOut{DB: db}, nil
}

// SQLiteDriver picks the database/sql driver for dsn and returns the DSN to
// open it with.
func SQLiteDriver(dsn, token string) (driver string, out string) {
	u, err := url.Parse(dsn)
	if err == nil {
		switch strings.ToLower(u.Scheme) {
		case "libsql", "http", "https", "ws", "wss":
			return "libsql", ensureAuthTokenQuery(u, token)
		}
	}
	return "sqlite", localSQLiteDSN(dsn)
}

func localSQLiteDSN(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func ensureAuthTokenQuery(u *url.URL, token string) string {
	token = strings.TrimSpace(token)
	if token == "" {
		return u.String()
	}

	q := u.Query()
	if q.Get("authToken") != "" {
		return u.String()
	}

	q.Set("authToken", token)
	u.RawQuery = q.Encode()
	return u.String()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"glslang-runner/db"
	dbfx "glslang-runner/db/fx"
	"glslang-runner/db/migrations"
	appfx "glslang-runner/internal/app/fx"

	"github.com/jmoiron/sqlx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type MigrateCmd string

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.CoreAppOptions,
		dbfx.Module,
		fx.Supply(MigrateCmd(cmd)),
		fx.Invoke(registerMigrateHook),
	)

	startCtx, startCancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer startCancel()
	if err := app.Start(startCtx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type migrateHookParams struct {
	fx.In

	Lc     fx.Lifecycle
	DB     *sqlx.DB `name:"runs" optional:"true"`
	Logger *zap.SugaredLogger

	Cmd MigrateCmd
}

// registerMigrateHook appends after the database hooks, so the connection
// has been pinged by the time goose runs.
func registerMigrateHook(p migrateHookParams) {
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if p.DB == nil {
				return errors.New("run history disabled: set DB_HOST/DB_NAME or SQLITE_DSN")
			}

			dialect := db.GooseDialect(p.DB.DriverName())
			p.Logger.Infow("goose_run_start", "cmd", string(p.Cmd), "dialect", dialect)
			if err := migrations.Run(ctx, p.DB.DB, dialect, string(p.Cmd)); err != nil {
				return err
			}
			p.Logger.Infow("goose_run_done", "cmd", string(p.Cmd))
			return nil
		},
	})
}

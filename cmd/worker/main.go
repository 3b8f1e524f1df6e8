package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	cachefx "glslang-runner/cache/fx"
	dbfx "glslang-runner/db/fx"
	runworkerfx "glslang-runner/internal/app/amqp/runworker/fx"
	appfx "glslang-runner/internal/app/fx"
	"glslang-runner/internal/runs"
	toolchainfx "glslang-runner/internal/toolchain/fx"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.CoreAppOptions,
		dbfx.Module,
		cachefx.Module,
		toolchainfx.Module,
		fx.Provide(runs.NewStore),
		runworkerfx.Module,
	)

	app.Run()
}

package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	dbfx "glslang-runner/db/fx"
	enqueuefx "glslang-runner/internal/app/amqp/enqueue/fx"
	appfx "glslang-runner/internal/app/fx"
	healthfx "glslang-runner/internal/app/health/fx"
	inngestfx "glslang-runner/internal/app/inngest/fx"
	runsfx "glslang-runner/internal/app/runs/fx"
	routerfx "glslang-runner/internal/router/fx"
	serverfx "glslang-runner/internal/server/fx"
	toolchainfx "glslang-runner/internal/toolchain/fx"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),
		appfx.CoreAppOptions,
		dbfx.Module,
		toolchainfx.Module,
		routerfx.CoreRouterOptions,
		serverfx.Module,
		healthfx.Module,
		runsfx.Module,
		enqueuefx.Module,
		inngestfx.Module,
	)

	app.Run()
}

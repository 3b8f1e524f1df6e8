package fx

import (
	"glslang-runner/internal/app/runs"
	"glslang-runner/internal/router"
	runstore "glslang-runner/internal/runs"

	"go.uber.org/fx"
)

var Module = fx.Module(
	"runs",
	fx.Provide(
		runstore.NewStore,
		router.AsRoute(runs.NewCreateHandler),
		router.AsRoute(runs.NewGetByIDHandler),
		router.AsRoute(runs.NewListHandler),
		router.AsRoute(runs.NewToolsHandler),
	),
)

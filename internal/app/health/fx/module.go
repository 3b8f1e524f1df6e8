package fx

import (
	"go.uber.org/fx"

	"glslang-runner/internal/app/health"
	"glslang-runner/internal/router"
)

var Module = fx.Options(
	fx.Provide(router.AsRoute(health.NewHandler)),
)

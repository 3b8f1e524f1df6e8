package fx

import (
	"glslang-runner/config"
	"glslang-runner/internal/logs"

	"go.uber.org/fx"
)

// CoreAppOptions provides config and logging to every binary.
var CoreAppOptions = fx.Options(
	fx.Provide(
		config.NewViper,
		config.NewConfig,
		logs.NewLogger,
		logs.NewSugaredLogger,
	),
	fx.Invoke(logs.RegisterLifecycle),
)

package fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"glslang-runner/config"
	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"
)

var Module = fx.Options(
	AsTool(toolchain.NewGlslangValidator),
	AsTool(toolchain.NewSpirvRemap),
	fx.Provide(
		NewRunnerConfig,
		spawn.New,
		NewToolConfig,
		toolchain.NewTools,
		toolchain.NewService,
	),
)

func AsTool(f any) fx.Option {
	return fx.Provide(
		fx.Annotate(
			f,
			fx.As(new(toolchain.Tool)),
			fx.ResultTags(`group:"tools"`),
		),
	)
}

type NewRunnerConfigParams struct {
	fx.In

	Logger *zap.SugaredLogger
}

func NewRunnerConfig(p NewRunnerConfigParams) spawn.RunnerConfig {
	return spawn.RunnerConfig{Logger: p.Logger}
}

type NewToolConfigParams struct {
	fx.In

	Cfg    *config.Config
	Runner *spawn.Runner
	Logger *zap.SugaredLogger
}

func NewToolConfig(p NewToolConfigParams) toolchain.ToolConfig {
	dir := ""
	if p.Cfg != nil {
		dir = p.Cfg.Toolchain.Dir
	}
	dir = toolchain.ResolveDir(dir)
	p.Logger.Infow("toolchain_resolved", "dir", dir)

	return toolchain.ToolConfig{
		Dir:    dir,
		Runner: p.Runner,
		Logger: p.Logger,
	}
}

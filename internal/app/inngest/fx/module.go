package fx

import (
	"glslang-runner/config"
	"glslang-runner/internal/app/inngest"
	"glslang-runner/internal/app/inngest/run"
	pkginngest "glslang-runner/internal/pkg/inngest"
	"glslang-runner/internal/router"
	"glslang-runner/internal/runs"

	"github.com/inngest/inngestgo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(
		pkginngest.NewInngestClient,
		run.NewRunFunction,
		router.AsRoute(inngest.NewInngestHandler),
		router.AsRoute(run.NewDispatchHandler),
	),
	fx.Invoke(registerFunctions),
)

func registerFunctions(
	cfg *config.Config,
	client inngestgo.Client,
	runFunc *run.RunFunction,
	logger *zap.SugaredLogger,
) error {
	if cfg != nil && cfg.Inngest.AppID == "" {
		logger.Infow("inngest_disabled", "reason", "missing INNGEST_APP_ID")
		return nil
	}

	_, err := inngestgo.CreateFunction(
		client,
		inngestgo.FunctionOpts{
			ID:      "toolchain-run",
			Retries: inngestgo.IntPtr(0),
		},
		inngestgo.EventTrigger(runs.RunRequestedEventName, nil),
		runFunc.Handle,
	)
	if err != nil {
		logger.Errorw("inngest_create_function_failed",
			"function", "toolchain-run",
			"err", err,
		)
		return err
	}

	logger.Infow("inngest_enabled",
		"path", cfg.Inngest.ServePath,
		"event", runs.RunRequestedEventName,
	)
	return nil
}

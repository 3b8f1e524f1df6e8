package fx

import (
	"context"

	"glslang-runner/internal/app/amqp/runworker"
	"glslang-runner/internal/pkg/amqpclient"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module(
	"amqp-runworker",
	fx.Provide(
		amqpclient.NewAMQP,
		fx.Annotate(
			runworker.NewRunHandler,
			fx.As(new(runworker.Handler)),
		),
		runworker.NewConsumer,
	),
	fx.Invoke(registerLifecycleHooks),
)

type hooksParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Consumer  *runworker.Consumer
	Logger    *zap.SugaredLogger
}

func registerLifecycleHooks(p hooksParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Infow("runworker_starting")
			return p.Consumer.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Infow("runworker_stopping")
			return p.Consumer.Stop(ctx)
		},
	})
}

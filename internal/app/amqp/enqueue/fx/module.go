package fx

import (
	"glslang-runner/internal/app/amqp/enqueue"
	"glslang-runner/internal/pkg/amqpclient"
	"glslang-runner/internal/router"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		amqpclient.NewAMQP,
		router.AsRoute(enqueue.NewHandler),
	),
)

package enqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"glslang-runner/config"
	"glslang-runner/internal/app/amqp/runworker"
	"glslang-runner/internal/pkg/render"
	"glslang-runner/internal/router"
	"glslang-runner/internal/runs"
	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type publishFunc func(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error

type toolLookup interface {
	Tool(name string) (toolchain.Tool, error)
}

type Handler struct {
	cfg       *config.Config
	channel   *amqp.Channel
	tools     toolLookup
	logger    *zap.SugaredLogger
	validator *validator.Validate

	publish publishFunc
}

type NewHandlerParams struct {
	fx.In

	Cfg     *config.Config
	Channel *amqp.Channel `optional:"true"`
	Tools   *toolchain.Service
	Logger  *zap.SugaredLogger
}

func NewHandler(p NewHandlerParams) *Handler {
	var publishFn publishFunc
	if p.Channel != nil {
		publishFn = p.Channel.PublishWithContext
	}

	return &Handler{
		cfg:       p.Cfg,
		channel:   p.Channel,
		tools:     p.Tools,
		logger:    p.Logger,
		validator: validator.New(),
		publish:   publishFn,
	}
}

func (h *Handler) RegisterRoute(r *chi.Mux) {
	r.Post("/v1/runs/enqueue", h.Handle)
}

type enqueueRequest struct {
	Tool    string `json:"tool" validate:"required"`
	Args    any    `json:"args"`
	EventID string `json:"event_id" validate:"omitempty,max=200"`
}

type enqueueResponse struct {
	OK      bool   `json:"ok"`
	EventID string `json:"event_id"`
}

// Handle publishes a run request for the worker. Arguments use the same
// shapes as POST /v1/runs; callbacks and quiet are worker settings.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.ChiErr(w, r, http.StatusBadRequest, err)
		return
	}
	req.Tool = strings.TrimSpace(req.Tool)
	if err := h.validator.Struct(req); err != nil {
		render.ChiErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	if h.tools != nil {
		if _, err := h.tools.Tool(req.Tool); err != nil {
			render.ChiErr(w, r, http.StatusNotFound, err)
			return
		}
	}

	args, err := runs.ArgsFromAny(req.Args)
	if err != nil {
		var vErr *spawn.ValidationError
		if errors.As(err, &vErr) {
			render.ChiFieldErr(w, r, http.StatusBadRequest, vErr.Field, err)
			return
		}
		render.ChiErr(w, r, http.StatusBadRequest, err)
		return
	}

	if h.cfg == nil || strings.TrimSpace(h.cfg.RabbitMQ.URL) == "" || h.publish == nil {
		render.ChiErr(w, r, http.StatusServiceUnavailable, errors.New("rabbitmq disabled"))
		return
	}

	ex := strings.TrimSpace(h.cfg.RabbitMQ.Exchange)
	if ex == "" {
		ex = "events"
	}
	routingKey := strings.TrimSpace(h.cfg.RabbitMQ.RoutingKey)
	if routingKey == "" {
		routingKey = "toolchain.run.requested.v1"
	}

	now := time.Now().UTC()
	eventID := strings.TrimSpace(req.EventID)
	if eventID == "" {
		eventID = runs.EventID(req.Tool, args)
	}

	env := runworker.RunRequestedEnvelope{
		EventName: runs.RunRequestedEventName,
		EventID:   eventID,
		TS:        now,
		Data: runs.RunRequestedEventData{
			Tool: req.Tool,
			Args: args,
		},
	}
	body, err := json.Marshal(env)
	if err != nil {
		h.logger.Errorw("enqueue_marshal_failed", "err", err)
		render.ChiErr(w, r, http.StatusInternalServerError, errors.New("failed to encode message"))
		return
	}

	if h.channel != nil && h.cfg.RabbitMQ.DeclareTopology {
		if err := h.channel.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			h.logger.Errorw("enqueue_exchange_declare_failed", "exchange", ex, "err", err)
			render.ChiErr(w, r, http.StatusBadGateway, fmt.Errorf("rabbitmq exchange declare failed: %s", ex))
			return
		}
	}

	if err := h.publish(r.Context(), ex, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    now,
		MessageId:    eventID,
		Body:         body,
	}); err != nil {
		h.logger.Errorw(
			"enqueue_publish_failed",
			"exchange", ex,
			"routing_key", routingKey,
			"event_id", eventID,
			"tool", req.Tool,
			"err", err,
		)
		render.ChiErr(w, r, http.StatusBadGateway, errors.New("failed to publish message"))
		return
	}

	h.logger.Infow("enqueue_published", "exchange", ex, "routing_key", routingKey, "event_id", eventID, "tool", req.Tool)
	render.ChiJSON(w, r, http.StatusAccepted, enqueueResponse{OK: true, EventID: eventID})
}

var _ router.Handler = (*Handler)(nil)

package runworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"glslang-runner/config"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrHandlerMissing = errors.New("runworker handler missing")

const consumerTag = "runworker"

type Handler interface {
	Handle(ctx context.Context, msg RunRequestedEnvelope) error
}

// channel is the part of *amqp.Channel the consumer drives.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
}

type Consumer struct {
	cfg     *config.Config
	channel channel
	handler Handler
	logger  *zap.SugaredLogger

	done chan struct{}
}

type NewConsumerParams struct {
	fx.In

	Config  *config.Config
	Channel *amqp.Channel `optional:"true"`
	Handler Handler       `optional:"true"`
	Logger  *zap.SugaredLogger
}

func NewConsumer(p NewConsumerParams) *Consumer {
	h := p.Handler
	if h == nil {
		h = missingHandler{}
	}

	c := &Consumer{
		cfg:     p.Config,
		handler: h,
		logger:  p.Logger,
	}
	if p.Channel != nil {
		c.channel = p.Channel
	}
	return c
}

func (c *Consumer) Start(ctx context.Context) error {
	if c.cfg == nil || strings.TrimSpace(c.cfg.RabbitMQ.URL) == "" || c.channel == nil {
		c.logger.Infow("runworker_disabled", "reason", "missing rabbitmq config or channel")
		return nil
	}

	if c.cfg.RabbitMQ.DeclareTopology {
		if err := c.declareTopology(); err != nil {
			return err
		}
	}

	prefetch := c.cfg.RabbitMQ.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	if err := c.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}

	queue := queueName(c.cfg)
	deliveries, err := c.channel.Consume(
		queue,
		consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	c.logger.Infow(
		"runworker_started",
		"queue", queue,
		"prefetch", prefetch,
	)

	// The start context ends with OnStart, so deliveries are handled under
	// a background context until the channel closes.
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		for d := range deliveries {
			c.handleDelivery(context.Background(), d)
		}
	}()

	return nil
}

// Stop cancels the consumer and waits for the in-flight delivery.
func (c *Consumer) Stop(ctx context.Context) error {
	if c.channel == nil || c.done == nil {
		return nil
	}
	if err := c.channel.Cancel(consumerTag, false); err != nil {
		c.logger.Warnw("runworker_cancel_failed", "err", err)
	}
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func queueName(cfg *config.Config) string {
	if q := strings.TrimSpace(cfg.RabbitMQ.Queue); q != "" {
		return q
	}
	return "toolchain.run.requested.v1"
}

func routingKey(cfg *config.Config) string {
	if k := strings.TrimSpace(cfg.RabbitMQ.RoutingKey); k != "" {
		return k
	}
	return "toolchain.run.requested.v1"
}

func exchangeName(cfg *config.Config) string {
	if ex := strings.TrimSpace(cfg.RabbitMQ.Exchange); ex != "" {
		return ex
	}
	return "events"
}

func (c *Consumer) declareTopology() error {
	ex := exchangeName(c.cfg)
	queue := queueName(c.cfg)
	key := routingKey(c.cfg)

	dlx := ex + ".dlx"
	dlq := queue + ".dlq"

	if err := c.channel.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq exchange declare %q: %w", ex, err)
	}
	if err := c.channel.ExchangeDeclare(dlx, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlx exchange declare %q: %w", dlx, err)
	}

	args := amqp.Table{
		"x-dead-letter-exchange": dlx,
	}
	if _, err := c.channel.QueueDeclare(queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("rabbitmq queue declare %q: %w", queue, err)
	}
	if _, err := c.channel.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlq declare %q: %w", dlq, err)
	}

	if err := c.channel.QueueBind(queue, key, ex, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue bind queue=%q key=%q ex=%q: %w", queue, key, ex, err)
	}
	if err := c.channel.QueueBind(dlq, key, dlx, false, nil); err != nil {
		return fmt.Errorf("rabbitmq dlq bind queue=%q key=%q ex=%q: %w", dlq, key, dlx, err)
	}

	c.logger.Infow(
		"runworker_topology_declared",
		"exchange", ex,
		"queue", queue,
		"routing_key", key,
		"dlx", dlx,
		"dlq", dlq,
	)

	return nil
}

// handleDelivery acks handled messages and rejects the rest without
// requeue, so they land on the dead-letter queue.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	messageID := strings.TrimSpace(d.MessageId)
	if messageID == "" {
		messageID = strings.TrimSpace(d.CorrelationId)
	}

	var msg RunRequestedEnvelope
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Errorw("runworker_invalid_json",
			"err", err,
			"message_id", messageID,
		)
		_ = d.Reject(false)
		return
	}

	if strings.TrimSpace(msg.EventID) == "" {
		msg.EventID = messageID
	}
	if strings.TrimSpace(msg.EventID) == "" {
		c.logger.Errorw("runworker_missing_event_id",
			"event_name", msg.EventName,
		)
		_ = d.Reject(false)
		return
	}

	if err := c.handler.Handle(ctx, msg); err != nil {
		c.logger.Errorw("runworker_handle_failed",
			"err", err,
			"event_id", msg.EventID,
			"event_name", msg.EventName,
			"tool", msg.Data.Tool,
		)
		_ = d.Reject(false)
		return
	}

	_ = d.Ack(false)
}

type missingHandler struct{}

func (missingHandler) Handle(context.Context, RunRequestedEnvelope) error {
	return ErrHandlerMissing
}

package runworker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"glslang-runner/config"
	"glslang-runner/internal/runs"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ackRecorder struct {
	mu       sync.Mutex
	acked    []uint64
	rejected []uint64
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, _ bool) error {
	return a.Reject(tag, false)
}

func (a *ackRecorder) Reject(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rejected = append(a.rejected, tag)
	return nil
}

type handlerFunc func(ctx context.Context, msg RunRequestedEnvelope) error

func (f handlerFunc) Handle(ctx context.Context, msg RunRequestedEnvelope) error { return f(ctx, msg) }

type fakeChannel struct {
	deliveries chan amqp.Delivery
	declared   []string
	bound      []string
	canceled   bool
}

func (f *fakeChannel) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, "exchange:"+name)
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.declared = append(f.declared, "queue:"+name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	f.bound = append(f.bound, name+"<-"+exchange+":"+key)
	return nil
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeChannel) Cancel(string, bool) error {
	f.canceled = true
	return nil
}

func testConsumerConfig() *config.Config {
	cfg := &config.Config{}
	cfg.RabbitMQ.URL = "amqp://example"
	cfg.RabbitMQ.Exchange = "events"
	cfg.RabbitMQ.Queue = "toolchain.run.requested.v1"
	cfg.RabbitMQ.RoutingKey = "toolchain.run.requested.v1"
	cfg.RabbitMQ.DeclareTopology = true
	return cfg
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, messageID string, env any) amqp.Delivery {
	t.Helper()
	var body []byte
	switch v := env.(type) {
	case []byte:
		body = v
	default:
		b, err := json.Marshal(v)
		require.NoError(t, err)
		body = b
	}
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, MessageId: messageID, Body: body}
}

func TestConsumer_AcksHandledAndRejectsFailures(t *testing.T) {
	ack := &ackRecorder{}
	var seen []RunRequestedEnvelope
	c := &Consumer{
		cfg: testConsumerConfig(),
		handler: handlerFunc(func(_ context.Context, msg RunRequestedEnvelope) error {
			seen = append(seen, msg)
			if msg.Data.Tool == "broken" {
				return errors.New("boom")
			}
			return nil
		}),
		logger: zap.NewNop().Sugar(),
	}

	ok := RunRequestedEnvelope{EventName: runs.RunRequestedEventName, Data: runs.RunRequestedEventData{Tool: "glslangValidator"}}
	c.handleDelivery(context.Background(), delivery(t, ack, 1, "msg-1", ok))

	bad := RunRequestedEnvelope{EventName: runs.RunRequestedEventName, EventID: "e2", Data: runs.RunRequestedEventData{Tool: "broken"}}
	c.handleDelivery(context.Background(), delivery(t, ack, 2, "", bad))

	c.handleDelivery(context.Background(), delivery(t, ack, 3, "msg-3", []byte("{")))
	c.handleDelivery(context.Background(), delivery(t, ack, 4, "", ok))

	require.Equal(t, []uint64{1}, ack.acked)
	require.Equal(t, []uint64{2, 3, 4}, ack.rejected)
	require.Len(t, seen, 2)
	require.Equal(t, "msg-1", seen[0].EventID)
}

func TestConsumer_StartDeclaresTopologyAndDrains(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 1)}
	ack := &ackRecorder{}
	handled := make(chan string, 1)

	c := &Consumer{
		cfg:     testConsumerConfig(),
		channel: ch,
		handler: handlerFunc(func(_ context.Context, msg RunRequestedEnvelope) error {
			handled <- msg.EventID
			return nil
		}),
		logger: zap.NewNop().Sugar(),
	}

	require.NoError(t, c.Start(context.Background()))
	require.Contains(t, ch.declared, "exchange:events.dlx")
	require.Contains(t, ch.declared, "queue:toolchain.run.requested.v1.dlq")
	require.Contains(t, ch.bound, "toolchain.run.requested.v1<-events:toolchain.run.requested.v1")

	ch.deliveries <- delivery(t, ack, 7, "evt-7", RunRequestedEnvelope{Data: runs.RunRequestedEventData{Tool: "spirv-remap"}})

	select {
	case id := <-handled:
		require.Equal(t, "evt-7", id)
	case <-time.After(5 * time.Second):
		t.Fatal("delivery not handled")
	}

	close(ch.deliveries)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
	require.True(t, ch.canceled)
}

func TestConsumer_DisabledWithoutURL(t *testing.T) {
	c := NewConsumer(NewConsumerParams{Config: &config.Config{}, Logger: zap.NewNop().Sugar()})

	require.NoError(t, c.Start(context.Background()))
	require.NoError(t, c.Stop(context.Background()))
}

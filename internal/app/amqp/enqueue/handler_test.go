package enqueue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"glslang-runner/config"
	"glslang-runner/internal/app/amqp/runworker"
	"glslang-runner/internal/runs"
	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"

	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type stubTool struct{ name string }

func (s stubTool) Name() string { return s.name }
func (s stubTool) Path() string { return "/stub/" + s.name }
func (s stubTool) Run(spawn.Options) (*spawn.Pending, error) {
	return nil, errors.New("not runnable")
}

func testTools() *toolchain.Service {
	return toolchain.NewService(map[string]toolchain.Tool{
		toolchain.GlslangValidatorName: stubTool{name: toolchain.GlslangValidatorName},
		toolchain.SpirvRemapName:       stubTool{name: toolchain.SpirvRemapName},
	})
}

func newTestHandler(cfg *config.Config, publish publishFunc) *Handler {
	return &Handler{
		cfg:       cfg,
		tools:     testTools(),
		logger:    zap.NewNop().Sugar(),
		validator: validator.New(),
		publish:   publish,
	}
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/runs/enqueue", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Handle(w, req)
	return w
}

func TestHandler_Handle_BadJSON(t *testing.T) {
	w := post(newTestHandler(&config.Config{}, nil), "{")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandler_Handle_MissingTool(t *testing.T) {
	w := post(newTestHandler(&config.Config{}, nil), `{"args":["-V"]}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandler_Handle_UnknownTool(t *testing.T) {
	w := post(newTestHandler(&config.Config{}, nil), `{"tool":"glslc"}`)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandler_Handle_NonStringArg(t *testing.T) {
	w := post(newTestHandler(&config.Config{}, nil), `{"tool":"glslangValidator","args":["-V",3]}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		Field string `json:"field"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Field != "args[1]" {
		t.Fatalf("field=%q", body.Field)
	}
}

func TestHandler_Handle_RabbitMQDisabled(t *testing.T) {
	w := post(newTestHandler(&config.Config{}, nil), `{"tool":"glslangValidator","args":"--version"}`)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandler_Handle_OK_PublishesDeterministicEventID(t *testing.T) {
	var gotExchange, gotKey string
	var gotPublishing amqp.Publishing
	var gotResp struct {
		OK      bool   `json:"ok"`
		EventID string `json:"event_id"`
	}

	cfg := &config.Config{}
	cfg.RabbitMQ.URL = "amqp://example"
	cfg.RabbitMQ.Exchange = "events"
	cfg.RabbitMQ.RoutingKey = "toolchain.run.requested.v1"
	cfg.RabbitMQ.DeclareTopology = false

	h := newTestHandler(cfg, func(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
		gotExchange = exchange
		gotKey = key
		gotPublishing = msg
		return nil
	})

	args := []string{"-V", "-o", "out.spv", "shader.frag"}
	before := time.Now().UTC().Add(-1 * time.Second)
	w := post(h, `{"tool":"glslangValidator","args":["-V","-o","out.spv","shader.frag"]}`)
	after := time.Now().UTC().Add(1 * time.Second)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if err := json.Unmarshal(w.Body.Bytes(), &gotResp); err != nil {
		t.Fatalf("unmarshal response: %v body=%s", err, w.Body.String())
	}
	wantID := runs.EventID(toolchain.GlslangValidatorName, args)
	if !gotResp.OK || gotResp.EventID != wantID {
		t.Fatalf("response=%+v expected event_id=%q", gotResp, wantID)
	}
	if gotExchange != "events" || gotKey != "toolchain.run.requested.v1" {
		t.Fatalf("publish exchange=%q key=%q", gotExchange, gotKey)
	}
	if gotPublishing.ContentType != "application/json" {
		t.Fatalf("contentType=%q", gotPublishing.ContentType)
	}
	if gotPublishing.MessageId != wantID {
		t.Fatalf("message_id=%q expected=%q", gotPublishing.MessageId, wantID)
	}
	if gotPublishing.DeliveryMode != amqp.Persistent {
		t.Fatalf("delivery_mode=%d", gotPublishing.DeliveryMode)
	}
	if gotPublishing.Timestamp.Before(before) || gotPublishing.Timestamp.After(after) {
		t.Fatalf("timestamp=%s out of range", gotPublishing.Timestamp)
	}

	var env runworker.RunRequestedEnvelope
	if err := json.Unmarshal(gotPublishing.Body, &env); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if env.EventName != runs.RunRequestedEventName {
		t.Fatalf("env.event_name=%q", env.EventName)
	}
	if env.Data.Tool != toolchain.GlslangValidatorName {
		t.Fatalf("env.data.tool=%q", env.Data.Tool)
	}
	if strings.Join(env.Data.Args, " ") != strings.Join(args, " ") {
		t.Fatalf("env.data.args=%q", env.Data.Args)
	}
}

func TestHandler_Handle_ExplicitEventIDAndObjectArgs(t *testing.T) {
	var got runworker.RunRequestedEnvelope
	cfg := &config.Config{}
	cfg.RabbitMQ.URL = "amqp://example"

	h := newTestHandler(cfg, func(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
		return json.Unmarshal(msg.Body, &got)
	})

	w := post(h, `{"tool":"spirv-remap","event_id":"build-42","args":{"args":["--map","all"],"quiet":true}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got.EventID != "build-42" {
		t.Fatalf("event_id=%q", got.EventID)
	}
	if strings.Join(got.Data.Args, ",") != "--map,all" {
		t.Fatalf("args=%q", got.Data.Args)
	}
}

func TestHandler_Handle_PublishFailure(t *testing.T) {
	cfg := &config.Config{}
	cfg.RabbitMQ.URL = "amqp://example"

	h := newTestHandler(cfg, func(context.Context, string, string, bool, bool, amqp.Publishing) error {
		return errors.New("connection reset")
	})

	w := post(h, `{"tool":"glslangValidator"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

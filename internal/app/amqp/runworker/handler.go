package runworker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"glslang-runner/cache"
	"glslang-runner/config"
	"glslang-runner/internal/runs"
	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type toolRunner interface {
	Run(name string, opts spawn.Options) (*spawn.Pending, error)
}

type runSaver interface {
	Save(ctx context.Context, in runs.SaveInput) (string, error)
}

type claimer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RunHandler struct {
	cfg     *config.Config
	tools   toolRunner
	store   runSaver
	deduper claimer
	logger  *zap.SugaredLogger
}

type NewRunHandlerParams struct {
	fx.In

	Cfg     *config.Config
	Tools   *toolchain.Service
	Store   *runs.Store
	Deduper *cache.Deduper
	Logger  *zap.SugaredLogger
}

func NewRunHandler(p NewRunHandlerParams) *RunHandler {
	return &RunHandler{
		cfg:     p.Cfg,
		tools:   p.Tools,
		store:   p.Store,
		deduper: p.Deduper,
		logger:  p.Logger,
	}
}

// Handle runs the requested tool and records the outcome. A tool that
// fails is still a handled message; only requests that cannot run, or
// runs that cannot be recorded, return an error and give up their claim.
func (h *RunHandler) Handle(ctx context.Context, msg RunRequestedEnvelope) error {
	tool := strings.TrimSpace(msg.Data.Tool)
	if tool == "" {
		return fmt.Errorf("missing tool")
	}
	if strings.TrimSpace(msg.EventID) == "" {
		return fmt.Errorf("missing event_id")
	}
	if name := strings.TrimSpace(msg.EventName); name != "" && name != runs.RunRequestedEventName {
		return fmt.Errorf("unexpected event_name: %s", msg.EventName)
	}

	claimed, err := h.deduper.Claim(ctx, msg.EventID, h.cfg.Worker.DedupeTTL)
	if err != nil {
		return err
	}
	if !claimed {
		h.logger.Infow("runworker_duplicate_skipped",
			"event_id", msg.EventID,
			"tool", tool,
		)
		return nil
	}

	pending, err := h.tools.Run(tool, spawn.Config{
		Args:  spawn.ArgList(msg.Data.Args),
		Quiet: h.cfg.Toolchain.Quiet,
	})
	if err != nil {
		h.release(msg.EventID)
		return err
	}

	res, err := pending.WaitContext(ctx)
	if err != nil {
		h.release(msg.EventID)
		return err
	}

	if res.Err != nil {
		h.logger.Warnw("runworker_tool_failed",
			"event_id", msg.EventID,
			"tool", tool,
			"status", res.Kind.String(),
			"err", res.Err,
		)
	}

	id, err := h.store.Save(ctx, runs.SaveInput{
		EventID:   msg.EventID,
		Tool:      tool,
		CreatedBy: runs.CreatedByRabbitMQ,
		Result:    res,
	})
	if err != nil {
		h.logger.Errorw("runworker_persist_failed",
			"event_id", msg.EventID,
			"tool", tool,
			"err", err,
		)
		// A replay from the dead-letter queue must be able to record it.
		h.release(msg.EventID)
		return err
	}

	h.logger.Infow("runworker_finished",
		"event_id", msg.EventID,
		"run_id", id,
		"tool", tool,
		"status", res.Kind.String(),
		"duration", res.Duration,
	)
	return nil
}

func (h *RunHandler) release(eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.deduper.Release(ctx, eventID); err != nil {
		h.logger.Warnw("runworker_release_claim_failed", "event_id", eventID, "err", err)
	}
}

package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"glslang-runner/config"
	"glslang-runner/internal/runs"
	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type toolRunner interface {
	Run(name string, opts spawn.Options) (*spawn.Pending, error)
}

type runSaver interface {
	Save(ctx context.Context, in runs.SaveInput) (string, error)
}

type RunFunction struct {
	cfg    *config.Config
	tools  toolRunner
	store  runSaver
	logger *zap.SugaredLogger
}

type NewRunFunctionParams struct {
	fx.In

	Cfg    *config.Config
	Tools  *toolchain.Service
	Store  *runs.Store
	Logger *zap.SugaredLogger
}

func NewRunFunction(p NewRunFunctionParams) *RunFunction {
	return &RunFunction{
		cfg:    p.Cfg,
		tools:  p.Tools,
		store:  p.Store,
		logger: p.Logger,
	}
}

// Outcome is the step-memoized form of spawn.Result.
type Outcome struct {
	RunID      string   `json:"run_id"`
	Path       string   `json:"path"`
	Args       []string `json:"args"`
	Status     string   `json:"status"`
	ExitCode   *int     `json:"exit_code"`
	Signal     string   `json:"signal,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

func outcomeFromResult(res spawn.Result) Outcome {
	out := Outcome{
		RunID:      res.RunID,
		Path:       res.Path,
		Args:       res.Args,
		Status:     res.Kind.String(),
		ExitCode:   res.ExitCode,
		Signal:     res.Signal,
		DurationMs: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func (o Outcome) result() (spawn.Result, error) {
	kind, err := spawn.ParseKind(o.Status)
	if err != nil {
		return spawn.Result{}, err
	}
	res := spawn.Result{
		RunID:    o.RunID,
		Path:     o.Path,
		Args:     o.Args,
		Kind:     kind,
		ExitCode: o.ExitCode,
		Signal:   o.Signal,
		Duration: time.Duration(o.DurationMs) * time.Millisecond,
	}
	if o.Error != "" {
		res.Err = errors.New(o.Error)
	}
	return res, nil
}

func (f *RunFunction) Handle(ctx context.Context, input inngestgo.Input[runs.RunRequestedEventData]) (any, error) {
	tool := strings.TrimSpace(input.Event.Data.Tool)
	if tool == "" {
		return nil, inngestgo.NoRetryError(fmt.Errorf("missing tool"))
	}

	outcome, err := step.Run(ctx, "run-tool", func(ctx context.Context) (Outcome, error) {
		f.logger.Infow("inngest_step", "step", "run-tool", "tool", tool)
		return f.runTool(ctx, tool, input.Event.Data.Args)
	})
	if err != nil {
		return nil, inngestgo.NoRetryError(err)
	}

	eventID := ""
	if input.Event.ID != nil {
		eventID = strings.TrimSpace(*input.Event.ID)
	}

	runID, err := step.Run(ctx, "persist-run", func(ctx context.Context) (string, error) {
		f.logger.Infow("inngest_step", "step", "persist-run", "tool", tool, "status", outcome.Status)
		return f.persist(ctx, eventID, tool, outcome)
	})
	if err != nil {
		return nil, inngestgo.NoRetryError(err)
	}

	f.logger.Infow("inngest_run_finished",
		"tool", tool,
		"run_id", runID,
		"status", outcome.Status,
	)

	return map[string]any{
		"run_id":  runID,
		"outcome": outcome,
	}, nil
}

// runTool returns an error only when the tool could not be asked to run.
// A tool that fails is a successful step with a failed outcome.
func (f *RunFunction) runTool(ctx context.Context, tool string, args []string) (Outcome, error) {
	quiet := f.cfg != nil && f.cfg.Toolchain.Quiet
	pending, err := f.tools.Run(tool, spawn.Config{
		Args:  spawn.ArgList(args),
		Quiet: quiet,
	})
	if err != nil {
		f.logger.Errorw("inngest_step_failed", "step", "run-tool", "tool", tool, "err", err)
		return Outcome{}, err
	}

	res, err := pending.WaitContext(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if res.Err != nil {
		f.logger.Warnw("inngest_run_tool_failed", "tool", tool, "status", res.Kind.String(), "err", res.Err)
	}
	return outcomeFromResult(res), nil
}

func (f *RunFunction) persist(ctx context.Context, eventID, tool string, outcome Outcome) (string, error) {
	res, err := outcome.result()
	if err != nil {
		return "", err
	}
	id, err := f.store.Save(ctx, runs.SaveInput{
		EventID:   eventID,
		Tool:      tool,
		CreatedBy: runs.CreatedByInngest,
		Result:    res,
	})
	if err != nil {
		f.logger.Errorw("inngest_step_failed", "step", "persist-run", "tool", tool, "err", err)
		return "", err
	}
	return id, nil
}

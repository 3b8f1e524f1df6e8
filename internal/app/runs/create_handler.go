package runs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"glslang-runner/config"
	"glslang-runner/internal/pkg/render"
	"glslang-runner/internal/router"
	runstore "glslang-runner/internal/runs"
	"glslang-runner/internal/spawn"
	"glslang-runner/internal/toolchain"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type toolRunner interface {
	Run(name string, opts spawn.Options) (*spawn.Pending, error)
}

type runSaver interface {
	Save(ctx context.Context, in runstore.SaveInput) (string, error)
}

// CreateHandler runs a tool and answers once it has exited.
type CreateHandler struct {
	cfg       *config.Config
	tools     toolRunner
	store     runSaver
	logger    *zap.SugaredLogger
	validator *validator.Validate
}

type NewCreateHandlerParams struct {
	fx.In

	Cfg    *config.Config
	Tools  *toolchain.Service
	Store  *runstore.Store
	Logger *zap.SugaredLogger
}

func NewCreateHandler(p NewCreateHandlerParams) *CreateHandler {
	return &CreateHandler{
		cfg:       p.Cfg,
		tools:     p.Tools,
		store:     p.Store,
		logger:    p.Logger,
		validator: validator.New(),
	}
}

func (h *CreateHandler) RegisterRoute(r *chi.Mux) {
	r.Post("/v1/runs", h.Handle)
}

type createRequest struct {
	Tool string `json:"tool" validate:"required"`
	// Args is a string, a list of strings, or {"args": ..., "quiet": ...}.
	Args any `json:"args"`
}

type createResponse struct {
	ID              string   `json:"id"`
	Tool            string   `json:"tool"`
	Path            string   `json:"path"`
	Args            []string `json:"args"`
	Status          string   `json:"status"`
	ExitCode        *int     `json:"exit_code"`
	Signal          string   `json:"signal,omitempty"`
	Error           string   `json:"error,omitempty"`
	DurationMs      int64    `json:"duration_ms"`
	Stdout          string   `json:"stdout"`
	Stderr          string   `json:"stderr"`
	StdoutTruncated bool     `json:"stdout_truncated"`
	StderrTruncated bool     `json:"stderr_truncated"`
}

// Handle answers 200 for every run that settled, whatever its status; the
// outcome is in the body.
func (h *CreateHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.ChiErr(w, r, http.StatusBadRequest, err)
		return
	}
	req.Tool = strings.TrimSpace(req.Tool)
	if err := h.validator.Struct(req); err != nil {
		render.ChiErr(w, r, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}

	opts, err := spawn.FromAny(req.Args)
	if err != nil {
		writeValidationErr(w, r, err)
		return
	}

	quiet := true
	var args spawn.Args
	switch o := opts.(type) {
	case spawn.Arg:
		args = o
	case spawn.ArgList:
		args = o
	case spawn.Config:
		args = o.Args
		// Output is always captured; a request may also ask for it to be
		// mirrored to the server's own streams.
		quiet = o.Quiet || (h.cfg != nil && h.cfg.Toolchain.Quiet)
	}

	limit := 1 << 20
	if h.cfg != nil {
		limit = h.cfg.Toolchain.MaxOutputBytes
	}
	stdout, stderr := newCapture(limit), newCapture(limit)

	pending, err := h.tools.Run(req.Tool, spawn.Config{
		Args:   args,
		Quiet:  quiet,
		Stdout: stdout.sink,
		Stderr: stderr.sink,
	})
	switch {
	case errors.Is(err, toolchain.ErrUnknownTool):
		render.ChiErr(w, r, http.StatusNotFound, err)
		return
	case errors.Is(err, spawn.ErrInvalidRequest):
		writeValidationErr(w, r, err)
		return
	case err != nil:
		h.logger.Errorw("run_start_failed", "tool", req.Tool, "err", err)
		render.ChiErr(w, r, http.StatusInternalServerError, errors.New("failed to start run"))
		return
	}

	res, err := pending.WaitContext(r.Context())
	if err != nil {
		// The client went away; record the run once it settles.
		h.logger.Warnw("run_client_gone", "run_id", pending.RunID, "tool", req.Tool, "err", err)
		go h.persistDetached(req.Tool, pending)
		return
	}

	id, err := h.store.Save(r.Context(), runstore.SaveInput{
		Tool:      req.Tool,
		CreatedBy: runstore.CreatedByHTTP,
		Result:    res,
	})
	if err != nil {
		h.logger.Errorw("run_persist_failed", "run_id", res.RunID, "tool", req.Tool, "err", err)
		id = res.RunID
	}

	resp := createResponse{
		ID:              id,
		Tool:            req.Tool,
		Path:            res.Path,
		Args:            res.Args,
		Status:          res.Kind.String(),
		ExitCode:        res.ExitCode,
		Signal:          res.Signal,
		DurationMs:      res.Duration.Milliseconds(),
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
	}
	if resp.Args == nil {
		resp.Args = []string{}
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	render.ChiJSON(w, r, http.StatusOK, resp)
}

func (h *CreateHandler) persistDetached(tool string, pending *spawn.Pending) {
	res := pending.Wait()
	if _, err := h.store.Save(context.Background(), runstore.SaveInput{
		Tool:      tool,
		CreatedBy: runstore.CreatedByHTTP,
		Result:    res,
	}); err != nil {
		h.logger.Errorw("run_persist_failed", "run_id", res.RunID, "tool", tool, "err", err)
	}
}

func writeValidationErr(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *spawn.ValidationError
	if errors.As(err, &vErr) {
		render.ChiFieldErr(w, r, http.StatusBadRequest, vErr.Field, err)
		return
	}
	render.ChiErr(w, r, http.StatusBadRequest, err)
}

var _ router.Handler = (*CreateHandler)(nil)

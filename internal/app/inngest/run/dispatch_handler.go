package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pkginngest "glslang-runner/internal/pkg/inngest"
	"glslang-runner/internal/pkg/render"
	"glslang-runner/internal/router"
	"glslang-runner/internal/runs"
	"glslang-runner/internal/spawn"

	"github.com/go-chi/chi/v5"
	"github.com/inngest/inngestgo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type eventSender interface {
	Send(ctx context.Context, evt any) (string, error)
}

// DispatchHandler sends a run request to Inngest instead of RabbitMQ.
type DispatchHandler struct {
	client eventSender
	logger *zap.SugaredLogger
}

type NewDispatchHandlerParams struct {
	fx.In

	Client inngestgo.Client
	Logger *zap.SugaredLogger
}

func NewDispatchHandler(p NewDispatchHandlerParams) *DispatchHandler {
	return &DispatchHandler{client: p.Client, logger: p.Logger}
}

func (h *DispatchHandler) RegisterRoute(r *chi.Mux) {
	r.Post("/v1/runs/dispatch", h.Handle)
}

type dispatchRequest struct {
	Tool string `json:"tool"`
	Args any    `json:"args"`
}

type dispatchResponse struct {
	OK      bool   `json:"ok"`
	EventID string `json:"event_id"`
}

func (h *DispatchHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := render.DecodeJSON(w, r, &req); err != nil {
		render.ChiErr(w, r, http.StatusBadRequest, err)
		return
	}
	req.Tool = strings.TrimSpace(req.Tool)
	if req.Tool == "" {
		render.ChiFieldErr(w, r, http.StatusBadRequest, "tool", errors.New("missing tool"))
		return
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

	eventID := runs.EventID(req.Tool, args)
	_, err = h.client.Send(r.Context(), inngestgo.Event{
		ID:   inngestgo.StrPtr(eventID),
		Name: runs.RunRequestedEventName,
		Data: map[string]any{
			"tool": req.Tool,
			"args": args,
		},
		Timestamp: inngestgo.Timestamp(time.Now()),
	})
	if errors.Is(err, pkginngest.ErrInngestDisabled) {
		render.ChiErr(w, r, http.StatusServiceUnavailable, errors.New("inngest disabled"))
		return
	}
	if err != nil {
		h.logger.Errorw("inngest_dispatch_failed", "event_id", eventID, "tool", req.Tool, "err", err)
		render.ChiErr(w, r, http.StatusBadGateway, fmt.Errorf("failed to send event: %w", err))
		return
	}

	h.logger.Infow("inngest_dispatched", "event_id", eventID, "tool", req.Tool)
	render.ChiJSON(w, r, http.StatusAccepted, dispatchResponse{OK: true, EventID: eventID})
}

var _ router.Handler = (*DispatchHandler)(nil)

package runs

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"glslang-runner/db"
	"glslang-runner/internal/pkg/render"
	"glslang-runner/internal/router"
	runstore "glslang-runner/internal/runs"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type runReader interface {
	Get(ctx context.Context, id string) (runstore.Run, error)
	List(ctx context.Context, in runstore.ListInput) ([]runstore.Run, error)
}

type GetByIDHandler struct {
	store  runReader
	logger *zap.SugaredLogger
}

type NewGetByIDHandlerParams struct {
	fx.In

	Store  *runstore.Store
	Logger *zap.SugaredLogger
}

func NewGetByIDHandler(p NewGetByIDHandlerParams) *GetByIDHandler {
	return &GetByIDHandler{
		store:  p.Store,
		logger: p.Logger,
	}
}

func (h *GetByIDHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/v1/runs/{id}", h.Handle)
}

func (h *GetByIDHandler) Handle(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		render.ChiErr(w, r, http.StatusBadRequest, errors.New("missing id"))
		return
	}

	run, err := h.store.Get(r.Context(), id)
	switch {
	case errors.Is(err, runstore.ErrNotFound):
		render.ChiErr(w, r, http.StatusNotFound, errors.New("not found"))
		return
	case errors.Is(err, db.ErrSQLDisabled):
		render.ChiErr(w, r, http.StatusServiceUnavailable, errors.New("run history disabled"))
		return
	case err != nil:
		h.logger.Errorw("run_get_by_id_failed", "id", id, "err", err)
		render.ChiErr(w, r, http.StatusInternalServerError, errors.New("failed to fetch run"))
		return
	}

	render.ChiJSON(w, r, http.StatusOK, run)
}

var _ router.Handler = (*GetByIDHandler)(nil)

package runs

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"glslang-runner/db"
	"glslang-runner/internal/pkg/render"
	"glslang-runner/internal/router"
	runstore "glslang-runner/internal/runs"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ListHandler struct {
	store  runReader
	logger *zap.SugaredLogger
}

type NewListHandlerParams struct {
	fx.In

	Store  *runstore.Store
	Logger *zap.SugaredLogger
}

func NewListHandler(p NewListHandlerParams) *ListHandler {
	return &ListHandler{store: p.Store, logger: p.Logger}
}

func (h *ListHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/v1/runs", h.Handle)
}

type listResponse struct {
	Runs []runstore.Run `json:"runs"`
}

func (h *ListHandler) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			render.ChiFieldErr(w, r, http.StatusBadRequest, "limit", errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	list, err := h.store.List(r.Context(), runstore.ListInput{
		Tool:  q.Get("tool"),
		Limit: limit,
	})
	switch {
	case errors.Is(err, db.ErrSQLDisabled):
		render.ChiErr(w, r, http.StatusServiceUnavailable, errors.New("run history disabled"))
		return
	case err != nil:
		h.logger.Errorw("run_list_failed", "err", err)
		render.ChiErr(w, r, http.StatusInternalServerError, errors.New("failed to list runs"))
		return
	}

	if list == nil {
		list = []runstore.Run{}
	}
	render.ChiJSON(w, r, http.StatusOK, listResponse{Runs: list})
}

var _ router.Handler = (*ListHandler)(nil)

package inngest

import (
	"errors"
	"net/http"
	"strings"

	"glslang-runner/config"
	pkginngest "glslang-runner/internal/pkg/inngest"
	"glslang-runner/internal/pkg/render"
	"glslang-runner/internal/router"

	"github.com/go-chi/chi/v5"
	"github.com/inngest/inngestgo"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// InngestHandler mounts the Inngest serve endpoint on the router.
type InngestHandler struct {
	logger *zap.SugaredLogger
	cfg    *config.Config
	client inngestgo.Client
}

type NewInngestHandlerParams struct {
	fx.In

	Logger *zap.SugaredLogger
	Config *config.Config
	Client inngestgo.Client
}

func NewInngestHandler(p NewInngestHandlerParams) *InngestHandler {
	return &InngestHandler{
		logger: p.Logger,
		cfg:    p.Config,
		client: p.Client,
	}
}

func (h *InngestHandler) servePath() string {
	if h.cfg != nil {
		if v := strings.TrimSpace(h.cfg.Inngest.ServePath); v != "" {
			return v
		}
	}
	return pkginngest.DefaultServePath
}

func (h *InngestHandler) RegisterRoute(r *chi.Mux) {
	path := h.servePath()
	r.Post(path, h.Handle)
	r.Put(path, h.Handle)
	r.Get(path, h.Handle)
}

func (h *InngestHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.cfg != nil && strings.TrimSpace(h.cfg.Inngest.AppID) == "" {
		render.ChiErr(w, r, http.StatusNotImplemented, errors.New("inngest disabled: set INNGEST_APP_ID to enable"))
		return
	}

	h.client.Serve().ServeHTTP(w, r)
}

var _ router.Handler = (*InngestHandler)(nil)

package runs

import (
	"net/http"

	"glslang-runner/internal/pkg/render"
	"glslang-runner/internal/router"
	"glslang-runner/internal/toolchain"

	"github.com/go-chi/chi/v5"
)

// ToolsHandler reports the registered tools and whether each one can run.
type ToolsHandler struct {
	tools *toolchain.Service
}

func NewToolsHandler(tools *toolchain.Service) *ToolsHandler {
	return &ToolsHandler{tools: tools}
}

func (h *ToolsHandler) RegisterRoute(r *chi.Mux) {
	r.Get("/v1/tools", h.Handle)
}

type toolStatus struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

func (h *ToolsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	out := make([]toolStatus, 0)
	for _, name := range h.tools.Names() {
		t, err := h.tools.Tool(name)
		if err != nil {
			continue
		}
		st := toolStatus{Name: t.Name(), Path: t.Path(), Available: true}
		if err := toolchain.Check(t); err != nil {
			st.Available = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	render.ChiJSON(w, r, http.StatusOK, map[string]any{"tools": out})
}

var _ router.Handler = (*ToolsHandler)(nil)

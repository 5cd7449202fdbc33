package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterArbreRoutes decision-tree lifecycle, evaluation and reference data.
func (r *Router) RegisterArbreRoutes(a *ArbresHandler) {
	r.Handle("/admin/api/v1/arbres", a.ServeHTTP)
	r.Handle("/admin/api/v1/arbres/", a.ServeHTTP)
	r.Handle("/admin/api/v1/arbres/types-condition", a.ServeHTTP)
}

// RegisterReductionRoutes ledger reads and accounting export.
func (r *Router) RegisterReductionRoutes(h *ReductionsHandler) {
	r.Handle("/admin/api/v1/reductions/export", h.ExportJSON)
	r.Handle("/admin/api/v1/reductions/export.xlsx", h.ExportXLSX)
	r.Handle("/admin/api/v1/cotisations/", h.ListByCotisation)
}

// RegisterTagRoutes tag catalog for the condition editor.
func (r *Router) RegisterTagRoutes(h *TagsHandler) {
	r.Handle("/admin/api/v1/tags", h.ListTags)
}

package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"ludotheque-admin/internal/service"
)

// TagsHandler tag catalog for the TAG condition editor.
type TagsHandler struct {
	referenceService service.ReferenceService
	logger           *zap.Logger
}

func NewTagsHandler(references service.ReferenceService, logger *zap.Logger) *TagsHandler {
	return &TagsHandler{
		referenceService: references,
		logger:           logger,
	}
}

// ListTags returns the tags available to a structure (?structure_id=).
func (h *TagsHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	structureID := r.URL.Query().Get("structure_id")
	tags, err := h.referenceService.GetTagsDisponibles(r.Context(), structureID)
	if err != nil {
		h.logger.Error("GetTagsDisponibles failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(tags))
}

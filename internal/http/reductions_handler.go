package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ludotheque-admin/internal/repository"
	"ludotheque-admin/internal/service"
)

// ReductionsHandler ledger reads and accounting export.
type ReductionsHandler struct {
	exportService service.ExportService
	reductions    repository.ReductionsRepository
	logger        *zap.Logger
}

func NewReductionsHandler(exports service.ExportService, reductions repository.ReductionsRepository, logger *zap.Logger) *ReductionsHandler {
	return &ReductionsHandler{
		exportService: exports,
		reductions:    reductions,
		logger:        logger,
	}
}

// ExportJSON per-operation aggregate over ?date_start=&date_end=&structure_id=.
func (h *ReductionsHandler) ExportJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start, err := parseDate(r.URL.Query().Get("date_start"))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid date_start"))
		return
	}
	end, err := parseDate(r.URL.Query().Get("date_end"))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid date_end"))
		return
	}
	structureID := r.URL.Query().Get("structure_id")

	aggregats, err := h.exportService.ExportReductionsParOperation(r.Context(), start, end, structureID)
	if err != nil {
		h.logger.Error("ExportReductionsParOperation failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(aggregats))
}

// ExportXLSX same aggregate as a downloadable workbook.
func (h *ReductionsHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	start, err := parseDate(r.URL.Query().Get("date_start"))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid date_start"))
		return
	}
	end, err := parseDate(r.URL.Query().Get("date_end"))
	if err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid date_end"))
		return
	}
	structureID := r.URL.Query().Get("structure_id")

	workbook, err := h.exportService.ExportReductionsXLSX(r.Context(), start, end, structureID)
	if err != nil {
		h.logger.Error("ExportReductionsXLSX failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}

	filename := fmt.Sprintf("reductions_%s_%s.xlsx",
		start.Format("20060102"), end.Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

// ListByCotisation returns a fee's ledger in application order.
// Route: /admin/api/v1/cotisations/{id}/reductions
func (h *ReductionsHandler) ListByCotisation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/admin/api/v1/cotisations/")
	cotisationID := strings.TrimSuffix(path, "/reductions")
	if cotisationID == "" || cotisationID == path {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	lignes, err := h.reductions.ListByCotisation(r.Context(), cotisationID)
	if err != nil {
		h.logger.Error("ListByCotisation failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(lignes))
}

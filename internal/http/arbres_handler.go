package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
	"ludotheque-admin/internal/service"
)

// ArbresHandler decision-tree admin API.
type ArbresHandler struct {
	arbreService      service.ArbreService
	evaluationService service.EvaluationService
	referenceService  service.ReferenceService
	logger            *zap.Logger
}

func NewArbresHandler(arbres service.ArbreService, evaluations service.EvaluationService, references service.ReferenceService, logger *zap.Logger) *ArbresHandler {
	return &ArbresHandler{
		arbreService:      arbres,
		evaluationService: evaluations,
		referenceService:  references,
		logger:            logger,
	}
}

const arbresPrefix = "/admin/api/v1/arbres"

// ServeHTTP route dispatch.
func (h *ArbresHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == arbresPrefix && r.Method == http.MethodGet:
		h.GetByTarif(w, r)
	case path == arbresPrefix && r.Method == http.MethodPost:
		h.Create(w, r)
	case path == arbresPrefix+"/types-condition" && r.Method == http.MethodGet:
		h.TypesCondition(w, r)
	case strings.HasSuffix(path, "/verrouiller") && r.Method == http.MethodPost:
		h.Verrouiller(w, r, h.arbreID(path, "/verrouiller"))
	case strings.HasSuffix(path, "/modifiable") && r.Method == http.MethodGet:
		h.Modifiable(w, r, h.arbreID(path, "/modifiable"))
	case strings.HasSuffix(path, "/dupliquer") && r.Method == http.MethodPost:
		h.Dupliquer(w, r, h.arbreID(path, "/dupliquer"))
	case strings.HasSuffix(path, "/bornes") && r.Method == http.MethodGet:
		h.Bornes(w, r, h.arbreID(path, "/bornes"))
	case strings.HasSuffix(path, "/simulation") && r.Method == http.MethodPost:
		h.Simulation(w, r, h.arbreID(path, "/simulation"))
	case strings.HasSuffix(path, "/tarifer") && r.Method == http.MethodPost:
		h.Tarifer(w, r, h.arbreID(path, "/tarifer"))
	case strings.HasPrefix(path, arbresPrefix+"/") && r.Method == http.MethodGet:
		h.Get(w, r, strings.TrimPrefix(path, arbresPrefix+"/"))
	case strings.HasPrefix(path, arbresPrefix+"/") && r.Method == http.MethodPut:
		h.Modifier(w, r, strings.TrimPrefix(path, arbresPrefix+"/"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ArbresHandler) arbreID(path, suffix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, arbresPrefix+"/"), suffix)
}

// GetByTarif returns the tree owned by a tariff (?tarif_id=).
func (h *ArbresHandler) GetByTarif(w http.ResponseWriter, r *http.Request) {
	tarifID := r.URL.Query().Get("tarif_id")
	if tarifID == "" {
		writeJSON(w, http.StatusOK, Fail("tarif_id is required"))
		return
	}

	arbre, err := h.arbreService.GetArbreByTarif(r.Context(), tarifID)
	if err != nil {
		h.logger.Error("GetArbreByTarif failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(arbre))
}

func (h *ArbresHandler) Get(w http.ResponseWriter, r *http.Request, arbreID string) {
	arbre, err := h.arbreService.GetArbre(r.Context(), arbreID)
	if err != nil {
		h.logger.Error("GetArbre failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(arbre))
}

func (h *ArbresHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreerArbreRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}

	arbre, err := h.arbreService.CreerArbre(r.Context(), req)
	if err != nil {
		h.logger.Error("CreerArbre failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(arbre))
}

func (h *ArbresHandler) Modifier(w http.ResponseWriter, r *http.Request, arbreID string) {
	var req service.ModifierArbreRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	req.ArbreID = arbreID

	arbre, err := h.arbreService.ModifierArbre(r.Context(), req)
	if err != nil {
		h.logger.Error("ModifierArbre failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(arbre))
}

func (h *ArbresHandler) Verrouiller(w http.ResponseWriter, r *http.Request, arbreID string) {
	if err := h.arbreService.VerrouillerArbre(r.Context(), arbreID); err != nil {
		h.logger.Error("VerrouillerArbre failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"arbre_id": arbreID, "verrouille": true}))
}

func (h *ArbresHandler) Modifiable(w http.ResponseWriter, r *http.Request, arbreID string) {
	modifiable, err := h.arbreService.EstModifiable(r.Context(), arbreID)
	if err != nil {
		h.logger.Error("EstModifiable failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"arbre_id": arbreID, "modifiable": modifiable}))
}

func (h *ArbresHandler) Dupliquer(w http.ResponseWriter, r *http.Request, arbreID string) {
	arbre, err := h.arbreService.DupliquerArbre(r.Context(), arbreID)
	if err != nil {
		h.logger.Error("DupliquerArbre failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(arbre))
}

func (h *ArbresHandler) Bornes(w http.ResponseWriter, r *http.Request, arbreID string) {
	montantBase := parseFloat(r.URL.Query().Get("montant_base"), 0)
	bornes, err := h.arbreService.CalculerBornesTarif(r.Context(), arbreID, montantBase)
	if err != nil {
		h.logger.Error("CalculerBornesTarif failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(bornes))
}

// simulationRequest evaluation input: member profile + context with optional
// simulation overrides.
type simulationRequest struct {
	Utilisateur domain.Utilisateur        `json:"utilisateur"`
	Contexte    domain.ContexteEvaluation `json:"contexte"`
}

// Simulation runs a read-only walk; nothing is persisted and the tree is not
// locked.
func (h *ArbresHandler) Simulation(w http.ResponseWriter, r *http.Request, arbreID string) {
	var req simulationRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	if req.Contexte.DateCotisation.IsZero() {
		req.Contexte.DateCotisation = time.Now()
	}
	req.Contexte.Simulation = true

	result, err := h.evaluationService.EvaluerArbre(r.Context(), arbreID, &req.Utilisateur, &req.Contexte)
	if err != nil {
		h.logger.Error("EvaluerArbre failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

// tariferRequest pricing input for a real fee.
type tariferRequest struct {
	CotisationID string                    `json:"cotisation_id"`
	Utilisateur  domain.Utilisateur        `json:"utilisateur"`
	Contexte     domain.ContexteEvaluation `json:"contexte"`
}

// Tarifer prices a real fee: evaluates, locks the tree and writes the ledger.
func (h *ArbresHandler) Tarifer(w http.ResponseWriter, r *http.Request, arbreID string) {
	var req tariferRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusOK, Fail("invalid request body"))
		return
	}
	if req.Contexte.DateCotisation.IsZero() {
		req.Contexte.DateCotisation = time.Now()
	}

	result, err := h.evaluationService.TariferCotisation(r.Context(), service.TariferCotisationRequest{
		ArbreID:      arbreID,
		CotisationID: req.CotisationID,
		Utilisateur:  &req.Utilisateur,
		Contexte:     &req.Contexte,
	})
	if err != nil {
		h.logger.Error("TariferCotisation failed", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

func (h *ArbresHandler) TypesCondition(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.referenceService.GetTypesCondition()))
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
	"ludotheque-admin/internal/engine"
	"ludotheque-admin/internal/repository"
)

// EvaluationService runs tree walks: simulations return the result directly,
// fee pricing additionally locks the tree and writes the reduction ledger in
// one unit of work.
type EvaluationService interface {
	// EvaluerArbre walks the tree for a user/context pair and returns the
	// reductions, ordered path, total and full audit trace. Read-only.
	EvaluerArbre(ctx context.Context, arbreID string, user *domain.Utilisateur, evalCtx *domain.ContexteEvaluation) (*engine.ResultatEvaluation, error)

	// TariferCotisation prices a real membership fee: evaluates the tree, then
	// locks it and persists the applied reductions in the same transaction.
	TariferCotisation(ctx context.Context, req TariferCotisationRequest) (*engine.ResultatEvaluation, error)
}

// TariferCotisationRequest pricing of one fee against one tree.
type TariferCotisationRequest struct {
	ArbreID      string
	CotisationID string
	Utilisateur  *domain.Utilisateur
	Contexte     *domain.ContexteEvaluation
}

type evaluationService struct {
	arbres      repository.ArbresRepository
	reductions  repository.ReductionsRepository
	cotisations repository.CotisationsRepository
	geo         GroupementResolver
	evaluator   *engine.Evaluator
	logger      *zap.Logger
}

func NewEvaluationService(
	arbres repository.ArbresRepository,
	reductions repository.ReductionsRepository,
	cotisations repository.CotisationsRepository,
	geo GroupementResolver,
	evaluator *engine.Evaluator,
	logger *zap.Logger,
) EvaluationService {
	return &evaluationService{
		arbres:      arbres,
		reductions:  reductions,
		cotisations: cotisations,
		geo:         geo,
		evaluator:   evaluator,
		logger:      logger,
	}
}

func (s *evaluationService) EvaluerArbre(ctx context.Context, arbreID string, user *domain.Utilisateur, evalCtx *domain.ContexteEvaluation) (*engine.ResultatEvaluation, error) {
	if arbreID == "" {
		return nil, fmt.Errorf("arbre_id is required")
	}
	if evalCtx == nil {
		return nil, fmt.Errorf("evaluation context is required")
	}

	arbre, err := s.arbres.GetArbre(ctx, arbreID)
	if err != nil {
		return nil, err
	}
	doc, err := domain.ParseDocument(arbre.Document)
	if err != nil {
		return nil, err
	}

	// Work on a copy: resolution must not leak into the caller's context.
	resolved := *evalCtx
	if err := s.resolveContexte(ctx, doc, user, &resolved); err != nil {
		return nil, err
	}

	return s.evaluator.EvaluerDocument(doc, user, &resolved), nil
}

func (s *evaluationService) TariferCotisation(ctx context.Context, req TariferCotisationRequest) (*engine.ResultatEvaluation, error) {
	if req.CotisationID == "" {
		return nil, fmt.Errorf("cotisation_id is required")
	}

	exists, err := s.cotisations.CotisationExists(ctx, req.CotisationID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("cotisation %s: %w", req.CotisationID, domain.ErrCotisationNotFound)
	}

	arbre, err := s.arbres.GetArbre(ctx, req.ArbreID)
	if err != nil {
		return nil, err
	}

	evalCtx := req.Contexte
	if evalCtx == nil {
		return nil, fmt.Errorf("evaluation context is required")
	}
	evalCtx.Simulation = false

	result, err := s.EvaluerArbre(ctx, req.ArbreID, req.Utilisateur, evalCtx)
	if err != nil {
		return nil, err
	}

	// The tree is frozen in the same transaction as the ledger write, even
	// when the walk produced no reduction: the fee was priced against this
	// document.
	if err := s.reductions.CreateReductionsAndLockArbre(ctx,
		req.CotisationID, arbre.StructureID, req.ArbreID,
		result.Reductions, time.Now(),
	); err != nil {
		return nil, err
	}

	s.logger.Info("cotisation priced",
		zap.String("cotisation_id", req.CotisationID),
		zap.String("arbre_id", req.ArbreID),
		zap.Int("nb_reductions", len(result.Reductions)),
		zap.Float64("total_reductions", result.TotalReductions))

	return result, nil
}

// resolveContexte fills the derived context figures the tree actually needs:
// tenure from the earliest fee, household registration count, and the commune's
// grouping memberships. Simulation overrides supplied by the caller win.
func (s *evaluationService) resolveContexte(ctx context.Context, doc *domain.DocumentArbre, user *domain.Utilisateur, evalCtx *domain.ContexteEvaluation) error {
	needs := scanBesoins(doc)

	if needs.fidelite && evalCtx.Anciennete == nil && user != nil && user.ID != "" {
		premiere, err := s.cotisations.GetPremiereCotisationDate(ctx, user.ID)
		if err != nil {
			return err
		}
		if premiere != nil {
			anciennete := float64(domain.Age(*premiere, evalCtx.DateCotisation))
			evalCtx.Anciennete = &anciennete
		}
	}

	if needs.multiInscriptions && evalCtx.NbInscrits == nil && user != nil && user.FamilleID != "" {
		count, err := s.cotisations.CountInscritsActifs(ctx, user.FamilleID, evalCtx.DateCotisation)
		if err != nil {
			return err
		}
		evalCtx.NbInscrits = &count
	}

	if needs.groupement && evalCtx.GroupementIDs == nil && user != nil && user.CommuneID != "" {
		groupements, err := s.geo.GroupementsDeCommune(ctx, user.CommuneID)
		if err != nil {
			// Reference lookup failure degrades to "no grouping": the
			// condition resolves to false instead of failing the walk.
			s.logger.Warn("groupement lookup failed",
				zap.String("commune_id", user.CommuneID), zap.Error(err))
			groupements = []string{}
		}
		evalCtx.GroupementIDs = groupements
	}

	return nil
}

// besoins records which derived figures a document's conditions consume.
type besoins struct {
	fidelite          bool
	multiInscriptions bool
	groupement        bool
}

func scanBesoins(doc *domain.DocumentArbre) besoins {
	var b besoins
	if doc == nil {
		return b
	}
	scanNodes(doc.Nodes, &b)
	return b
}

func scanNodes(nodes []domain.Node, b *besoins) {
	for i := range nodes {
		node := &nodes[i]
		switch node.Type {
		case domain.TypeFidelite:
			b.fidelite = true
		case domain.TypeMultiInscriptions:
			b.multiInscriptions = true
		case domain.TypeCommune:
			for j := range node.Branches {
				if cond, err := domain.ParseCondition(node.Type, node.Branches[j].Condition); err == nil &&
					cond.Type == domain.ConditionGroupement {
					b.groupement = true
				}
			}
		}
		for j := range node.Branches {
			scanNodes(node.Branches[j].Enfants, b)
		}
	}
}

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
	"ludotheque-admin/internal/engine"
	"ludotheque-admin/internal/repository"
)

// ArbreService decision-tree lifecycle: create/modify/lock/duplicate, plus the
// price-envelope computation for the tariff editor.
type ArbreService interface {
	GetArbre(ctx context.Context, arbreID string) (*domain.ArbreDecision, error)
	GetArbreByTarif(ctx context.Context, tarifID string) (*domain.ArbreDecision, error)
	CreerArbre(ctx context.Context, req CreerArbreRequest) (*domain.ArbreDecision, error)
	ModifierArbre(ctx context.Context, req ModifierArbreRequest) (*domain.ArbreDecision, error)
	VerrouillerArbre(ctx context.Context, arbreID string) error
	EstModifiable(ctx context.Context, arbreID string) (bool, error)
	DupliquerArbre(ctx context.Context, arbreID string) (*domain.ArbreDecision, error)
	CalculerBornesTarif(ctx context.Context, arbreID string, montantBase float64) (*engine.BornesTarif, error)
}

type arbreService struct {
	arbres    repository.ArbresRepository
	evaluator *engine.Evaluator
	logger    *zap.Logger
}

func NewArbreService(arbres repository.ArbresRepository, evaluator *engine.Evaluator, logger *zap.Logger) ArbreService {
	return &arbreService{
		arbres:    arbres,
		evaluator: evaluator,
		logger:    logger,
	}
}

// CreerArbreRequest new tree for a tariff.
type CreerArbreRequest struct {
	TarifID       string          `json:"tarif_id"`
	StructureID   string          `json:"structure_id"`
	ModeAffichage string          `json:"mode_affichage"`
	Document      json.RawMessage `json:"document"`
}

// ModifierArbreRequest document/display-mode replacement.
type ModifierArbreRequest struct {
	ArbreID       string          `json:"arbre_id"`
	Document      json.RawMessage `json:"document"`
	ModeAffichage string          `json:"mode_affichage"`
}

func (s *arbreService) GetArbre(ctx context.Context, arbreID string) (*domain.ArbreDecision, error) {
	return s.arbres.GetArbre(ctx, arbreID)
}

func (s *arbreService) GetArbreByTarif(ctx context.Context, tarifID string) (*domain.ArbreDecision, error) {
	return s.arbres.GetArbreByTarif(ctx, tarifID)
}

// CreerArbre creates a tree for a tariff. A tariff may own at most one tree;
// a second creation is rejected. The document defaults to the empty document.
func (s *arbreService) CreerArbre(ctx context.Context, req CreerArbreRequest) (*domain.ArbreDecision, error) {
	if req.TarifID == "" {
		return nil, fmt.Errorf("tarif_id is required")
	}

	document := req.Document
	if len(document) == 0 {
		document = json.RawMessage(domain.DocumentVide)
	}
	if _, err := domain.ParseDocument(document); err != nil {
		return nil, err
	}

	arbre := &domain.ArbreDecision{
		TarifID:       req.TarifID,
		StructureID:   req.StructureID,
		ModeAffichage: req.ModeAffichage,
		Document:      document,
		Version:       1,
	}

	arbreID, err := s.arbres.CreateArbre(ctx, arbre)
	if err != nil {
		return nil, err
	}

	s.logger.Info("arbre created",
		zap.String("arbre_id", arbreID),
		zap.String("tarif_id", req.TarifID))

	return s.arbres.GetArbre(ctx, arbreID)
}

// ModifierArbre replaces the document of an unlocked tree. The version is
// bumped only when the document content actually changed (structural
// comparison, insensitive to key order and formatting).
func (s *arbreService) ModifierArbre(ctx context.Context, req ModifierArbreRequest) (*domain.ArbreDecision, error) {
	if req.ArbreID == "" {
		return nil, fmt.Errorf("arbre_id is required")
	}
	if len(req.Document) == 0 {
		return nil, fmt.Errorf("document is required")
	}

	arbre, err := s.arbres.GetArbre(ctx, req.ArbreID)
	if err != nil {
		return nil, err
	}
	if arbre.Verrouille {
		return nil, fmt.Errorf("arbre %s: %w", req.ArbreID, domain.ErrArbreVerrouille)
	}
	if _, err := domain.ParseDocument(req.Document); err != nil {
		return nil, err
	}

	modeAffichage := req.ModeAffichage
	if modeAffichage == "" {
		modeAffichage = arbre.ModeAffichage
	}

	changed, err := documentsDiffer(arbre.Document, req.Document)
	if err != nil {
		return nil, err
	}
	if !changed && modeAffichage == arbre.ModeAffichage {
		return arbre, nil
	}

	if err := s.arbres.UpdateDocument(ctx, req.ArbreID, req.Document, modeAffichage, changed); err != nil {
		return nil, err
	}

	s.logger.Info("arbre modified",
		zap.String("arbre_id", req.ArbreID),
		zap.Bool("version_bumped", changed))

	return s.arbres.GetArbre(ctx, req.ArbreID)
}

// VerrouillerArbre freezes a tree. Idempotent.
func (s *arbreService) VerrouillerArbre(ctx context.Context, arbreID string) error {
	if arbreID == "" {
		return fmt.Errorf("arbre_id is required")
	}
	return s.arbres.LockArbre(ctx, arbreID, time.Now())
}

// EstModifiable reports whether the tree can still be edited.
func (s *arbreService) EstModifiable(ctx context.Context, arbreID string) (bool, error) {
	arbre, err := s.arbres.GetArbre(ctx, arbreID)
	if err != nil {
		return false, err
	}
	return !arbre.Verrouille, nil
}

// DupliquerArbre re-opens a locked tree for edits: the lock is cleared and the
// version bumped on the same row, so the tariff keeps a single tree. This is
// how administrators create a new version of a tariff's rules after it has
// priced real fees. An unlocked tree is returned unchanged.
func (s *arbreService) DupliquerArbre(ctx context.Context, arbreID string) (*domain.ArbreDecision, error) {
	arbre, err := s.arbres.GetArbre(ctx, arbreID)
	if err != nil {
		return nil, err
	}
	if !arbre.Verrouille {
		return arbre, nil
	}

	if err := s.arbres.UnlockArbre(ctx, arbreID); err != nil {
		return nil, err
	}

	s.logger.Info("arbre duplicated (unlocked in place)",
		zap.String("arbre_id", arbreID),
		zap.Int("previous_version", arbre.Version))

	return s.arbres.GetArbre(ctx, arbreID)
}

// CalculerBornesTarif computes the price envelope of the tariff for a base
// amount, across every combination of matching branches.
func (s *arbreService) CalculerBornesTarif(ctx context.Context, arbreID string, montantBase float64) (*engine.BornesTarif, error) {
	arbre, err := s.arbres.GetArbre(ctx, arbreID)
	if err != nil {
		return nil, err
	}
	doc, err := domain.ParseDocument(arbre.Document)
	if err != nil {
		return nil, err
	}
	bornes := s.evaluator.CalculerBornes(doc, montantBase)
	return &bornes, nil
}

// documentsDiffer compares two documents structurally, so reordered keys or
// whitespace-only differences do not count as changes.
func documentsDiffer(a, b json.RawMessage) (bool, error) {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false, fmt.Errorf("invalid stored document: %w", err)
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false, fmt.Errorf("invalid document: %w", err)
	}
	return !reflect.DeepEqual(va, vb), nil
}

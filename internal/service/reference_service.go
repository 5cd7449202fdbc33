package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
	"ludotheque-admin/internal/repository"
	"ludotheque-admin/internal/store"
)

// ReferenceService read-only reference data for the tree-editing UI: the
// condition-kind catalog and the available tags.
type ReferenceService interface {
	GetTypesCondition() []domain.TypeConditionInfo
	GetTagsDisponibles(ctx context.Context, structureID string) ([]domain.Tag, error)
}

type referenceService struct {
	tags   repository.TagsRepository
	kv     store.KV
	logger *zap.Logger
}

const tagsCacheTTL = 5 * time.Minute

func NewReferenceService(tags repository.TagsRepository, kv store.KV, logger *zap.Logger) ReferenceService {
	return &referenceService{
		tags:   tags,
		kv:     kv,
		logger: logger,
	}
}

var comparisonOps = []string{
	domain.OpInferieur, domain.OpInferieurEgal,
	domain.OpSuperieur, domain.OpSuperieurEgal,
	domain.OpEgal, domain.OpEntre,
}

// typesCondition is static: the engine knows a closed set of condition kinds.
var typesCondition = []domain.TypeConditionInfo{
	{
		Code:        domain.TypeCommune,
		Libelle:     "Commune",
		Description: "Appartenance à un groupement intercommunal, à une liste de communes ou à une commune.",
	},
	{
		Code:        domain.TypeQF,
		Libelle:     "Quotient familial",
		Description: "Tranche de quotient familial, bornes incluses.",
	},
	{
		Code:        domain.TypeAge,
		Libelle:     "Âge",
		Description: "Âge révolu à la date de cotisation.",
		Operateurs:  comparisonOps,
	},
	{
		Code:        domain.TypeFidelite,
		Libelle:     "Fidélité",
		Description: "Ancienneté en années depuis la première cotisation.",
		Operateurs:  comparisonOps,
	},
	{
		Code:        domain.TypeMultiInscriptions,
		Libelle:     "Inscriptions multiples",
		Description: "Nombre de cotisations actives dans la famille.",
		Operateurs:  comparisonOps,
	},
	{
		Code:        domain.TypeTag,
		Libelle:     "Tag",
		Description: "Présence ou absence de tags sur l'adhérent.",
		Modes:       []string{domain.ModeContient, domain.ModeNeContientPas},
	},
}

func (s *referenceService) GetTypesCondition() []domain.TypeConditionInfo {
	out := make([]domain.TypeConditionInfo, len(typesCondition))
	copy(out, typesCondition)
	return out
}

// GetTagsDisponibles returns the tags a structure can reference in TAG
// conditions, cached for a few minutes: the editor polls this on every node.
func (s *referenceService) GetTagsDisponibles(ctx context.Context, structureID string) ([]domain.Tag, error) {
	cacheKey := "tags:catalog:" + structureID
	if structureID == "" {
		cacheKey = "tags:catalog:_all"
	}

	if s.kv != nil {
		if cached, err := s.kv.Get(ctx, cacheKey); err == nil {
			var tags []domain.Tag
			if jsonErr := json.Unmarshal([]byte(cached), &tags); jsonErr == nil {
				return tags, nil
			}
		}
	}

	tags, err := s.tags.ListTags(ctx, structureID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []domain.Tag{}
	}

	if s.kv != nil {
		if payload, jsonErr := json.Marshal(tags); jsonErr == nil {
			if setErr := s.kv.Set(ctx, cacheKey, string(payload), tagsCacheTTL); setErr != nil {
				s.logger.Warn("failed to cache tag catalog",
					zap.String("structure_id", structureID), zap.Error(setErr))
			}
		}
	}

	return tags, nil
}

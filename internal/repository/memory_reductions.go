package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ludotheque-admin/internal/domain"
)

// MemoryReductionsRepository in-memory ledger for DB-less dev and service
// tests. Takes the memory trees repo so the pricing write can lock the tree
// "in the same unit of work".
type MemoryReductionsRepository struct {
	mu     sync.RWMutex
	lignes map[string][]domain.LigneReduction // cotisationID -> ledger
	arbres *MemoryArbresRepository
}

func NewMemoryReductionsRepository(arbres *MemoryArbresRepository) *MemoryReductionsRepository {
	return &MemoryReductionsRepository{
		lignes: map[string][]domain.LigneReduction{},
		arbres: arbres,
	}
}

var _ ReductionsRepository = (*MemoryReductionsRepository)(nil)

func (r *MemoryReductionsRepository) append(cotisationID, structureID string, reductions []domain.ReductionAppliquee) {
	now := time.Now()
	for i, red := range reductions {
		r.lignes[cotisationID] = append(r.lignes[cotisationID], domain.LigneReduction{
			ID:               uuid.New().String(),
			CotisationID:     cotisationID,
			StructureID:      structureID,
			OperationID:      red.OperationID,
			TypeSource:       red.TypeSource,
			BrancheCode:      red.BrancheCode,
			BrancheLibelle:   red.BrancheLibelle,
			TypeCalcul:       red.TypeCalcul,
			Valeur:           red.Valeur,
			MontantReduction: red.Montant,
			OrdreApplication: i + 1,
			CreatedAt:        now,
		})
	}
}

func (r *MemoryReductionsRepository) CreateReductions(_ context.Context, cotisationID, structureID string, reductions []domain.ReductionAppliquee) error {
	if cotisationID == "" {
		return fmt.Errorf("cotisation_id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(cotisationID, structureID, reductions)
	return nil
}

func (r *MemoryReductionsRepository) CreateReductionsAndLockArbre(ctx context.Context, cotisationID, structureID, arbreID string, reductions []domain.ReductionAppliquee, lockedAt time.Time) error {
	if cotisationID == "" {
		return fmt.Errorf("cotisation_id is required")
	}
	if err := r.arbres.LockArbre(ctx, arbreID, lockedAt); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(cotisationID, structureID, reductions)
	return nil
}

func (r *MemoryReductionsRepository) ListByCotisation(_ context.Context, cotisationID string) ([]domain.LigneReduction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.LigneReduction, len(r.lignes[cotisationID]))
	copy(out, r.lignes[cotisationID])
	return out, nil
}

func (r *MemoryReductionsRepository) AggregateByOperation(_ context.Context, start, end time.Time, structureID string) ([]domain.AggregatOperation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byOp := map[string]*domain.AggregatOperation{}
	for _, lignes := range r.lignes {
		for _, l := range lignes {
			if l.CreatedAt.Before(start) || !l.CreatedAt.Before(end) {
				continue
			}
			if structureID != "" && l.StructureID != structureID {
				continue
			}
			agg, ok := byOp[l.OperationID]
			if !ok {
				agg = &domain.AggregatOperation{OperationID: l.OperationID}
				byOp[l.OperationID] = agg
			}
			agg.NbLignes++
			agg.TotalMontant += l.MontantReduction
		}
	}

	var out []domain.AggregatOperation
	for _, agg := range byOp {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OperationID < out[j].OperationID })
	return out, nil
}

// MemoryCotisationsRepository fixed-data fee store for DB-less dev and tests.
type MemoryCotisationsRepository struct {
	mu sync.RWMutex

	Existantes      map[string]bool
	ExistsByDefault bool
	Premieres       map[string]time.Time // utilisateurID -> first fee start
	InscritsActifs  map[string]int       // familleID -> active count
}

func NewMemoryCotisationsRepository() *MemoryCotisationsRepository {
	return &MemoryCotisationsRepository{
		Existantes:     map[string]bool{},
		Premieres:      map[string]time.Time{},
		InscritsActifs: map[string]int{},
	}
}

var _ CotisationsRepository = (*MemoryCotisationsRepository)(nil)

func (r *MemoryCotisationsRepository) CotisationExists(_ context.Context, cotisationID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Existantes[cotisationID] {
		return true, nil
	}
	return r.ExistsByDefault, nil
}

func (r *MemoryCotisationsRepository) GetPremiereCotisationDate(_ context.Context, utilisateurID string) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.Premieres[utilisateurID]; ok {
		return &t, nil
	}
	return nil, nil
}

func (r *MemoryCotisationsRepository) CountInscritsActifs(_ context.Context, familleID string, _ time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.InscritsActifs[familleID], nil
}

// MemoryTagsRepository static tag catalog.
type MemoryTagsRepository struct {
	mu   sync.RWMutex
	tags []domain.Tag
}

func NewMemoryTagsRepository(tags []domain.Tag) *MemoryTagsRepository {
	return &MemoryTagsRepository{tags: tags}
}

var _ TagsRepository = (*MemoryTagsRepository)(nil)

func (r *MemoryTagsRepository) ListTags(_ context.Context, structureID string) ([]domain.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.Tag
	for _, t := range r.tags {
		if structureID == "" || t.StructureID == "" || t.StructureID == structureID {
			out = append(out, t)
		}
	}
	return out, nil
}

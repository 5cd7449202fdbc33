package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ludotheque-admin/internal/domain"
)

// MemoryArbresRepository backs the admin API when the DB is disabled (local
// dev) and the service-layer tests. Same semantics as the Postgres repo.
type MemoryArbresRepository struct {
	mu     sync.RWMutex
	arbres map[string]*domain.ArbreDecision // arbreID -> tree
}

func NewMemoryArbresRepository() *MemoryArbresRepository {
	return &MemoryArbresRepository{arbres: map[string]*domain.ArbreDecision{}}
}

var _ ArbresRepository = (*MemoryArbresRepository)(nil)

func cloneArbre(a *domain.ArbreDecision) *domain.ArbreDecision {
	c := *a
	c.Document = append(json.RawMessage(nil), a.Document...)
	if a.VerrouilleLe != nil {
		t := *a.VerrouilleLe
		c.VerrouilleLe = &t
	}
	return &c
}

func (r *MemoryArbresRepository) GetArbre(_ context.Context, arbreID string) (*domain.ArbreDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.arbres[arbreID]
	if !ok {
		return nil, fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
	}
	return cloneArbre(a), nil
}

func (r *MemoryArbresRepository) GetArbreByTarif(_ context.Context, tarifID string) (*domain.ArbreDecision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.arbres {
		if a.TarifID == tarifID {
			return cloneArbre(a), nil
		}
	}
	return nil, fmt.Errorf("tarif %s: %w", tarifID, domain.ErrArbreNotFound)
}

func (r *MemoryArbresRepository) CreateArbre(_ context.Context, arbre *domain.ArbreDecision) (string, error) {
	if arbre == nil || arbre.TarifID == "" {
		return "", fmt.Errorf("tarif_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.arbres {
		if a.TarifID == arbre.TarifID {
			return "", fmt.Errorf("tarif %s: %w", arbre.TarifID, domain.ErrArbreDejaExistant)
		}
	}

	c := cloneArbre(arbre)
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ModeAffichage == "" {
		c.ModeAffichage = domain.ModeAffichageMinimum
	}
	if len(c.Document) == 0 {
		c.Document = json.RawMessage(domain.DocumentVide)
	}
	if c.Version == 0 {
		c.Version = 1
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	r.arbres[c.ID] = c
	return c.ID, nil
}

func (r *MemoryArbresRepository) UpdateDocument(_ context.Context, arbreID string, document json.RawMessage, modeAffichage string, bumpVersion bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.arbres[arbreID]
	if !ok {
		return fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
	}
	a.Document = append(json.RawMessage(nil), document...)
	a.ModeAffichage = modeAffichage
	if bumpVersion {
		a.Version++
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryArbresRepository) LockArbre(_ context.Context, arbreID string, lockedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.arbres[arbreID]
	if !ok {
		return fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
	}
	a.Verrouille = true
	if a.VerrouilleLe == nil {
		t := lockedAt
		a.VerrouilleLe = &t
	}
	a.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryArbresRepository) UnlockArbre(_ context.Context, arbreID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.arbres[arbreID]
	if !ok {
		return fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
	}
	a.Verrouille = false
	a.VerrouilleLe = nil
	a.Version++
	a.UpdatedAt = time.Now()
	return nil
}

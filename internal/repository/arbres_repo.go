package repository

import (
	"context"
	"encoding/json"
	"time"

	"ludotheque-admin/internal/domain"
)

// ArbresRepository data access for decision trees.
// Strongly-typed domain models only; no map[string]any across this boundary.
type ArbresRepository interface {
	// GetArbre fetches a tree by id.
	GetArbre(ctx context.Context, arbreID string) (*domain.ArbreDecision, error)

	// GetArbreByTarif fetches the (at most one) tree owned by a tariff.
	GetArbreByTarif(ctx context.Context, tarifID string) (*domain.ArbreDecision, error)

	// CreateArbre inserts a new tree. Fails with domain.ErrArbreDejaExistant
	// when the tariff already owns one (at most one tree per tariff).
	CreateArbre(ctx context.Context, arbre *domain.ArbreDecision) (string, error)

	// UpdateDocument replaces the tree document and display mode. The version
	// is incremented only when bumpVersion is set; the caller decides via a
	// structural comparison of old and new documents. Never call this on a
	// locked tree, the service layer enforces the lock invariant.
	UpdateDocument(ctx context.Context, arbreID string, document json.RawMessage, modeAffichage string, bumpVersion bool) error

	// LockArbre freezes a tree. Idempotent: an already-locked tree keeps its
	// original lock timestamp.
	LockArbre(ctx context.Context, arbreID string, lockedAt time.Time) error

	// UnlockArbre re-opens a locked tree in place for the duplicate operation:
	// bumps the version and clears the lock timestamp.
	UnlockArbre(ctx context.Context, arbreID string) error
}

package repository

import (
	"context"
	"time"

	"ludotheque-admin/internal/domain"
)

// ReductionsRepository append-only ledger of applied reductions. Rows are
// written once at fee-pricing time and never updated.
type ReductionsRepository interface {
	// CreateReductions persists the reductions in the order given, assigning a
	// 1-based ordre_application.
	CreateReductions(ctx context.Context, cotisationID, structureID string, reductions []domain.ReductionAppliquee) error

	// CreateReductionsAndLockArbre writes the ledger and locks the tree in the
	// same transaction, so a priced fee can never reference a still-mutable
	// tree body.
	CreateReductionsAndLockArbre(ctx context.Context, cotisationID, structureID, arbreID string, reductions []domain.ReductionAppliquee, lockedAt time.Time) error

	// ListByCotisation returns a fee's ledger in application order.
	ListByCotisation(ctx context.Context, cotisationID string) ([]domain.LigneReduction, error)

	// AggregateByOperation groups persisted reductions by accounting operation
	// over [start, end), optionally scoped to one structure.
	AggregateByOperation(ctx context.Context, start, end time.Time, structureID string) ([]domain.AggregatOperation, error)
}

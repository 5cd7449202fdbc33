package repository

import (
	"context"
	"time"

	"ludotheque-admin/internal/domain"
)

// CotisationsRepository read-only collaborator over the membership-fee store.
// The engine derives tenure and household registration counts from it when a
// simulation does not supply them directly.
type CotisationsRepository interface {
	// CotisationExists checks the fee referenced by a ledger write.
	CotisationExists(ctx context.Context, cotisationID string) (bool, error)

	// GetPremiereCotisationDate returns the start date of the user's earliest
	// membership fee, or nil when the user has none.
	GetPremiereCotisationDate(ctx context.Context, utilisateurID string) (*time.Time, error)

	// CountInscritsActifs counts currently-active membership fees among
	// household members sharing the family identifier, as of the given date.
	CountInscritsActifs(ctx context.Context, familleID string, at time.Time) (int, error)
}

// TagsRepository read-only tag catalog, needed by the tree-editing UI and the
// TAG condition editor.
type TagsRepository interface {
	// ListTags returns the tags visible to a structure: its own plus the
	// platform-wide ones. An empty scope returns the whole catalog.
	ListTags(ctx context.Context, structureID string) ([]domain.Tag, error)
}

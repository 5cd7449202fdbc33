package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ludotheque-admin/internal/domain"
)

// PostgresCotisationsRepository read paths over the cotisations table.
type PostgresCotisationsRepository struct {
	db *sql.DB
}

func NewPostgresCotisationsRepository(db *sql.DB) *PostgresCotisationsRepository {
	return &PostgresCotisationsRepository{db: db}
}

var _ CotisationsRepository = (*PostgresCotisationsRepository)(nil)

func (r *PostgresCotisationsRepository) CotisationExists(ctx context.Context, cotisationID string) (bool, error) {
	if cotisationID == "" {
		return false, fmt.Errorf("cotisation_id is required")
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM cotisations WHERE cotisation_id = $1)`,
		cotisationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check cotisation: %w", err)
	}
	return exists, nil
}

func (r *PostgresCotisationsRepository) GetPremiereCotisationDate(ctx context.Context, utilisateurID string) (*time.Time, error) {
	if utilisateurID == "" {
		return nil, fmt.Errorf("utilisateur_id is required")
	}

	query := `
		SELECT MIN(date_debut)
		FROM cotisations
		WHERE utilisateur_id = $1
	`

	var premiere sql.NullTime
	if err := r.db.QueryRowContext(ctx, query, utilisateurID).Scan(&premiere); err != nil {
		return nil, fmt.Errorf("failed to get first cotisation date: %w", err)
	}
	if !premiere.Valid {
		return nil, nil
	}
	return &premiere.Time, nil
}

func (r *PostgresCotisationsRepository) CountInscritsActifs(ctx context.Context, familleID string, at time.Time) (int, error) {
	if familleID == "" {
		return 0, fmt.Errorf("famille_id is required")
	}

	// A fee is active at `at` when its period covers the date; an open-ended
	// fee (NULL date_fin) stays active.
	query := `
		SELECT COUNT(DISTINCT utilisateur_id)
		FROM cotisations
		WHERE famille_id = $1
			AND date_debut <= $2
			AND (date_fin IS NULL OR date_fin >= $2)
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, familleID, at).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active registrations: %w", err)
	}
	return count, nil
}

// PostgresTagsRepository tag catalog reads (tags_catalog table).
type PostgresTagsRepository struct {
	db *sql.DB
}

func NewPostgresTagsRepository(db *sql.DB) *PostgresTagsRepository {
	return &PostgresTagsRepository{db: db}
}

var _ TagsRepository = (*PostgresTagsRepository)(nil)

func (r *PostgresTagsRepository) ListTags(ctx context.Context, structureID string) ([]domain.Tag, error) {
	query := `
		SELECT
			tag_id::text,
			structure_id::text,
			tag_name
		FROM tags_catalog
	`
	var args []any
	if structureID != "" {
		query += ` WHERE structure_id = $1 OR structure_id IS NULL`
		args = append(args, structureID)
	}
	query += ` ORDER BY tag_name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		var structure sql.NullString
		if err := rows.Scan(&tag.TagID, &structure, &tag.TagName); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		if structure.Valid {
			tag.StructureID = structure.String
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return tags, nil
}

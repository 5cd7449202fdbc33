package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ludotheque-admin/internal/domain"
)

// PostgresArbresRepository decision-tree repository backed by the
// arbres_decision table (document stored as JSONB).
type PostgresArbresRepository struct {
	db *sql.DB
}

func NewPostgresArbresRepository(db *sql.DB) *PostgresArbresRepository {
	return &PostgresArbresRepository{db: db}
}

var _ ArbresRepository = (*PostgresArbresRepository)(nil)

const arbreColumns = `
	arbre_id::text,
	tarif_id::text,
	structure_id::text,
	mode_affichage,
	document,
	version,
	verrouille,
	verrouille_le,
	created_at,
	updated_at
`

func scanArbre(row interface{ Scan(...any) error }) (*domain.ArbreDecision, error) {
	var arbre domain.ArbreDecision
	var structureID sql.NullString
	var document sql.NullString
	var verrouilleLe sql.NullTime

	if err := row.Scan(
		&arbre.ID,
		&arbre.TarifID,
		&structureID,
		&arbre.ModeAffichage,
		&document,
		&arbre.Version,
		&arbre.Verrouille,
		&verrouilleLe,
		&arbre.CreatedAt,
		&arbre.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if structureID.Valid {
		arbre.StructureID = structureID.String
	}
	if document.Valid {
		arbre.Document = json.RawMessage(document.String)
	}
	if verrouilleLe.Valid {
		arbre.VerrouilleLe = &verrouilleLe.Time
	}
	return &arbre, nil
}

// GetArbre fetches one tree by id.
func (r *PostgresArbresRepository) GetArbre(ctx context.Context, arbreID string) (*domain.ArbreDecision, error) {
	if arbreID == "" {
		return nil, fmt.Errorf("arbre_id is required")
	}

	query := `
		SELECT ` + arbreColumns + `
		FROM arbres_decision
		WHERE arbre_id = $1
	`

	arbre, err := scanArbre(r.db.QueryRowContext(ctx, query, arbreID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
		}
		return nil, fmt.Errorf("failed to get arbre: %w", err)
	}
	return arbre, nil
}

// GetArbreByTarif fetches the tree owned by a tariff.
func (r *PostgresArbresRepository) GetArbreByTarif(ctx context.Context, tarifID string) (*domain.ArbreDecision, error) {
	if tarifID == "" {
		return nil, fmt.Errorf("tarif_id is required")
	}

	query := `
		SELECT ` + arbreColumns + `
		FROM arbres_decision
		WHERE tarif_id = $1
	`

	arbre, err := scanArbre(r.db.QueryRowContext(ctx, query, tarifID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tarif %s: %w", tarifID, domain.ErrArbreNotFound)
		}
		return nil, fmt.Errorf("failed to get arbre by tarif: %w", err)
	}
	return arbre, nil
}

// CreateArbre inserts a new tree after checking the one-tree-per-tariff
// invariant inside the same transaction.
func (r *PostgresArbresRepository) CreateArbre(ctx context.Context, arbre *domain.ArbreDecision) (string, error) {
	if arbre == nil || arbre.TarifID == "" {
		return "", fmt.Errorf("tarif_id is required")
	}
	if arbre.ID == "" {
		arbre.ID = uuid.New().String()
	}
	if arbre.ModeAffichage == "" {
		arbre.ModeAffichage = domain.ModeAffichageMinimum
	}
	if len(arbre.Document) == 0 {
		arbre.Document = json.RawMessage(domain.DocumentVide)
	}
	if arbre.Version == 0 {
		arbre.Version = 1
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM arbres_decision WHERE tarif_id = $1)`,
		arbre.TarifID,
	).Scan(&exists); err != nil {
		return "", fmt.Errorf("failed to check existing arbre: %w", err)
	}
	if exists {
		return "", fmt.Errorf("tarif %s: %w", arbre.TarifID, domain.ErrArbreDejaExistant)
	}

	var structureID interface{}
	if arbre.StructureID != "" {
		structureID = arbre.StructureID
	}

	insertQuery := `
		INSERT INTO arbres_decision (
			arbre_id,
			tarif_id,
			structure_id,
			mode_affichage,
			document,
			version,
			verrouille
		) VALUES ($1, $2, $3, $4, $5::jsonb, $6, FALSE)
		RETURNING arbre_id::text
	`

	var arbreID string
	if err := tx.QueryRowContext(ctx, insertQuery,
		arbre.ID, arbre.TarifID, structureID, arbre.ModeAffichage,
		string(arbre.Document), arbre.Version,
	).Scan(&arbreID); err != nil {
		return "", fmt.Errorf("failed to create arbre: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return arbreID, nil
}

// UpdateDocument replaces the document and display mode, bumping the version
// only when the caller observed an actual structural change.
func (r *PostgresArbresRepository) UpdateDocument(ctx context.Context, arbreID string, document json.RawMessage, modeAffichage string, bumpVersion bool) error {
	if arbreID == "" {
		return fmt.Errorf("arbre_id is required")
	}
	if len(document) == 0 {
		return fmt.Errorf("document is required")
	}

	bump := 0
	if bumpVersion {
		bump = 1
	}

	query := `
		UPDATE arbres_decision
		SET
			document = $2::jsonb,
			mode_affichage = $3,
			version = version + $4,
			updated_at = NOW()
		WHERE arbre_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, arbreID, string(document), modeAffichage, bump)
	if err != nil {
		return fmt.Errorf("failed to update arbre document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
	}
	return nil
}

// LockArbre freezes the tree. Idempotent: the original lock timestamp wins.
func (r *PostgresArbresRepository) LockArbre(ctx context.Context, arbreID string, lockedAt time.Time) error {
	if arbreID == "" {
		return fmt.Errorf("arbre_id is required")
	}

	query := `
		UPDATE arbres_decision
		SET
			verrouille = TRUE,
			verrouille_le = COALESCE(verrouille_le, $2),
			updated_at = NOW()
		WHERE arbre_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, arbreID, lockedAt)
	if err != nil {
		return fmt.Errorf("failed to lock arbre: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
	}
	return nil
}

// UnlockArbre re-opens a locked tree in place: version bump, lock cleared.
func (r *PostgresArbresRepository) UnlockArbre(ctx context.Context, arbreID string) error {
	if arbreID == "" {
		return fmt.Errorf("arbre_id is required")
	}

	query := `
		UPDATE arbres_decision
		SET
			verrouille = FALSE,
			verrouille_le = NULL,
			version = version + 1,
			updated_at = NOW()
		WHERE arbre_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, arbreID)
	if err != nil {
		return fmt.Errorf("failed to unlock arbre: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("arbre %s: %w", arbreID, domain.ErrArbreNotFound)
	}
	return nil
}

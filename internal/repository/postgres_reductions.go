package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ludotheque-admin/internal/domain"
)

// PostgresReductionsRepository ledger repository backed by the
// reductions_cotisation table.
type PostgresReductionsRepository struct {
	db *sql.DB
}

func NewPostgresReductionsRepository(db *sql.DB) *PostgresReductionsRepository {
	return &PostgresReductionsRepository{db: db}
}

var _ ReductionsRepository = (*PostgresReductionsRepository)(nil)

const insertLigneQuery = `
	INSERT INTO reductions_cotisation (
		cotisation_id,
		structure_id,
		operation_id,
		type_source,
		branche_code,
		branche_libelle,
		type_calcul,
		valeur,
		montant_reduction,
		ordre_application
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

func insertLignes(ctx context.Context, tx *sql.Tx, cotisationID, structureID string, reductions []domain.ReductionAppliquee) error {
	var structure interface{}
	if structureID != "" {
		structure = structureID
	}
	for i, red := range reductions {
		if _, err := tx.ExecContext(ctx, insertLigneQuery,
			cotisationID, structure, red.OperationID, red.TypeSource,
			red.BrancheCode, red.BrancheLibelle, red.TypeCalcul,
			red.Valeur, red.Montant, i+1,
		); err != nil {
			return fmt.Errorf("failed to insert reduction %d: %w", i+1, err)
		}
	}
	return nil
}

// CreateReductions writes a fee's ledger in a single transaction.
func (r *PostgresReductionsRepository) CreateReductions(ctx context.Context, cotisationID, structureID string, reductions []domain.ReductionAppliquee) error {
	if cotisationID == "" {
		return fmt.Errorf("cotisation_id is required")
	}
	if len(reductions) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertLignes(ctx, tx, cotisationID, structureID, reductions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateReductionsAndLockArbre writes the ledger and freezes the tree in one
// unit of work. The lock keeps its original timestamp when already set.
func (r *PostgresReductionsRepository) CreateReductionsAndLockArbre(ctx context.Context, cotisationID, structureID, arbreID string, reductions []domain.ReductionAppliquee, lockedAt time.Time) error {
	if cotisationID == "" {
		return fmt.Errorf("cotisation_id is required")
	}
	if arbreID == "" {
		return fmt.Errorf("arbre_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lockQuery := `
		UPDATE arbres_decision
		SET
			verrouille = TRUE,
			verrouille_le = COALESCE(verrouille_le, $2),
			updated_at = NOW()
		WHERE arbre_id = $1
	`
	result, err := tx.ExecContext(ctx, lockQuery, arbreID, lockedAt)
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

	if err := insertLignes(ctx, tx, cotisationID, structureID, reductions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListByCotisation returns a fee's ledger in application order.
func (r *PostgresReductionsRepository) ListByCotisation(ctx context.Context, cotisationID string) ([]domain.LigneReduction, error) {
	if cotisationID == "" {
		return nil, fmt.Errorf("cotisation_id is required")
	}

	query := `
		SELECT
			ligne_id::text,
			cotisation_id::text,
			structure_id::text,
			operation_id::text,
			type_source,
			branche_code,
			branche_libelle,
			type_calcul,
			valeur,
			montant_reduction,
			ordre_application,
			created_at
		FROM reductions_cotisation
		WHERE cotisation_id = $1
		ORDER BY ordre_application ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cotisationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reductions: %w", err)
	}
	defer rows.Close()

	var lignes []domain.LigneReduction
	for rows.Next() {
		var ligne domain.LigneReduction
		var structureID sql.NullString
		if err := rows.Scan(
			&ligne.ID,
			&ligne.CotisationID,
			&structureID,
			&ligne.OperationID,
			&ligne.TypeSource,
			&ligne.BrancheCode,
			&ligne.BrancheLibelle,
			&ligne.TypeCalcul,
			&ligne.Valeur,
			&ligne.MontantReduction,
			&ligne.OrdreApplication,
			&ligne.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reduction: %w", err)
		}
		if structureID.Valid {
			ligne.StructureID = structureID.String
		}
		lignes = append(lignes, ligne)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reductions: %w", err)
	}
	return lignes, nil
}

// AggregateByOperation groups persisted reductions by accounting operation.
func (r *PostgresReductionsRepository) AggregateByOperation(ctx context.Context, start, end time.Time, structureID string) ([]domain.AggregatOperation, error) {
	query := `
		SELECT
			operation_id::text,
			COUNT(*),
			COALESCE(SUM(montant_reduction), 0)
		FROM reductions_cotisation
		WHERE created_at >= $1 AND created_at < $2
	`
	args := []any{start, end}
	if structureID != "" {
		query += ` AND structure_id = $3`
		args = append(args, structureID)
	}
	query += `
		GROUP BY operation_id
		ORDER BY operation_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate reductions: %w", err)
	}
	defer rows.Close()

	var aggregats []domain.AggregatOperation
	for rows.Next() {
		var agg domain.AggregatOperation
		if err := rows.Scan(&agg.OperationID, &agg.NbLignes, &agg.TotalMontant); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		aggregats = append(aggregats, agg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aggregates: %w", err)
	}
	return aggregats, nil
}

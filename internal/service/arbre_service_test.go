package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
	"ludotheque-admin/internal/engine"
	"ludotheque-admin/internal/repository"
)

func setupArbreService() (ArbreService, *repository.MemoryArbresRepository) {
	arbres := repository.NewMemoryArbresRepository()
	svc := NewArbreService(arbres, engine.NewEvaluator(zap.NewNop()), zap.NewNop())
	return svc, arbres
}

const docCommune = `{
	"version": 1,
	"nodes": [
		{"id": "n1", "type": "COMMUNE", "ordre": 1, "branches": [
			{"id": "b1", "code": "LOCAL", "libelle": "Commune membre",
			 "condition": {"commune_id": "69001"},
			 "reduction": {"operation_id": "op-1", "type_calcul": "fixe", "valeur": 5}},
			{"id": "bd", "code": "AUTRE", "libelle": "Autres",
			 "condition": {"type": "autre"},
			 "reduction": {"operation_id": "op-1", "type_calcul": "fixe", "valeur": 2}}
		]}
	]
}`

func TestCreerArbre_DefaultsToEmptyDocument(t *testing.T) {
	svc, _ := setupArbreService()

	arbre, err := svc.CreerArbre(context.Background(), CreerArbreRequest{TarifID: "tarif-1"})

	require.NoError(t, err)
	assert.Equal(t, "tarif-1", arbre.TarifID)
	assert.Equal(t, 1, arbre.Version)
	assert.False(t, arbre.Verrouille)
	assert.JSONEq(t, domain.DocumentVide, string(arbre.Document))
}

func TestCreerArbre_SecondArbreForSameTarifRejected(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	_, err := svc.CreerArbre(ctx, CreerArbreRequest{TarifID: "tarif-1"})
	require.NoError(t, err)

	_, err = svc.CreerArbre(ctx, CreerArbreRequest{TarifID: "tarif-1"})
	assert.True(t, errors.Is(err, domain.ErrArbreDejaExistant))
}

func TestCreerArbre_InvalidDocumentRejected(t *testing.T) {
	svc, _ := setupArbreService()

	_, err := svc.CreerArbre(context.Background(), CreerArbreRequest{
		TarifID:  "tarif-1",
		Document: json.RawMessage(`{"version": 1, "nodes": `),
	})
	assert.Error(t, err)
}

func TestModifierArbre_VersionBumpOnlyOnStructuralChange(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	arbre, err := svc.CreerArbre(ctx, CreerArbreRequest{
		TarifID:  "tarif-1",
		Document: json.RawMessage(docCommune),
	})
	require.NoError(t, err)
	require.Equal(t, 1, arbre.Version)

	// same content, reformatted: no bump
	var compact json.RawMessage
	var v any
	require.NoError(t, json.Unmarshal([]byte(docCommune), &v))
	compact, err = json.Marshal(v)
	require.NoError(t, err)

	same, err := svc.ModifierArbre(ctx, ModifierArbreRequest{ArbreID: arbre.ID, Document: compact})
	require.NoError(t, err)
	assert.Equal(t, 1, same.Version)

	// structural change: bump
	changed, err := svc.ModifierArbre(ctx, ModifierArbreRequest{
		ArbreID:  arbre.ID,
		Document: json.RawMessage(`{"version": 1, "nodes": []}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, changed.Version)
}

func TestModifierArbre_LockedTreeRejectedUnchanged(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	arbre, err := svc.CreerArbre(ctx, CreerArbreRequest{
		TarifID:  "tarif-1",
		Document: json.RawMessage(docCommune),
	})
	require.NoError(t, err)
	require.NoError(t, svc.VerrouillerArbre(ctx, arbre.ID))

	_, err = svc.ModifierArbre(ctx, ModifierArbreRequest{
		ArbreID:  arbre.ID,
		Document: json.RawMessage(`{"version": 1, "nodes": []}`),
	})
	assert.True(t, errors.Is(err, domain.ErrArbreVerrouille))

	// document and version untouched
	after, err := svc.GetArbre(ctx, arbre.ID)
	require.NoError(t, err)
	assert.JSONEq(t, docCommune, string(after.Document))
	assert.Equal(t, 1, after.Version)
}

func TestVerrouillerArbre_IdempotentKeepsFirstTimestamp(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	arbre, err := svc.CreerArbre(ctx, CreerArbreRequest{TarifID: "tarif-1"})
	require.NoError(t, err)

	require.NoError(t, svc.VerrouillerArbre(ctx, arbre.ID))
	first, err := svc.GetArbre(ctx, arbre.ID)
	require.NoError(t, err)
	require.NotNil(t, first.VerrouilleLe)

	require.NoError(t, svc.VerrouillerArbre(ctx, arbre.ID))
	second, err := svc.GetArbre(ctx, arbre.ID)
	require.NoError(t, err)
	require.NotNil(t, second.VerrouilleLe)
	assert.Equal(t, *first.VerrouilleLe, *second.VerrouilleLe)
}

func TestEstModifiable(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	arbre, err := svc.CreerArbre(ctx, CreerArbreRequest{TarifID: "tarif-1"})
	require.NoError(t, err)

	ok, err := svc.EstModifiable(ctx, arbre.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.VerrouillerArbre(ctx, arbre.ID))

	ok, err = svc.EstModifiable(ctx, arbre.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDupliquerArbre_UnlocksInPlaceAndBumpsVersion(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	arbre, err := svc.CreerArbre(ctx, CreerArbreRequest{
		TarifID:  "tarif-1",
		Document: json.RawMessage(docCommune),
	})
	require.NoError(t, err)
	require.NoError(t, svc.VerrouillerArbre(ctx, arbre.ID))

	dup, err := svc.DupliquerArbre(ctx, arbre.ID)

	require.NoError(t, err)
	// same row: the tariff keeps a single tree
	assert.Equal(t, arbre.ID, dup.ID)
	assert.False(t, dup.Verrouille)
	assert.Nil(t, dup.VerrouilleLe)
	assert.Equal(t, arbre.Version+1, dup.Version)

	// editable again
	ok, err := svc.EstModifiable(ctx, arbre.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDupliquerArbre_UnlockedTreeReturnedUnchanged(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	arbre, err := svc.CreerArbre(ctx, CreerArbreRequest{TarifID: "tarif-1"})
	require.NoError(t, err)

	dup, err := svc.DupliquerArbre(ctx, arbre.ID)

	require.NoError(t, err)
	assert.Equal(t, arbre.Version, dup.Version)
	assert.False(t, dup.Verrouille)
}

func TestCalculerBornesTarif(t *testing.T) {
	svc, _ := setupArbreService()
	ctx := context.Background()

	arbre, err := svc.CreerArbre(ctx, CreerArbreRequest{
		TarifID:  "tarif-1",
		Document: json.RawMessage(docCommune),
	})
	require.NoError(t, err)

	bornes, err := svc.CalculerBornesTarif(ctx, arbre.ID, 100)

	require.NoError(t, err)
	assert.Equal(t, 100.0, bornes.MontantBase)
	assert.Equal(t, 2.0, bornes.ReductionMin)
	assert.Equal(t, 5.0, bornes.ReductionMax)
	assert.Equal(t, 95.0, bornes.PrixMin)
	assert.Equal(t, 98.0, bornes.PrixMax)
}

func TestCalculerBornesTarif_ArbreNotFound(t *testing.T) {
	svc, _ := setupArbreService()

	_, err := svc.CalculerBornesTarif(context.Background(), "missing", 100)
	assert.True(t, errors.Is(err, domain.ErrArbreNotFound))
}

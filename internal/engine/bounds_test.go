package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculerBornes_SingleNodeNoDefault(t *testing.T) {
	doc := mustDocument(t, `{
		"version": 1,
		"nodes": [
			{"id": "n1", "type": "QF", "ordre": 1, "branches": [
				{"id": "b1", "code": "B1", "libelle": "B1", "condition": {"borne_max": 600},
				 "reduction": {"operation_id": "op", "type_calcul": "fixe", "valeur": 10}},
				{"id": "b2", "code": "B2", "libelle": "B2", "condition": {"borne_min": 600.01, "borne_max": 900},
				 "reduction": {"operation_id": "op", "type_calcul": "fixe", "valeur": 5}}
			]}
		]
	}`)

	b := testEvaluator().CalculerBornes(doc, 100)

	// no fallback branch: the node may match nothing at all
	assert.Equal(t, 0.0, b.ReductionMin)
	assert.Equal(t, 10.0, b.ReductionMax)
	assert.Equal(t, 90.0, b.PrixMin)
	assert.Equal(t, 100.0, b.PrixMax)
	assert.Equal(t, 100.0, b.MontantBase)
}

func TestCalculerBornes_DefaultBranchGuaranteesMinimum(t *testing.T) {
	doc := mustDocument(t, `{
		"version": 1,
		"nodes": [
			{"id": "n1", "type": "COMMUNE", "ordre": 1, "branches": [
				{"id": "b1", "code": "LOCAL", "libelle": "Commune membre",
				 "condition": {"commune_id": "69001"},
				 "reduction": {"operation_id": "op", "type_calcul": "fixe", "valeur": 10}},
				{"id": "bd", "code": "AUTRE", "libelle": "Autres",
				 "condition": {"type": "autre"},
				 "reduction": {"operation_id": "op", "type_calcul": "fixe", "valeur": 2}}
			]}
		]
	}`)

	b := testEvaluator().CalculerBornes(doc, 100)

	// a fallback always selects: the smallest branch total is guaranteed
	assert.Equal(t, 2.0, b.ReductionMin)
	assert.Equal(t, 10.0, b.ReductionMax)
}

func TestCalculerBornes_CumulativeNodesAndChildren(t *testing.T) {
	doc := mustDocument(t, `{
		"version": 1,
		"nodes": [
			{"id": "n1", "type": "COMMUNE", "ordre": 1, "branches": [
				{"id": "b1", "code": "LOCAL", "libelle": "Commune membre",
				 "condition": {"commune_id": "69001"},
				 "reduction": {"operation_id": "op", "type_calcul": "fixe", "valeur": 5},
				 "enfants": [
					{"id": "n11", "type": "AGE", "ordre": 1, "branches": [
						{"id": "b11", "code": "ENFANT", "libelle": "Enfant",
						 "condition": {"operateur": "<", "valeur": 12},
						 "reduction": {"operation_id": "op", "type_calcul": "pourcentage", "valeur": 50}}
					]}
				 ]}
			]},
			{"id": "n2", "type": "QF", "ordre": 2, "branches": [
				{"id": "b2", "code": "QF_BAS", "libelle": "QF bas",
				 "condition": {"borne_max": 600},
				 "reduction": {"operation_id": "op", "type_calcul": "pourcentage", "valeur": 10}}
			]}
		]
	}`)

	b := testEvaluator().CalculerBornes(doc, 100)

	// max: 5 + 50% of 100 + 10% of 100; min: both nodes can match nothing
	assert.Equal(t, 0.0, b.ReductionMin)
	assert.Equal(t, 65.0, b.ReductionMax)
	assert.Equal(t, 35.0, b.PrixMin)
	assert.Equal(t, 100.0, b.PrixMax)
}

func TestCalculerBornes_EmptyAndNilDocument(t *testing.T) {
	b := testEvaluator().CalculerBornes(nil, 80)
	assert.Equal(t, 80.0, b.PrixMin)
	assert.Equal(t, 80.0, b.PrixMax)
	assert.Zero(t, b.ReductionMax)

	b = testEvaluator().CalculerBornes(mustDocument(t, `{"version":1,"nodes":[]}`), 80)
	assert.Equal(t, 80.0, b.PrixMin)
	assert.Equal(t, 80.0, b.PrixMax)
}

func TestCalculerBornes_UnknownNodeType(t *testing.T) {
	doc := mustDocument(t, `{
		"version": 1,
		"nodes": [
			{"id": "n1", "type": "HOROSCOPE", "ordre": 1, "branches": [
				{"id": "b1", "code": "B1", "libelle": "B1", "condition": {"type": "autre"},
				 "reduction": {"operation_id": "op", "type_calcul": "fixe", "valeur": 99}}
			]}
		]
	}`)

	b := testEvaluator().CalculerBornes(doc, 100)
	assert.Zero(t, b.ReductionMax)
	assert.Equal(t, 100.0, b.PrixMin)
}

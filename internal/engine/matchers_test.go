package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ludotheque-admin/internal/domain"
)

func mustCondition(t *testing.T, nodeType, raw string) *domain.Condition {
	t.Helper()
	cond, err := domain.ParseCondition(nodeType, json.RawMessage(raw))
	require.NoError(t, err)
	return cond
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func refDate() time.Time {
	return time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
}

func TestMatchCommune_Single(t *testing.T) {
	cond := mustCondition(t, domain.TypeCommune, `{"commune_id": "69001"}`)
	ctx := &domain.ContexteEvaluation{DateCotisation: refDate()}

	res := MatchConditionDetails(domain.TypeCommune, cond, &domain.Utilisateur{CommuneID: "69001"}, ctx)
	assert.True(t, res.Match)

	res = MatchConditionDetails(domain.TypeCommune, cond, &domain.Utilisateur{CommuneID: "69002"}, ctx)
	assert.False(t, res.Match)
}

func TestMatchCommune_Groupement(t *testing.T) {
	cond := mustCondition(t, domain.TypeCommune, `{"type": "groupement", "groupement_id": "EPCI-9"}`)
	user := &domain.Utilisateur{CommuneID: "69001"}

	in := &domain.ContexteEvaluation{DateCotisation: refDate(), GroupementIDs: []string{"EPCI-9"}}
	assert.True(t, MatchCondition(domain.TypeCommune, cond, user, in))

	out := &domain.ContexteEvaluation{DateCotisation: refDate(), GroupementIDs: []string{"EPCI-1"}}
	assert.False(t, MatchCondition(domain.TypeCommune, cond, user, out))
}

func TestMatchCommune_MissingCommuneIsFalseNotError(t *testing.T) {
	cond := mustCondition(t, domain.TypeCommune, `{"commune_id": "69001"}`)
	res := MatchConditionDetails(domain.TypeCommune, cond, &domain.Utilisateur{}, &domain.ContexteEvaluation{})
	assert.False(t, res.Match)
	assert.Equal(t, "commune non renseignée", res.Details)
}

func TestMatchQF_InclusiveBounds(t *testing.T) {
	cond := mustCondition(t, domain.TypeQF, `{"borne_min": 500, "borne_max": 900}`)
	ctx := &domain.ContexteEvaluation{}

	cases := []struct {
		qf    float64
		match bool
	}{
		{499, false},
		{500, true}, // lower bound inclusive
		{700, true},
		{900, true}, // upper bound inclusive
		{901, false},
	}
	for _, tc := range cases {
		user := &domain.Utilisateur{QuotientFamilial: floatPtr(tc.qf)}
		assert.Equal(t, tc.match, MatchCondition(domain.TypeQF, cond, user, ctx), "qf=%v", tc.qf)
	}
}

func TestMatchQF_MissingQuotient(t *testing.T) {
	cond := mustCondition(t, domain.TypeQF, `{"borne_max": 600}`)
	res := MatchConditionDetails(domain.TypeQF, cond, &domain.Utilisateur{}, &domain.ContexteEvaluation{})
	assert.False(t, res.Match)
	assert.Equal(t, "quotient familial non renseigné", res.Details)
}

func TestMatchAge_Operators(t *testing.T) {
	// Born 2014-09-01: exactly 12 on the reference date.
	naissance := time.Date(2014, 9, 1, 0, 0, 0, 0, time.UTC)
	user := &domain.Utilisateur{DateNaissance: &naissance}
	ctx := &domain.ContexteEvaluation{DateCotisation: refDate()}

	cases := []struct {
		cond  string
		match bool
	}{
		{`{"operateur": "<", "valeur": 12}`, false},
		{`{"operateur": "<=", "valeur": 12}`, true},
		{`{"operateur": "=", "valeur": 12}`, true},
		{`{"operateur": ">=", "valeur": 12}`, true},
		{`{"operateur": ">", "valeur": 12}`, false},
		{`{"operateur": "entre", "min": 10, "max": 12}`, true},
		{`{"operateur": "entre", "min": 13, "max": 18}`, false},
	}
	for _, tc := range cases {
		cond := mustCondition(t, domain.TypeAge, tc.cond)
		assert.Equal(t, tc.match, MatchCondition(domain.TypeAge, cond, user, ctx), tc.cond)
	}
}

func TestMatchAge_BirthdayOnReferenceDate(t *testing.T) {
	// AGE boundary: the user turns their new age on dateCotisation itself,
	// not on "today".
	naissance := time.Date(2008, 9, 1, 0, 0, 0, 0, time.UTC)
	user := &domain.Utilisateur{DateNaissance: &naissance}
	ctx := &domain.ContexteEvaluation{DateCotisation: refDate()} // 2026-09-01

	cond := mustCondition(t, domain.TypeAge, `{"operateur": "=", "valeur": 18}`)
	assert.True(t, MatchCondition(domain.TypeAge, cond, user, ctx))

	veille := &domain.ContexteEvaluation{DateCotisation: refDate().AddDate(0, 0, -1)}
	assert.False(t, MatchCondition(domain.TypeAge, cond, user, veille))
}

func TestMatchAge_MissingBirthDate(t *testing.T) {
	cond := mustCondition(t, domain.TypeAge, `{"operateur": "<", "valeur": 12}`)
	res := MatchConditionDetails(domain.TypeAge, cond, &domain.Utilisateur{}, &domain.ContexteEvaluation{DateCotisation: refDate()})
	assert.False(t, res.Match)
	assert.Equal(t, "date de naissance non renseignée", res.Details)
}

func TestMatchFidelite(t *testing.T) {
	cond := mustCondition(t, domain.TypeFidelite, `{"operateur": ">=", "valeur": 3}`)

	with := &domain.ContexteEvaluation{Anciennete: floatPtr(4)}
	assert.True(t, MatchCondition(domain.TypeFidelite, cond, nil, with))

	without := &domain.ContexteEvaluation{}
	res := MatchConditionDetails(domain.TypeFidelite, cond, nil, without)
	assert.False(t, res.Match)
	assert.Equal(t, "ancienneté non renseignée", res.Details)
}

func TestMatchFidelite_LegacyRange(t *testing.T) {
	cond := mustCondition(t, domain.TypeFidelite, `{"min": 2, "max": 5}`)

	assert.True(t, MatchCondition(domain.TypeFidelite, cond, nil, &domain.ContexteEvaluation{Anciennete: floatPtr(2)}))
	assert.True(t, MatchCondition(domain.TypeFidelite, cond, nil, &domain.ContexteEvaluation{Anciennete: floatPtr(5)}))
	assert.False(t, MatchCondition(domain.TypeFidelite, cond, nil, &domain.ContexteEvaluation{Anciennete: floatPtr(6)}))
}

func TestMatchMultiInscriptions(t *testing.T) {
	cond := mustCondition(t, domain.TypeMultiInscriptions, `{"operateur": ">=", "valeur": 2}`)

	assert.True(t, MatchCondition(domain.TypeMultiInscriptions, cond, nil, &domain.ContexteEvaluation{NbInscrits: intPtr(3)}))
	assert.False(t, MatchCondition(domain.TypeMultiInscriptions, cond, nil, &domain.ContexteEvaluation{NbInscrits: intPtr(1)}))

	res := MatchConditionDetails(domain.TypeMultiInscriptions, cond, nil, &domain.ContexteEvaluation{})
	assert.False(t, res.Match)
}

func TestMatchTag_Contient(t *testing.T) {
	cond := mustCondition(t, domain.TypeTag, `{"mode": "contient", "tags": ["etudiant", "benevole"]}`)
	ctx := &domain.ContexteEvaluation{}

	assert.True(t, MatchCondition(domain.TypeTag, cond, &domain.Utilisateur{Tags: []string{"benevole"}}, ctx))
	assert.False(t, MatchCondition(domain.TypeTag, cond, &domain.Utilisateur{Tags: []string{"retraite"}}, ctx))
	assert.False(t, MatchCondition(domain.TypeTag, cond, &domain.Utilisateur{}, ctx))
}

func TestMatchTag_NeContientPas(t *testing.T) {
	cond := mustCondition(t, domain.TypeTag, `{"mode": "ne_contient_pas", "tags": ["exclu"]}`)
	ctx := &domain.ContexteEvaluation{}

	// Holding none of the listed tags satisfies the condition, even with no
	// tags at all.
	assert.True(t, MatchCondition(domain.TypeTag, cond, &domain.Utilisateur{}, ctx))
	assert.True(t, MatchCondition(domain.TypeTag, cond, &domain.Utilisateur{Tags: []string{"etudiant"}}, ctx))
	assert.False(t, MatchCondition(domain.TypeTag, cond, &domain.Utilisateur{Tags: []string{"exclu"}}, ctx))
}

func TestMatchTag_OverrideTagsWin(t *testing.T) {
	cond := mustCondition(t, domain.TypeTag, `{"mode": "contient", "tags": ["etudiant"]}`)
	user := &domain.Utilisateur{Tags: []string{"retraite"}}
	ctx := &domain.ContexteEvaluation{Tags: []string{"etudiant"}}

	assert.True(t, MatchCondition(domain.TypeTag, cond, user, ctx))
}

func TestMatchTag_LegacyStatutSocial(t *testing.T) {
	cond := mustCondition(t, domain.TypeStatutSocial, `{"statut_social": "etudiant"}`)
	ctx := &domain.ContexteEvaluation{}

	assert.True(t, MatchCondition(domain.TypeStatutSocial, cond, &domain.Utilisateur{StatutSocial: "etudiant"}, ctx))
	assert.False(t, MatchCondition(domain.TypeStatutSocial, cond, &domain.Utilisateur{StatutSocial: "salarie"}, ctx))
	assert.False(t, MatchCondition(domain.TypeStatutSocial, cond, &domain.Utilisateur{}, ctx))
}

func TestMatchDefaultConditionAlwaysMatches(t *testing.T) {
	for _, nodeType := range domain.TypesCondition {
		cond := mustCondition(t, nodeType, `{"type": "autre"}`)
		res := MatchConditionDetails(nodeType, cond, &domain.Utilisateur{}, &domain.ContexteEvaluation{})
		assert.True(t, res.Match, nodeType)
		assert.Equal(t, "branche par défaut", res.Details)
	}
}

package engine

import (
	"fmt"
	"strings"

	"ludotheque-admin/internal/domain"
)

// MatchResult is the "with explanation" matcher output. Details is shown to
// administrators auditing why a reduction was or was not applied.
type MatchResult struct {
	Match   bool
	Details string
}

// MatchCondition is the boolean-only matcher variant.
func MatchCondition(nodeType string, cond *domain.Condition, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) bool {
	return MatchConditionDetails(nodeType, cond, user, ctx).Match
}

// MatchConditionDetails evaluates one condition against a user/context pair.
// Missing user data is never an error: the predicate resolves to false with an
// explanatory string. A condition typed autre/default always matches.
func MatchConditionDetails(nodeType string, cond *domain.Condition, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) MatchResult {
	if cond == nil {
		return MatchResult{Match: false, Details: "condition absente"}
	}
	if cond.IsDefault() {
		return MatchResult{Match: true, Details: "branche par défaut"}
	}

	switch nodeType {
	case domain.TypeCommune:
		return matchCommune(cond, user, ctx)
	case domain.TypeQF:
		return matchQF(cond, user)
	case domain.TypeAge:
		return matchAge(cond, user, ctx)
	case domain.TypeFidelite:
		return matchFidelite(cond, ctx)
	case domain.TypeMultiInscriptions:
		return matchMultiInscriptions(cond, ctx)
	case domain.TypeTag, domain.TypeStatutSocial:
		return matchTag(cond, user, ctx)
	}
	return MatchResult{Match: false, Details: fmt.Sprintf("type de condition inconnu: %s", nodeType)}
}

func matchCommune(cond *domain.Condition, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) MatchResult {
	if user == nil || user.CommuneID == "" {
		return MatchResult{Match: false, Details: "commune non renseignée"}
	}

	switch cond.Type {
	case domain.ConditionGroupement:
		for _, g := range ctx.GroupementIDs {
			if g == cond.GroupementID {
				return MatchResult{Match: true, Details: fmt.Sprintf("commune %s appartient au groupement %s", user.CommuneID, cond.GroupementID)}
			}
		}
		return MatchResult{Match: false, Details: fmt.Sprintf("commune %s hors du groupement %s", user.CommuneID, cond.GroupementID)}
	case domain.ConditionListe:
		for _, c := range cond.CommuneIDs {
			if c == user.CommuneID {
				return MatchResult{Match: true, Details: fmt.Sprintf("commune %s dans la liste", user.CommuneID)}
			}
		}
		return MatchResult{Match: false, Details: fmt.Sprintf("commune %s hors de la liste", user.CommuneID)}
	case domain.ConditionCommune:
		if user.CommuneID == cond.CommuneID {
			return MatchResult{Match: true, Details: fmt.Sprintf("commune %s", user.CommuneID)}
		}
		return MatchResult{Match: false, Details: fmt.Sprintf("commune %s ≠ %s", user.CommuneID, cond.CommuneID)}
	}
	return MatchResult{Match: false, Details: "condition commune incomplète"}
}

func matchQF(cond *domain.Condition, user *domain.Utilisateur) MatchResult {
	if user == nil || user.QuotientFamilial == nil {
		return MatchResult{Match: false, Details: "quotient familial non renseigné"}
	}
	qf := *user.QuotientFamilial
	if cond.Min != nil && qf < *cond.Min {
		return MatchResult{Match: false, Details: fmt.Sprintf("QF %.0f < borne min %.0f", qf, *cond.Min)}
	}
	if cond.Max != nil && qf > *cond.Max {
		return MatchResult{Match: false, Details: fmt.Sprintf("QF %.0f > borne max %.0f", qf, *cond.Max)}
	}
	return MatchResult{Match: true, Details: fmt.Sprintf("QF %.0f dans la tranche %s", qf, formatBornes(cond.Min, cond.Max))}
}

func matchAge(cond *domain.Condition, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) MatchResult {
	if user == nil || user.DateNaissance == nil {
		return MatchResult{Match: false, Details: "date de naissance non renseignée"}
	}
	age := domain.Age(*user.DateNaissance, ctx.DateCotisation)
	ok := compareNumeric(cond, float64(age))
	return MatchResult{Match: ok, Details: fmt.Sprintf("âge %d %s", age, formatComparaison(cond, ok))}
}

func matchFidelite(cond *domain.Condition, ctx *domain.ContexteEvaluation) MatchResult {
	if ctx == nil || ctx.Anciennete == nil {
		return MatchResult{Match: false, Details: "ancienneté non renseignée"}
	}
	anc := *ctx.Anciennete
	ok := compareNumeric(cond, anc)
	return MatchResult{Match: ok, Details: fmt.Sprintf("ancienneté %.0f an(s) %s", anc, formatComparaison(cond, ok))}
}

func matchMultiInscriptions(cond *domain.Condition, ctx *domain.ContexteEvaluation) MatchResult {
	if ctx == nil || ctx.NbInscrits == nil {
		return MatchResult{Match: false, Details: "nombre d'inscrits non renseigné"}
	}
	nb := *ctx.NbInscrits
	ok := compareNumeric(cond, float64(nb))
	return MatchResult{Match: ok, Details: fmt.Sprintf("%d inscrit(s) actif(s) %s", nb, formatComparaison(cond, ok))}
}

func matchTag(cond *domain.Condition, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) MatchResult {
	// Legacy STATUT_SOCIAL conditions carry one enumerated value.
	if len(cond.Tags) == 0 && cond.StatutSocial != "" {
		statut := ""
		if user != nil {
			statut = user.StatutSocial
		}
		if statut == "" {
			return MatchResult{Match: false, Details: "statut social non renseigné"}
		}
		match := statut == cond.StatutSocial
		if cond.Mode == domain.ModeNeContientPas {
			match = !match
		}
		return MatchResult{Match: match, Details: fmt.Sprintf("statut social %q vs %q", statut, cond.StatutSocial)}
	}

	var tags []string
	if ctx != nil {
		tags = ctx.TagsEffectifs(user)
	} else if user != nil {
		tags = user.Tags
	}
	held := map[string]bool{}
	for _, t := range tags {
		held[t] = true
	}
	var communs []string
	for _, t := range cond.Tags {
		if held[t] {
			communs = append(communs, t)
		}
	}

	switch cond.Mode {
	case domain.ModeNeContientPas:
		if len(communs) == 0 {
			return MatchResult{Match: true, Details: fmt.Sprintf("aucun des tags [%s]", strings.Join(cond.Tags, ", "))}
		}
		return MatchResult{Match: false, Details: fmt.Sprintf("tags exclus présents: [%s]", strings.Join(communs, ", "))}
	default: // contient
		if len(tags) == 0 {
			return MatchResult{Match: false, Details: "aucun tag renseigné"}
		}
		if len(communs) > 0 {
			return MatchResult{Match: true, Details: fmt.Sprintf("tags présents: [%s]", strings.Join(communs, ", "))}
		}
		return MatchResult{Match: false, Details: fmt.Sprintf("aucun des tags [%s]", strings.Join(cond.Tags, ", "))}
	}
}

// compareNumeric applies the condition's operator to a numeric figure.
// Both ends of "entre" are inclusive; a missing bound is open.
func compareNumeric(cond *domain.Condition, got float64) bool {
	switch cond.Operateur {
	case domain.OpEntre:
		if cond.Min != nil && got < *cond.Min {
			return false
		}
		if cond.Max != nil && got > *cond.Max {
			return false
		}
		return cond.Min != nil || cond.Max != nil
	case domain.OpInferieur:
		return cond.Valeur != nil && got < *cond.Valeur
	case domain.OpInferieurEgal:
		return cond.Valeur != nil && got <= *cond.Valeur
	case domain.OpSuperieur:
		return cond.Valeur != nil && got > *cond.Valeur
	case domain.OpSuperieurEgal:
		return cond.Valeur != nil && got >= *cond.Valeur
	case domain.OpEgal:
		return cond.Valeur != nil && got == *cond.Valeur
	}
	return false
}

func formatComparaison(cond *domain.Condition, ok bool) string {
	verdict := "ne vérifie pas"
	if ok {
		verdict = "vérifie"
	}
	if cond.Operateur == domain.OpEntre {
		return fmt.Sprintf("%s entre %s", verdict, formatBornes(cond.Min, cond.Max))
	}
	if cond.Valeur != nil {
		return fmt.Sprintf("%s %s %.0f", verdict, cond.Operateur, *cond.Valeur)
	}
	return fmt.Sprintf("%s %s (valeur absente)", verdict, cond.Operateur)
}

func formatBornes(min, max *float64) string {
	lo, hi := "-∞", "+∞"
	if min != nil {
		lo = fmt.Sprintf("%.0f", *min)
	}
	if max != nil {
		hi = fmt.Sprintf("%.0f", *max)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}

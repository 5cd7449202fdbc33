package domain

import "time"

// Utilisateur is the member profile the engine evaluates conditions against.
// Simulation overrides do not live here; see ContexteEvaluation.
type Utilisateur struct {
	ID               string     `json:"id"`
	CommuneID        string     `json:"commune_id"`
	QuotientFamilial *float64   `json:"quotient_familial"`
	DateNaissance    *time.Time `json:"date_naissance"`
	FamilleID        string     `json:"famille_id"`
	Tags             []string   `json:"tags"`
	StatutSocial     string     `json:"statut_social"`
}

// ContexteEvaluation carries the reference date, the pre-reduction base amount
// and the optional simulation overrides for one tree walk. Resolved fields
// (tenure, active registrations, commune groupings) are filled by the
// evaluation service before the walk when the tree needs them; overrides
// supplied by a simulation caller win over resolution.
type ContexteEvaluation struct {
	DateCotisation time.Time `json:"date_cotisation"`
	MontantBase    float64   `json:"montant_base"`

	Anciennete    *float64 `json:"anciennete,omitempty"`     // years since first fee
	NbInscrits    *int     `json:"nb_inscrits,omitempty"`    // active fees in the household
	Tags          []string `json:"tags,omitempty"`           // tag override
	GroupementIDs []string `json:"groupement_ids,omitempty"` // groupings of the user's commune

	Simulation bool `json:"simulation"`
}

// TagsEffectifs returns the override tags when set, the profile tags otherwise.
func (c *ContexteEvaluation) TagsEffectifs(u *Utilisateur) []string {
	if c != nil && c.Tags != nil {
		return c.Tags
	}
	if u == nil {
		return nil
	}
	return u.Tags
}

// Age computes completed years at the reference date. A user born on the
// reference date's exact month/day turns their new age that day.
func Age(naissance, ref time.Time) int {
	age := ref.Year() - naissance.Year()
	if ref.Month() < naissance.Month() ||
		(ref.Month() == naissance.Month() && ref.Day() < naissance.Day()) {
		age--
	}
	return age
}

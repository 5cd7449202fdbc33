package domain

import (
	"encoding/json"
	"fmt"
)

// Condition is the canonical, normalized form of a branch condition. Branch
// documents in the wild carry two generations of field names; conditionWire
// accepts both and ParseCondition folds them into this one representation.
type Condition struct {
	// Type carries the COMMUNE sub-kind (groupement | liste | commune) and the
	// default markers (autre | default), which match unconditionally on any node.
	Type string

	// COMMUNE
	GroupementID string
	CommuneIDs   []string
	CommuneID    string

	// QF bounds, AGE/FIDELITE "entre" bounds, FIDELITE legacy range. Inclusive.
	Min *float64
	Max *float64

	// AGE / FIDELITE / MULTI_INSCRIPTIONS
	Operateur string
	Valeur    *float64

	// TAG
	Mode         string
	Tags         []string
	StatutSocial string
}

// Condition sub-types / default markers.
const (
	ConditionGroupement = "groupement"
	ConditionListe      = "liste"
	ConditionCommune    = "commune"
	ConditionAutre      = "autre"
	ConditionDefault    = "default"
)

// IsDefault reports whether the condition always matches (fallback branch).
func (c *Condition) IsDefault() bool {
	return c.Type == ConditionAutre || c.Type == ConditionDefault
}

// conditionWire accepts both the legacy and the current field names.
type conditionWire struct {
	Type string `json:"type"`

	GroupementID string   `json:"groupement_id"`
	CommuneID    string   `json:"commune_id"`
	CommuneIDs   []string `json:"commune_ids"`
	Communes     []string `json:"communes"` // legacy name of commune_ids

	BorneMin *float64 `json:"borne_min"`
	BorneMax *float64 `json:"borne_max"`
	Min      *float64 `json:"min"` // legacy name of borne_min, and "entre" lower bound
	Max      *float64 `json:"max"` // legacy name of borne_max, and "entre" upper bound

	Operateur string   `json:"operateur"`
	Operator  string   `json:"operator"` // legacy
	Valeur    *float64 `json:"valeur"`
	Value     *float64 `json:"value"` // legacy

	Mode         string   `json:"mode"`
	Tags         []string `json:"tags"`
	StatutSocial string   `json:"statut_social"` // legacy single-value fallback
}

// ParseCondition normalizes a raw branch condition for the given node type.
// An empty condition is valid and never matches (except via the default type).
func ParseCondition(nodeType string, raw json.RawMessage) (*Condition, error) {
	var w conditionWire
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, fmt.Errorf("invalid condition for node type %s: %w", nodeType, err)
		}
	}

	c := &Condition{
		Type:         w.Type,
		GroupementID: w.GroupementID,
		CommuneID:    w.CommuneID,
		StatutSocial: w.StatutSocial,
		Mode:         w.Mode,
		Tags:         w.Tags,
	}

	c.Operateur = w.Operateur
	if c.Operateur == "" {
		c.Operateur = w.Operator
	}
	c.Valeur = w.Valeur
	if c.Valeur == nil {
		c.Valeur = w.Value
	}

	c.CommuneIDs = w.CommuneIDs
	if len(c.CommuneIDs) == 0 {
		c.CommuneIDs = w.Communes
	}

	c.Min = w.BorneMin
	if c.Min == nil {
		c.Min = w.Min
	}
	c.Max = w.BorneMax
	if c.Max == nil {
		c.Max = w.Max
	}

	if c.IsDefault() {
		return c, nil
	}

	switch nodeType {
	case TypeCommune:
		// Infer the sub-kind when older documents omitted it.
		if c.Type == "" {
			switch {
			case c.GroupementID != "":
				c.Type = ConditionGroupement
			case len(c.CommuneIDs) > 0:
				c.Type = ConditionListe
			case c.CommuneID != "":
				c.Type = ConditionCommune
			}
		}
	case TypeFidelite:
		// Legacy documents express tenure as an inclusive min/max range.
		if c.Operateur == "" && (c.Min != nil || c.Max != nil) {
			c.Operateur = OpEntre
		}
	case TypeTag, TypeStatutSocial:
		if c.Mode == "" && len(c.Tags) > 0 {
			c.Mode = ModeContient
		}
	}

	return c, nil
}

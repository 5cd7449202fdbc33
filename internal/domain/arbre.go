package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ArbreDecision is one decision tree row (1:1 with a tariff).
// The document column holds the nested node/branch structure as JSONB.
type ArbreDecision struct {
	ID            string          `db:"arbre_id" json:"arbre_id"`
	TarifID       string          `db:"tarif_id" json:"tarif_id"`
	StructureID   string          `db:"structure_id" json:"structure_id"` // empty = platform-wide
	ModeAffichage string          `db:"mode_affichage" json:"mode_affichage"`
	Document      json.RawMessage `db:"document" json:"document"`
	Version       int             `db:"version" json:"version"`
	Verrouille    bool            `db:"verrouille" json:"verrouille"`
	VerrouilleLe  *time.Time      `db:"verrouille_le" json:"verrouille_le"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// Display modes for the tree-editing UI.
const (
	ModeAffichageMinimum  = "minimum"
	ModeAffichageDetaille = "detaille"
)

// DocumentVide is the document a tree starts with when a tariff is first
// configured for rule-based reduction.
const DocumentVide = `{"version":1,"nodes":[]}`

// DocumentArbre is the parsed tree document.
type DocumentArbre struct {
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
}

// Node evaluates one dimension of eligibility. Top-level nodes are cumulative:
// every node that matches contributes its branch's reduction, they are not
// mutually exclusive alternatives.
type Node struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	Ordre    int       `json:"ordre"`
	Branches []Branche `json:"branches"`
}

// Branche is one option within a node. Enfants are nested nodes evaluated only
// when this branch is the one selected for its parent.
type Branche struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	Libelle   string          `json:"libelle"`
	Condition json.RawMessage `json:"condition"`
	Reduction *Reduction      `json:"reduction,omitempty"`
	Enfants   []Node          `json:"enfants,omitempty"`
}

// Reduction is the discount attached to a branch.
type Reduction struct {
	OperationID string  `json:"operation_id"`
	TypeCalcul  string  `json:"type_calcul"` // fixe | pourcentage
	Valeur      float64 `json:"valeur"`
}

const (
	TypeCalculFixe        = "fixe"
	TypeCalculPourcentage = "pourcentage"
)

// Condition node (dimension) types.
const (
	TypeCommune           = "COMMUNE"
	TypeQF                = "QF"
	TypeAge               = "AGE"
	TypeFidelite          = "FIDELITE"
	TypeMultiInscriptions = "MULTI_INSCRIPTIONS"
	TypeTag               = "TAG"
	TypeStatutSocial      = "STATUT_SOCIAL" // legacy alias of TAG
)

// TypesCondition is the editing-UI catalog order.
var TypesCondition = []string{
	TypeCommune, TypeQF, TypeAge, TypeFidelite, TypeMultiInscriptions, TypeTag,
}

// IsTypeConditionValide reports whether the node type is known to the engine.
func IsTypeConditionValide(t string) bool {
	switch t {
	case TypeCommune, TypeQF, TypeAge, TypeFidelite, TypeMultiInscriptions, TypeTag, TypeStatutSocial:
		return true
	}
	return false
}

// Comparison operators accepted by AGE, FIDELITE and MULTI_INSCRIPTIONS.
const (
	OpInferieur     = "<"
	OpInferieurEgal = "<="
	OpSuperieur     = ">"
	OpSuperieurEgal = ">="
	OpEgal          = "="
	OpEntre         = "entre"
)

// TAG condition modes.
const (
	ModeContient      = "contient"
	ModeNeContientPas = "ne_contient_pas"
)

// ParseDocument parses a raw tree document.
func ParseDocument(raw json.RawMessage) (*DocumentArbre, error) {
	if len(raw) == 0 {
		return &DocumentArbre{Version: 1, Nodes: []Node{}}, nil
	}
	var doc DocumentArbre
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid tree document: %w", err)
	}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	return &doc, nil
}

package domain

import (
	"encoding/json"
	"time"
)

// ReductionAppliquee is one discount the engine computed during a walk.
type ReductionAppliquee struct {
	TypeSource     string  `json:"type_source"` // node type that produced it
	BrancheCode    string  `json:"branche_code"`
	BrancheLibelle string  `json:"branche_libelle"`
	OperationID    string  `json:"operation_id"`
	TypeCalcul     string  `json:"type_calcul"`
	Valeur         float64 `json:"valeur"`
	Montant        float64 `json:"montant_reduction"`
}

// LigneReduction is the persisted ledger row. Created once at fee-pricing time,
// never mutated afterward.
type LigneReduction struct {
	ID               string    `db:"ligne_id" json:"ligne_id"`
	CotisationID     string    `db:"cotisation_id" json:"cotisation_id"`
	StructureID      string    `db:"structure_id" json:"structure_id"`
	OperationID      string    `db:"operation_id" json:"operation_id"`
	TypeSource       string    `db:"type_source" json:"type_source"`
	BrancheCode      string    `db:"branche_code" json:"branche_code"`
	BrancheLibelle   string    `db:"branche_libelle" json:"branche_libelle"`
	TypeCalcul       string    `db:"type_calcul" json:"type_calcul"`
	Valeur           float64   `db:"valeur" json:"valeur"`
	MontantReduction float64   `db:"montant_reduction" json:"montant_reduction"`
	OrdreApplication int       `db:"ordre_application" json:"ordre_application"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// AggregatOperation is one row of the accounting export: persisted reductions
// grouped by accounting operation over a date range.
type AggregatOperation struct {
	OperationID  string  `json:"operation_id"`
	NbLignes     int     `json:"nb_lignes"`
	TotalMontant float64 `json:"total_montant"`
}

// EtapeChemin is one ordered path entry: which branch a node selected.
type EtapeChemin struct {
	NodeID         string `json:"node_id"`
	NodeType       string `json:"node_type"`
	BrancheID      string `json:"branche_id"`
	BrancheCode    string `json:"branche_code"`
	BrancheLibelle string `json:"branche_libelle"`
}

// BrancheTestee records one branch examined by the resolver, matched or not,
// with the human-readable explanation for administrator audit.
type BrancheTestee struct {
	BrancheID string          `json:"branche_id"`
	Code      string          `json:"code"`
	Libelle   string          `json:"libelle"`
	Condition json.RawMessage `json:"condition"`
	Match     bool            `json:"match"`
	Details   string          `json:"details"`
}

// TraceNode is the audit trace of one node evaluation, nested depth-first.
type TraceNode struct {
	NodeID              string              `json:"node_id"`
	NodeType            string              `json:"node_type"`
	BranchesTestees     []BrancheTestee     `json:"branches_testees"`
	BrancheSelectionnee *string             `json:"branche_selectionnee"` // branch id, nil when none
	Reduction           *ReductionAppliquee `json:"reduction"`
	Enfants             []TraceNode         `json:"enfants,omitempty"`
	Message             string              `json:"message,omitempty"`
}

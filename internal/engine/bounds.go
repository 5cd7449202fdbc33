package engine

import (
	"ludotheque-admin/internal/domain"
)

// BornesTarif is the possible price envelope of a tariff for a given base
// amount, across every combination of matching branches.
type BornesTarif struct {
	MontantBase  float64 `json:"montant_base"`
	ReductionMin float64 `json:"reduction_min"`
	ReductionMax float64 `json:"reduction_max"`
	PrixMin      float64 `json:"prix_min"`
	PrixMax      float64 `json:"prix_max"`
}

// CalculerBornes computes the smallest and largest total reduction the tree
// can produce on the given base. Per top-level node: the minimum contribution
// is zero when the node can fail to match (no default branch), otherwise the
// smallest branch total; the maximum is the largest branch total. A branch
// total is its own reduction plus its children's envelopes, all on the fixed
// base. Node envelopes sum because top-level nodes are cumulative.
func (e *Evaluator) CalculerBornes(doc *domain.DocumentArbre, base float64) BornesTarif {
	var lo, hi float64
	if doc != nil {
		for i := range doc.Nodes {
			nLo, nHi := e.bornesNode(&doc.Nodes[i], base)
			lo += nLo
			hi += nHi
		}
	}
	return BornesTarif{
		MontantBase:  base,
		ReductionMin: arrondi2(lo),
		ReductionMax: arrondi2(hi),
		PrixMin:      arrondi2(base - hi),
		PrixMax:      arrondi2(base - lo),
	}
}

func (e *Evaluator) bornesNode(node *domain.Node, base float64) (float64, float64) {
	if !domain.IsTypeConditionValide(node.Type) || len(node.Branches) == 0 {
		return 0, 0
	}

	hasDefault := false
	var lo, hi float64
	for i := range node.Branches {
		br := &node.Branches[i]
		bLo := MontantReduction(br.Reduction, base)
		bHi := bLo
		for j := range br.Enfants {
			cLo, cHi := e.bornesNode(&br.Enfants[j], base)
			bLo += cLo
			bHi += cHi
		}
		if i == 0 {
			lo, hi = bLo, bHi
		} else {
			if bLo < lo {
				lo = bLo
			}
			if bHi > hi {
				hi = bHi
			}
		}
		if cond, err := domain.ParseCondition(node.Type, br.Condition); err == nil && cond.IsDefault() {
			hasDefault = true
		}
	}

	// Without a fallback branch the node may select nothing at all.
	if !hasDefault && lo > 0 {
		lo = 0
	}
	return lo, hi
}

package engine

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"ludotheque-admin/internal/domain"
)

// ResultatEvaluation is the aggregate output of one full tree walk.
type ResultatEvaluation struct {
	Reductions      []domain.ReductionAppliquee `json:"reductions"`
	Chemin          []domain.EtapeChemin        `json:"chemin"`
	TotalReductions float64                     `json:"total_reductions"`
	Trace           []domain.TraceNode          `json:"trace"`
}

// resultatNode is the contribution of one node subtree.
type resultatNode struct {
	reductions []domain.ReductionAppliquee
	chemin     []domain.EtapeChemin
	total      float64
}

// Evaluator walks decision trees. Evaluation only reads the document, so one
// Evaluator may serve concurrent walks.
type Evaluator struct {
	logger *zap.Logger
}

func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// EvaluerDocument walks every top-level node in ascending ordre (stable on
// ties) and accumulates reductions, path entries and trace across all of them.
// Nodes are cumulative, not alternatives: every matching top-level node
// contributes, independently of the others.
func (e *Evaluator) EvaluerDocument(doc *domain.DocumentArbre, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) *ResultatEvaluation {
	res := &ResultatEvaluation{
		Reductions: []domain.ReductionAppliquee{},
		Chemin:     []domain.EtapeChemin{},
		Trace:      []domain.TraceNode{},
	}
	if doc == nil || len(doc.Nodes) == 0 {
		return res
	}

	nodes := make([]domain.Node, len(doc.Nodes))
	copy(nodes, doc.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Ordre < nodes[j].Ordre })

	for i := range nodes {
		nodeRes, trace := e.evaluateNode(&nodes[i], user, ctx)
		res.Trace = append(res.Trace, trace)
		if nodeRes == nil {
			continue
		}
		res.Reductions = append(res.Reductions, nodeRes.reductions...)
		res.Chemin = append(res.Chemin, nodeRes.chemin...)
		res.TotalReductions += nodeRes.total
	}

	return res
}

// evaluateNode evaluates one node depth-first: resolve the matching branch,
// apply its reduction, then recurse into the branch's nested child nodes. A
// parent reduction and every matching descendant reduction all add together.
// Returns a nil result when no branch was selected.
func (e *Evaluator) evaluateNode(node *domain.Node, user *domain.Utilisateur, ctx *domain.ContexteEvaluation) (*resultatNode, domain.TraceNode) {
	trace := domain.TraceNode{
		NodeID:          node.ID,
		NodeType:        node.Type,
		BranchesTestees: []domain.BrancheTestee{},
	}

	if !domain.IsTypeConditionValide(node.Type) {
		e.logger.Warn("unknown node type, node contributes nothing",
			zap.String("node_id", node.ID),
			zap.String("node_type", node.Type))
		trace.Message = "type de nœud inconnu"
		return nil, trace
	}

	branche, testees := ResolveBranche(node, user, ctx)
	trace.BranchesTestees = testees
	if branche == nil {
		trace.Message = "aucune branche sélectionnée"
		return nil, trace
	}
	trace.BrancheSelectionnee = &branche.ID

	res := &resultatNode{
		chemin: []domain.EtapeChemin{{
			NodeID:         node.ID,
			NodeType:       node.Type,
			BrancheID:      branche.ID,
			BrancheCode:    branche.Code,
			BrancheLibelle: branche.Libelle,
		}},
	}

	if branche.Reduction != nil {
		applied := domain.ReductionAppliquee{
			TypeSource:     node.Type,
			BrancheCode:    branche.Code,
			BrancheLibelle: branche.Libelle,
			OperationID:    branche.Reduction.OperationID,
			TypeCalcul:     branche.Reduction.TypeCalcul,
			Valeur:         branche.Reduction.Valeur,
			Montant:        MontantReduction(branche.Reduction, ctx.MontantBase),
		}
		res.reductions = append(res.reductions, applied)
		res.total += applied.Montant
		trace.Reduction = &applied
	}

	// Child nodes that fail to match simply contribute nothing; they never
	// abort the parent.
	for i := range branche.Enfants {
		childRes, childTrace := e.evaluateNode(&branche.Enfants[i], user, ctx)
		trace.Enfants = append(trace.Enfants, childTrace)
		if childRes == nil {
			continue
		}
		res.reductions = append(res.reductions, childRes.reductions...)
		res.chemin = append(res.chemin, childRes.chemin...)
		res.total += childRes.total
	}

	return res, trace
}

// MontantReduction computes the monetary value of a reduction. Percentages are
// applied to the caller-supplied base, which stays fixed for the whole walk:
// every percentage is computed against the same original amount, then summed.
func MontantReduction(r *domain.Reduction, base float64) float64 {
	if r == nil {
		return 0
	}
	switch r.TypeCalcul {
	case domain.TypeCalculFixe:
		return r.Valeur
	case domain.TypeCalculPourcentage:
		return arrondi2(base * r.Valeur / 100)
	}
	return 0
}

// arrondi2 rounds half-up to two decimals.
func arrondi2(v float64) float64 {
	return math.Round(v*100) / 100
}
